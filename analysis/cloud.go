package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// VM is one virtual machine with its 7-day CPU utilization profile.
type VM struct {
	Name          string
	ResourceGroup string
	Location      string
	Size          string
	OSType        string
	PowerState    string
	CPUAverage    float64 // percent, 7-day average
	CPUMax        float64 // percent, 7-day peak
}

// Disk is one managed disk. AttachedTo is empty for unattached disks.
type Disk struct {
	Name          string
	ResourceGroup string
	Location      string
	SKU           string
	SizeGB        int
	AttachedTo    string
	AgeDays       int
}

// StorageAccount is one storage account with usage and access profile.
type StorageAccount struct {
	Name           string
	ResourceGroup  string
	Location       string
	SKU            string
	AccessTier     string
	UsedGB         float64
	LastAccessDays int
}

// PublicIP is one reserved public IP address. AttachedTo is empty for
// orphaned addresses.
type PublicIP struct {
	Name          string
	ResourceGroup string
	Location      string
	SKU           string
	AttachedTo    string
}

// Database is one managed database with its utilization profile.
type Database struct {
	Name          string
	Server        string
	ResourceGroup string
	Kind          string // e.g. "sql", "cosmosdb"
	Tier          string
	DTUAverage    float64 // percent of provisioned capacity, 7-day average
	StorageGB     float64
}

// CostEntry is one line of the monthly spend breakdown.
type CostEntry struct {
	Service       string
	ResourceGroup string
	MonthlyUSD    float64
}

// CloudClient is the read-only inventory boundary the capability handlers
// depend on. An empty resourceGroup means all resource groups.
type CloudClient interface {
	ListVMs(ctx context.Context, resourceGroup string) ([]VM, error)
	ListDisks(ctx context.Context, resourceGroup string) ([]Disk, error)
	ListStorageAccounts(ctx context.Context, resourceGroup string) ([]StorageAccount, error)
	ListPublicIPs(ctx context.Context, resourceGroup string) ([]PublicIP, error)
	ListDatabases(ctx context.Context, resourceGroup string) ([]Database, error)
	CostEntries(ctx context.Context) ([]CostEntry, error)
}

// StaticClient serves a fixed synthetic inventory. Safe for concurrent use;
// the fixture slices are never mutated after construction.
type StaticClient struct {
	vms      []VM
	disks    []Disk
	accounts []StorageAccount
	ips      []PublicIP
	dbs      []Database
	costs    []CostEntry
}

// NewStaticClient returns a client over a small synthetic estate containing
// one deliberate example of each waste category the handlers detect.
func NewStaticClient() *StaticClient {
	return &StaticClient{
		vms: []VM{
			{Name: "web-frontend-01", ResourceGroup: "rg-production", Location: "westus2", Size: "Standard_D4s_v3", OSType: "Linux", PowerState: "running", CPUAverage: 62.4, CPUMax: 91.0},
			{Name: "batch-worker-01", ResourceGroup: "rg-production", Location: "westus2", Size: "Standard_D8s_v3", OSType: "Linux", PowerState: "running", CPUAverage: 14.2, CPUMax: 38.5},
			{Name: "legacy-reports", ResourceGroup: "rg-legacy", Location: "eastus", Size: "Standard_E4s_v3", OSType: "Windows", PowerState: "running", CPUAverage: 4.1, CPUMax: 11.3},
		},
		disks: []Disk{
			{Name: "web-frontend-01-osdisk", ResourceGroup: "rg-production", Location: "westus2", SKU: "Premium_LRS", SizeGB: 128, AttachedTo: "web-frontend-01", AgeDays: 412},
			{Name: "old-data-disk", ResourceGroup: "rg-legacy", Location: "eastus", SKU: "Premium_LRS", SizeGB: 512, AttachedTo: "", AgeDays: 147},
			{Name: "snapshot-restore-tmp", ResourceGroup: "rg-production", Location: "westus2", SKU: "StandardSSD_LRS", SizeGB: 256, AttachedTo: "", AgeDays: 12},
		},
		accounts: []StorageAccount{
			{Name: "prodassets", ResourceGroup: "rg-production", Location: "westus2", SKU: "Standard_GRS", AccessTier: "Hot", UsedGB: 850, LastAccessDays: 0},
			{Name: "archivedumps", ResourceGroup: "rg-legacy", Location: "eastus", SKU: "Standard_LRS", AccessTier: "Hot", UsedGB: 2300, LastAccessDays: 94},
		},
		ips: []PublicIP{
			{Name: "web-frontend-ip", ResourceGroup: "rg-production", Location: "westus2", SKU: "Standard", AttachedTo: "web-frontend-lb"},
			{Name: "decom-service-ip", ResourceGroup: "rg-legacy", Location: "eastus", SKU: "Standard", AttachedTo: ""},
		},
		dbs: []Database{
			{Name: "orders", Server: "prod-sql-01", ResourceGroup: "rg-production", Kind: "sql", Tier: "S3", DTUAverage: 58.0, StorageGB: 120},
			{Name: "audit-archive", Server: "prod-sql-01", ResourceGroup: "rg-production", Kind: "sql", Tier: "S3", DTUAverage: 3.5, StorageGB: 45},
			{Name: "sessions", Server: "prod-cosmos", ResourceGroup: "rg-production", Kind: "cosmosdb", Tier: "400 RU/s", DTUAverage: 22.0, StorageGB: 8},
		},
		costs: []CostEntry{
			{Service: "Virtual Machines", ResourceGroup: "rg-production", MonthlyUSD: 420.48},
			{Service: "Virtual Machines", ResourceGroup: "rg-legacy", MonthlyUSD: 183.96},
			{Service: "Storage", ResourceGroup: "rg-production", MonthlyUSD: 96.40},
			{Service: "Storage", ResourceGroup: "rg-legacy", MonthlyUSD: 112.30},
			{Service: "SQL Database", ResourceGroup: "rg-production", MonthlyUSD: 300.00},
			{Service: "Networking", ResourceGroup: "rg-legacy", MonthlyUSD: 7.30},
		},
	}
}

// ListVMs implements CloudClient.
func (c *StaticClient) ListVMs(_ context.Context, resourceGroup string) ([]VM, error) {
	return filterByGroup(c.vms, resourceGroup, func(v VM) string { return v.ResourceGroup }), nil
}

// ListDisks implements CloudClient.
func (c *StaticClient) ListDisks(_ context.Context, resourceGroup string) ([]Disk, error) {
	return filterByGroup(c.disks, resourceGroup, func(d Disk) string { return d.ResourceGroup }), nil
}

// ListStorageAccounts implements CloudClient.
func (c *StaticClient) ListStorageAccounts(_ context.Context, resourceGroup string) ([]StorageAccount, error) {
	return filterByGroup(c.accounts, resourceGroup, func(a StorageAccount) string { return a.ResourceGroup }), nil
}

// ListPublicIPs implements CloudClient.
func (c *StaticClient) ListPublicIPs(_ context.Context, resourceGroup string) ([]PublicIP, error) {
	return filterByGroup(c.ips, resourceGroup, func(p PublicIP) string { return p.ResourceGroup }), nil
}

// ListDatabases implements CloudClient.
func (c *StaticClient) ListDatabases(_ context.Context, resourceGroup string) ([]Database, error) {
	return filterByGroup(c.dbs, resourceGroup, func(d Database) string { return d.ResourceGroup }), nil
}

// CostEntries implements CloudClient.
func (c *StaticClient) CostEntries(_ context.Context) ([]CostEntry, error) {
	out := make([]CostEntry, len(c.costs))
	copy(out, c.costs)
	return out, nil
}

func filterByGroup[T any](items []T, resourceGroup string, groupOf func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if resourceGroup == "" || strings.EqualFold(groupOf(item), resourceGroup) {
			out = append(out, item)
		}
	}
	return out
}

// vmPricing holds hourly pay-as-you-go rates for common sizes. Unknown sizes
// fall back to $0.10/hour.
var vmPricing = map[string]float64{
	"Standard_B1s":     0.0104,
	"Standard_B2s":     0.0416,
	"Standard_D2s_v3":  0.096,
	"Standard_D4s_v3":  0.192,
	"Standard_D8s_v3":  0.384,
	"Standard_D16s_v3": 0.768,
	"Standard_E2s_v3":  0.126,
	"Standard_E4s_v3":  0.252,
	"Standard_F2s_v2":  0.085,
	"Standard_F4s_v2":  0.169,
}

// diskPricing holds per-GB monthly rates by SKU. Unknown SKUs fall back to
// the Standard_LRS rate.
var diskPricing = map[string]float64{
	"Premium_LRS":     0.135,
	"StandardSSD_LRS": 0.075,
	"Standard_LRS":    0.04,
	"Premium_ZRS":     0.169,
	"StandardSSD_ZRS": 0.094,
}

const hoursPerMonth = 730

func vmMonthlyCost(size string) float64 {
	rate, ok := vmPricing[size]
	if !ok {
		rate = 0.10
	}
	return rate * hoursPerMonth
}

func diskMonthlyCost(sku string, sizeGB int) float64 {
	rate, ok := diskPricing[sku]
	if !ok {
		rate = diskPricing["Standard_LRS"]
	}
	return rate * float64(sizeGB)
}

func formatCost(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
