package analysis

import (
	"context"

	"github.com/hupe1980/costmesh/capability"
)

// storageAccountMonthlyCost estimates the monthly cost of a storage account
// from its SKU and used capacity.
func storageAccountMonthlyCost(sku string, usedGB float64) float64 {
	perGB := map[string]float64{
		"Standard_LRS": 0.0184,
		"Standard_GRS": 0.0368,
		"Standard_ZRS": 0.023,
		"Premium_LRS":  0.15,
	}
	rate, ok := perGB[sku]
	if !ok {
		rate = perGB["Standard_LRS"]
	}
	return rate * usedGB
}

// coolTierRate approximates Cool-tier blob pricing per GB/month.
const coolTierRate = 0.01

// StorageCapabilities returns the storage specialist's capability set.
func StorageCapabilities(client CloudClient) []capability.Capability {
	groupParam := map[string]any{
		"type":        "string",
		"description": "Resource group to filter by. Omit to include all resource groups.",
	}

	return []capability.Capability{
		capability.NewFunction(
			"list_storage_accounts",
			"List storage accounts with SKU, access tier, used capacity and estimated monthly cost.",
			map[string]any{
				"type":       "object",
				"properties": map[string]any{"resource_group": groupParam},
			},
			func(ctx context.Context, args map[string]any) (any, error) {
				group, _ := args["resource_group"].(string)
				accounts, err := client.ListStorageAccounts(ctx, group)
				if err != nil {
					return nil, err
				}

				var totalCost float64
				items := make([]map[string]any, 0, len(accounts))
				for _, acct := range accounts {
					cost := storageAccountMonthlyCost(acct.SKU, acct.UsedGB)
					totalCost += cost
					items = append(items, map[string]any{
						"name":                   acct.Name,
						"resource_group":         acct.ResourceGroup,
						"location":               acct.Location,
						"sku":                    acct.SKU,
						"access_tier":            acct.AccessTier,
						"used_gb":                round2(acct.UsedGB),
						"monthly_cost_usd":       round2(cost),
						"monthly_cost_formatted": formatCost(cost),
					})
				}
				return map[string]any{
					"total_accounts":               len(items),
					"total_monthly_cost":           round2(totalCost),
					"total_monthly_cost_formatted": formatCost(totalCost),
					"storage_accounts":             items,
				}, nil
			},
		),

		capability.NewFunction(
			"get_storage_metrics",
			"Analyze storage for waste: unattached managed disks and accounts whose data has not been accessed recently.",
			map[string]any{
				"type":       "object",
				"properties": map[string]any{"resource_group": groupParam},
			},
			func(ctx context.Context, args map[string]any) (any, error) {
				group, _ := args["resource_group"].(string)

				disks, err := client.ListDisks(ctx, group)
				if err != nil {
					return nil, err
				}
				accounts, err := client.ListStorageAccounts(ctx, group)
				if err != nil {
					return nil, err
				}

				var totalWaste float64
				unattached := make([]map[string]any, 0)
				for _, disk := range disks {
					if disk.AttachedTo != "" {
						continue
					}
					cost := diskMonthlyCost(disk.SKU, disk.SizeGB)
					totalWaste += cost

					priority := "LOW"
					recommendation := "Verify if disk is still needed (recently created)."
					if disk.AgeDays > 90 {
						priority = "HIGH"
						recommendation = "Delete this unattached disk to save " + formatCost(cost) + "/month."
					} else if disk.AgeDays > 30 {
						priority = "MEDIUM"
						recommendation = "Delete this unattached disk to save " + formatCost(cost) + "/month."
					}
					unattached = append(unattached, map[string]any{
						"name":                   disk.Name,
						"resource_group":         disk.ResourceGroup,
						"size_gb":                disk.SizeGB,
						"sku":                    disk.SKU,
						"age_days":               disk.AgeDays,
						"monthly_cost_usd":       round2(cost),
						"monthly_cost_formatted": formatCost(cost),
						"priority":               priority,
						"recommendation":         recommendation,
					})
				}

				coldAccounts := make([]map[string]any, 0)
				for _, acct := range accounts {
					if acct.AccessTier != "Hot" || acct.LastAccessDays < 30 {
						continue
					}
					currentCost := storageAccountMonthlyCost(acct.SKU, acct.UsedGB)
					coolCost := coolTierRate * acct.UsedGB
					savings := currentCost - coolCost
					coldAccounts = append(coldAccounts, map[string]any{
						"name":                      acct.Name,
						"resource_group":            acct.ResourceGroup,
						"used_gb":                   round2(acct.UsedGB),
						"last_access_days":          acct.LastAccessDays,
						"current_monthly_cost":      formatCost(currentCost),
						"cool_tier_monthly_cost":    formatCost(coolCost),
						"potential_monthly_savings": formatCost(savings),
						"recommendation":            "Move infrequently accessed data to the Cool access tier.",
					})
				}

				return map[string]any{
					"disks_scanned":                 len(disks),
					"unattached_disks_count":        len(unattached),
					"total_monthly_waste":           round2(totalWaste),
					"total_monthly_waste_formatted": formatCost(totalWaste),
					"total_annual_waste_formatted":  formatCost(totalWaste * 12),
					"unattached_disks":              unattached,
					"cold_storage_accounts":         coldAccounts,
					"tiering_opportunities_count":   len(coldAccounts),
				}, nil
			},
		),
	}
}
