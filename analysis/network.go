package analysis

import (
	"context"

	"github.com/hupe1980/costmesh/capability"
)

// publicIPMonthlyCost estimates the monthly cost of a reserved public IP.
func publicIPMonthlyCost(sku string) float64 {
	if sku == "Standard" {
		return 3.65
	}
	return 2.92 // Basic
}

// NetworkCapabilities returns the network specialist's capability set.
func NetworkCapabilities(client CloudClient) []capability.Capability {
	groupParam := map[string]any{
		"type":        "string",
		"description": "Resource group to filter by. Omit to include all resource groups.",
	}

	return []capability.Capability{
		capability.NewFunction(
			"list_public_ips",
			"List reserved public IP addresses with attachment status and monthly cost.",
			map[string]any{
				"type":       "object",
				"properties": map[string]any{"resource_group": groupParam},
			},
			func(ctx context.Context, args map[string]any) (any, error) {
				group, _ := args["resource_group"].(string)
				ips, err := client.ListPublicIPs(ctx, group)
				if err != nil {
					return nil, err
				}

				var totalCost float64
				items := make([]map[string]any, 0, len(ips))
				for _, ip := range ips {
					cost := publicIPMonthlyCost(ip.SKU)
					totalCost += cost
					items = append(items, map[string]any{
						"name":                   ip.Name,
						"resource_group":         ip.ResourceGroup,
						"location":               ip.Location,
						"sku":                    ip.SKU,
						"attached_to":            ip.AttachedTo,
						"is_orphaned":            ip.AttachedTo == "",
						"monthly_cost_usd":       round2(cost),
						"monthly_cost_formatted": formatCost(cost),
					})
				}
				return map[string]any{
					"total_public_ips":             len(items),
					"total_monthly_cost":           round2(totalCost),
					"total_monthly_cost_formatted": formatCost(totalCost),
					"public_ips":                   items,
				}, nil
			},
		),

		capability.NewFunction(
			"find_orphaned_resources",
			"Find network resources that cost money but serve nothing: unattached public IPs and unattached disks.",
			map[string]any{
				"type":       "object",
				"properties": map[string]any{"resource_group": groupParam},
			},
			func(ctx context.Context, args map[string]any) (any, error) {
				group, _ := args["resource_group"].(string)

				ips, err := client.ListPublicIPs(ctx, group)
				if err != nil {
					return nil, err
				}
				disks, err := client.ListDisks(ctx, group)
				if err != nil {
					return nil, err
				}

				var totalWaste float64
				orphaned := make([]map[string]any, 0)
				for _, ip := range ips {
					if ip.AttachedTo != "" {
						continue
					}
					cost := publicIPMonthlyCost(ip.SKU)
					totalWaste += cost
					orphaned = append(orphaned, map[string]any{
						"type":                   "public_ip",
						"name":                   ip.Name,
						"resource_group":         ip.ResourceGroup,
						"monthly_cost_usd":       round2(cost),
						"monthly_cost_formatted": formatCost(cost),
						"recommendation":         "Release this unattached public IP address.",
					})
				}
				for _, disk := range disks {
					if disk.AttachedTo != "" {
						continue
					}
					cost := diskMonthlyCost(disk.SKU, disk.SizeGB)
					totalWaste += cost
					orphaned = append(orphaned, map[string]any{
						"type":                   "managed_disk",
						"name":                   disk.Name,
						"resource_group":         disk.ResourceGroup,
						"monthly_cost_usd":       round2(cost),
						"monthly_cost_formatted": formatCost(cost),
						"recommendation":         "Delete this unattached managed disk.",
					})
				}

				return map[string]any{
					"orphaned_resources_count":      len(orphaned),
					"total_monthly_waste":           round2(totalWaste),
					"total_monthly_waste_formatted": formatCost(totalWaste),
					"total_annual_waste_formatted":  formatCost(totalWaste * 12),
					"orphaned_resources":            orphaned,
				}, nil
			},
		),
	}
}
