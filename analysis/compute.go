package analysis

import (
	"context"

	"github.com/hupe1980/costmesh/capability"
)

// smallerSizes maps each VM size to the next size down. Sizes with no entry
// have no recommended downsize target.
var smallerSizes = map[string]string{
	"Standard_D16s_v3": "Standard_D8s_v3",
	"Standard_D8s_v3":  "Standard_D4s_v3",
	"Standard_D4s_v3":  "Standard_D2s_v3",
	"Standard_D2s_v3":  "Standard_B2s",
	"Standard_E16s_v3": "Standard_E8s_v3",
	"Standard_E8s_v3":  "Standard_E4s_v3",
	"Standard_E4s_v3":  "Standard_E2s_v3",
	"Standard_F16s_v2": "Standard_F8s_v2",
	"Standard_F8s_v2":  "Standard_F4s_v2",
	"Standard_F4s_v2":  "Standard_F2s_v2",
}

// suggestSmallerSize picks a downsize target; severe underutilization drops
// two sizes when the chain allows it.
func suggestSmallerSize(currentSize string, cpuAvg float64) string {
	smaller, ok := smallerSizes[currentSize]
	if !ok {
		return currentSize
	}
	if cpuAvg < 10 {
		if evenSmaller, ok := smallerSizes[smaller]; ok {
			return evenSmaller
		}
	}
	return smaller
}

func utilizationAdvice(cpuAvg float64, monthlyCost float64) (recommendation string, potentialSavings float64) {
	switch {
	case cpuAvg < 10:
		return "HIGH PRIORITY: VM is severely underutilized. Consider shutting down or significant downsizing.", monthlyCost * 0.75
	case cpuAvg < 20:
		return "MEDIUM PRIORITY: VM is underutilized. Consider downsizing to smaller size.", monthlyCost * 0.40
	case cpuAvg < 40:
		return "LOW PRIORITY: VM has headroom. Monitor and consider downsizing if pattern continues.", monthlyCost * 0.25
	default:
		return "Optimally sized. No action needed.", 0
	}
}

// ComputeCapabilities returns the compute specialist's capability set.
func ComputeCapabilities(client CloudClient) []capability.Capability {
	groupParam := map[string]any{
		"type":        "string",
		"description": "Resource group to filter by. Omit to include all resource groups.",
	}

	return []capability.Capability{
		capability.NewFunction(
			"list_vms",
			"List all virtual machines with size, location and estimated monthly cost.",
			map[string]any{
				"type":       "object",
				"properties": map[string]any{"resource_group": groupParam},
			},
			func(ctx context.Context, args map[string]any) (any, error) {
				group, _ := args["resource_group"].(string)
				vms, err := client.ListVMs(ctx, group)
				if err != nil {
					return nil, err
				}

				var totalCost float64
				items := make([]map[string]any, 0, len(vms))
				for _, vm := range vms {
					cost := vmMonthlyCost(vm.Size)
					totalCost += cost
					items = append(items, map[string]any{
						"name":                   vm.Name,
						"resource_group":         vm.ResourceGroup,
						"location":               vm.Location,
						"size":                   vm.Size,
						"os_type":                vm.OSType,
						"power_state":            vm.PowerState,
						"monthly_cost_usd":       round2(cost),
						"monthly_cost_formatted": formatCost(cost),
					})
				}
				return map[string]any{
					"total_vms":                    len(items),
					"total_monthly_cost":           round2(totalCost),
					"total_monthly_cost_formatted": formatCost(totalCost),
					"vms":                          items,
				}, nil
			},
		),

		capability.NewFunction(
			"get_vm_metrics",
			"Get CPU utilization metrics for virtual machines with per-VM cost and optimization advice.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"resource_group": groupParam,
					"vm_name": map[string]any{
						"type":        "string",
						"description": "Restrict the report to one VM by name.",
					},
				},
			},
			func(ctx context.Context, args map[string]any) (any, error) {
				group, _ := args["resource_group"].(string)
				name, _ := args["vm_name"].(string)

				vms, err := client.ListVMs(ctx, group)
				if err != nil {
					return nil, err
				}

				var totalCost, totalSavings float64
				underutilized := 0
				items := make([]map[string]any, 0, len(vms))
				for _, vm := range vms {
					if name != "" && vm.Name != name {
						continue
					}
					cost := vmMonthlyCost(vm.Size)
					recommendation, savings := utilizationAdvice(vm.CPUAverage, cost)
					totalCost += cost
					totalSavings += savings
					if vm.CPUAverage < 20 {
						underutilized++
					}
					items = append(items, map[string]any{
						"name":                        vm.Name,
						"resource_group":              vm.ResourceGroup,
						"size":                        vm.Size,
						"cpu_average_percent":         round2(vm.CPUAverage),
						"cpu_max_percent":             round2(vm.CPUMax),
						"monthly_cost_usd":            round2(cost),
						"is_underutilized":            vm.CPUAverage < 20,
						"recommendation":              recommendation,
						"potential_monthly_savings":   round2(savings),
						"potential_savings_formatted": formatCost(savings),
					})
				}
				return map[string]any{
					"vms_analyzed":                      len(items),
					"underutilized_vms":                 underutilized,
					"total_monthly_cost":                round2(totalCost),
					"total_potential_savings":           round2(totalSavings),
					"total_potential_savings_formatted": formatCost(totalSavings),
					"vms":                               items,
				}, nil
			},
		),

		capability.NewFunction(
			"get_vm_right_sizing_recommendations",
			"Analyze VM utilization and recommend specific smaller sizes with projected savings.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"resource_group": groupParam,
					"cpu_threshold": map[string]any{
						"type":        "number",
						"description": "CPU utilization percentage below which to recommend downsizing. Default 20.",
					},
				},
			},
			func(ctx context.Context, args map[string]any) (any, error) {
				group, _ := args["resource_group"].(string)
				threshold, ok := args["cpu_threshold"].(float64)
				if !ok {
					threshold = 20.0
				}

				vms, err := client.ListVMs(ctx, group)
				if err != nil {
					return nil, err
				}

				var totalSavings float64
				recs := make([]map[string]any, 0, len(vms))
				for _, vm := range vms {
					if vm.CPUAverage >= threshold {
						continue
					}
					recommended := suggestSmallerSize(vm.Size, vm.CPUAverage)
					currentCost := vmMonthlyCost(vm.Size)
					newCost := vmMonthlyCost(recommended)
					savings := currentCost - newCost
					totalSavings += savings

					riskLevel := "Medium"
					if vm.CPUAverage < 10 {
						riskLevel = "Low"
					}
					recs = append(recs, map[string]any{
						"vm_name":                  vm.Name,
						"resource_group":           vm.ResourceGroup,
						"current_size":             vm.Size,
						"recommended_size":         recommended,
						"current_cpu_avg":          round2(vm.CPUAverage),
						"current_monthly_cost":     formatCost(currentCost),
						"recommended_monthly_cost": formatCost(newCost),
						"monthly_savings":          formatCost(savings),
						"annual_savings":           formatCost(savings * 12),
						"risk_level":               riskLevel,
						"estimated_downtime":       "5-10 minutes",
					})
				}
				return map[string]any{
					"recommendations_count": len(recs),
					"total_monthly_savings": formatCost(totalSavings),
					"total_annual_savings":  formatCost(totalSavings * 12),
					"recommendations":       recs,
				}, nil
			},
		),
	}
}
