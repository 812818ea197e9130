package analysis

import (
	"context"
	"sort"

	"github.com/hupe1980/costmesh/capability"
)

// RecommendationCapabilities returns the recommendation specialist's
// capability set. It aggregates the waste signals the other specialists
// detect individually into one prioritized plan.
func RecommendationCapabilities(client CloudClient) []capability.Capability {
	return []capability.Capability{
		capability.NewFunction(
			"generate_recommendations",
			"Aggregate all cost optimization findings across compute, storage, network and databases into a prioritized recommendation list.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"min_monthly_savings": map[string]any{
						"type":        "number",
						"description": "Drop recommendations saving less than this amount per month. Default 0.",
					},
				},
			},
			func(ctx context.Context, args map[string]any) (any, error) {
				minSavings, _ := args["min_monthly_savings"].(float64)

				recs, err := collectRecommendations(ctx, client)
				if err != nil {
					return nil, err
				}

				filtered := make([]recommendation, 0, len(recs))
				var totalSavings float64
				for _, rec := range recs {
					if rec.MonthlySavings < minSavings {
						continue
					}
					filtered = append(filtered, rec)
					totalSavings += rec.MonthlySavings
				}
				sort.Slice(filtered, func(i, j int) bool {
					return filtered[i].MonthlySavings > filtered[j].MonthlySavings
				})

				items := make([]map[string]any, 0, len(filtered))
				for i, rec := range filtered {
					items = append(items, map[string]any{
						"rank":                      i + 1,
						"category":                  rec.Category,
						"resource":                  rec.Resource,
						"action":                    rec.Action,
						"monthly_savings_usd":       round2(rec.MonthlySavings),
						"monthly_savings_formatted": formatCost(rec.MonthlySavings),
						"annual_savings_formatted":  formatCost(rec.MonthlySavings * 12),
					})
				}
				return map[string]any{
					"recommendations_count":           len(items),
					"total_monthly_savings":           round2(totalSavings),
					"total_monthly_savings_formatted": formatCost(totalSavings),
					"total_annual_savings_formatted":  formatCost(totalSavings * 12),
					"recommendations":                 items,
				}, nil
			},
		),

		capability.NewFunction(
			"calculate_roi",
			"Calculate the return on investment for implementing an optimization: payback period and first-year net savings.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"monthly_savings": map[string]any{
						"type":        "number",
						"description": "Projected savings per month in USD.",
					},
					"implementation_hours": map[string]any{
						"type":        "number",
						"description": "Estimated engineering hours to implement the change.",
					},
					"hourly_rate": map[string]any{
						"type":        "number",
						"description": "Loaded engineering cost per hour in USD. Default 120.",
					},
				},
				"required": []string{"monthly_savings", "implementation_hours"},
			},
			func(_ context.Context, args map[string]any) (any, error) {
				monthlySavings, _ := args["monthly_savings"].(float64)
				hours, _ := args["implementation_hours"].(float64)
				rate, ok := args["hourly_rate"].(float64)
				if !ok {
					rate = 120
				}

				implementationCost := hours * rate
				firstYearNet := monthlySavings*12 - implementationCost

				result := map[string]any{
					"monthly_savings_usd":        round2(monthlySavings),
					"implementation_cost_usd":    round2(implementationCost),
					"first_year_net_savings_usd": round2(firstYearNet),
					"first_year_net_formatted":   formatCost(firstYearNet),
					"worth_implementing":         firstYearNet > 0,
				}
				if monthlySavings > 0 {
					result["payback_period_months"] = round2(implementationCost / monthlySavings)
				}
				return result, nil
			},
		),
	}
}

type recommendation struct {
	Category       string
	Resource       string
	Action         string
	MonthlySavings float64
}

// collectRecommendations walks the full inventory and emits one entry per
// detected waste signal, mirroring what the per-domain capabilities report.
func collectRecommendations(ctx context.Context, client CloudClient) ([]recommendation, error) {
	var recs []recommendation

	vms, err := client.ListVMs(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, vm := range vms {
		if vm.CPUAverage >= 20 {
			continue
		}
		recommended := suggestSmallerSize(vm.Size, vm.CPUAverage)
		savings := vmMonthlyCost(vm.Size) - vmMonthlyCost(recommended)
		recs = append(recs, recommendation{
			Category:       "compute",
			Resource:       vm.Name,
			Action:         "Resize from " + vm.Size + " to " + recommended,
			MonthlySavings: savings,
		})
	}

	disks, err := client.ListDisks(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, disk := range disks {
		if disk.AttachedTo != "" {
			continue
		}
		recs = append(recs, recommendation{
			Category:       "storage",
			Resource:       disk.Name,
			Action:         "Delete unattached managed disk",
			MonthlySavings: diskMonthlyCost(disk.SKU, disk.SizeGB),
		})
	}

	accounts, err := client.ListStorageAccounts(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, acct := range accounts {
		if acct.AccessTier != "Hot" || acct.LastAccessDays < 30 {
			continue
		}
		savings := storageAccountMonthlyCost(acct.SKU, acct.UsedGB) - coolTierRate*acct.UsedGB
		recs = append(recs, recommendation{
			Category:       "storage",
			Resource:       acct.Name,
			Action:         "Move infrequently accessed data to the Cool tier",
			MonthlySavings: savings,
		})
	}

	ips, err := client.ListPublicIPs(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, ip := range ips {
		if ip.AttachedTo != "" {
			continue
		}
		recs = append(recs, recommendation{
			Category:       "network",
			Resource:       ip.Name,
			Action:         "Release unattached public IP address",
			MonthlySavings: publicIPMonthlyCost(ip.SKU),
		})
	}

	dbs, err := client.ListDatabases(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, db := range dbs {
		if db.DTUAverage >= 30 {
			continue
		}
		factor := 0.40
		action := "Scale down one tier"
		if db.DTUAverage < 10 {
			factor = 0.70
			action = "Move nearly idle database to a lower tier or serverless"
		}
		recs = append(recs, recommendation{
			Category:       "database",
			Resource:       db.Server + "/" + db.Name,
			Action:         action,
			MonthlySavings: databaseMonthlyCost(db) * factor,
		})
	}

	return recs, nil
}
