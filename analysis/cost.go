package analysis

import (
	"context"
	"sort"

	"github.com/hupe1980/costmesh/capability"
)

// CostCapabilities returns the cost analysis specialist's capability set.
func CostCapabilities(client CloudClient) []capability.Capability {
	return []capability.Capability{
		capability.NewFunction(
			"analyze_costs",
			"Break down current monthly spend by service and by resource group, highlighting the largest cost drivers.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"group_by": map[string]any{
						"type":        "string",
						"description": "Dimension to group spend by: 'service' or 'resource_group'. Default 'service'.",
					},
				},
			},
			func(ctx context.Context, args map[string]any) (any, error) {
				groupBy, _ := args["group_by"].(string)
				if groupBy == "" {
					groupBy = "service"
				}

				entries, err := client.CostEntries(ctx)
				if err != nil {
					return nil, err
				}

				keyOf := func(e CostEntry) string { return e.Service }
				if groupBy == "resource_group" {
					keyOf = func(e CostEntry) string { return e.ResourceGroup }
				}

				totals := make(map[string]float64)
				var grandTotal float64
				for _, e := range entries {
					totals[keyOf(e)] += e.MonthlyUSD
					grandTotal += e.MonthlyUSD
				}

				type bucket struct {
					key  string
					cost float64
				}
				buckets := make([]bucket, 0, len(totals))
				for key, cost := range totals {
					buckets = append(buckets, bucket{key: key, cost: cost})
				}
				sort.Slice(buckets, func(i, j int) bool { return buckets[i].cost > buckets[j].cost })

				items := make([]map[string]any, 0, len(buckets))
				for _, b := range buckets {
					percent := 0.0
					if grandTotal > 0 {
						percent = b.cost / grandTotal * 100
					}
					items = append(items, map[string]any{
						groupBy:                  b.key,
						"monthly_cost_usd":       round2(b.cost),
						"monthly_cost_formatted": formatCost(b.cost),
						"percent_of_total":       round2(percent),
					})
				}

				result := map[string]any{
					"grouped_by":                   groupBy,
					"total_monthly_cost":           round2(grandTotal),
					"total_monthly_cost_formatted": formatCost(grandTotal),
					"breakdown":                    items,
				}
				if len(buckets) > 0 {
					result["largest_cost_driver"] = buckets[0].key
				}
				return result, nil
			},
		),
	}
}
