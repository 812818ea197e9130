package analysis

import (
	"context"

	"github.com/hupe1980/costmesh/capability"
)

// databaseMonthlyCost estimates monthly cost from kind and tier.
func databaseMonthlyCost(db Database) float64 {
	if db.Kind == "cosmosdb" {
		// Roughly 400 RU/s provisioned throughput plus storage.
		return 23.36 + db.StorageGB*0.25
	}
	sqlTiers := map[string]float64{
		"Basic": 4.90,
		"S0":    14.72,
		"S1":    29.43,
		"S2":    73.58,
		"S3":    147.16,
		"P1":    457.00,
	}
	cost, ok := sqlTiers[db.Tier]
	if !ok {
		cost = 14.72
	}
	return cost
}

// DatabaseCapabilities returns the database specialist's capability set.
func DatabaseCapabilities(client CloudClient) []capability.Capability {
	groupParam := map[string]any{
		"type":        "string",
		"description": "Resource group to filter by. Omit to include all resource groups.",
	}

	return []capability.Capability{
		capability.NewFunction(
			"list_databases",
			"List managed databases (SQL and Cosmos DB) with tier, storage and estimated monthly cost.",
			map[string]any{
				"type":       "object",
				"properties": map[string]any{"resource_group": groupParam},
			},
			func(ctx context.Context, args map[string]any) (any, error) {
				group, _ := args["resource_group"].(string)
				dbs, err := client.ListDatabases(ctx, group)
				if err != nil {
					return nil, err
				}

				var totalCost float64
				items := make([]map[string]any, 0, len(dbs))
				for _, db := range dbs {
					cost := databaseMonthlyCost(db)
					totalCost += cost
					items = append(items, map[string]any{
						"name":                   db.Name,
						"server":                 db.Server,
						"resource_group":         db.ResourceGroup,
						"kind":                   db.Kind,
						"tier":                   db.Tier,
						"storage_gb":             round2(db.StorageGB),
						"monthly_cost_usd":       round2(cost),
						"monthly_cost_formatted": formatCost(cost),
					})
				}
				return map[string]any{
					"total_databases":              len(items),
					"total_monthly_cost":           round2(totalCost),
					"total_monthly_cost_formatted": formatCost(totalCost),
					"databases":                    items,
				}, nil
			},
		),

		capability.NewFunction(
			"get_database_metrics",
			"Analyze database utilization and flag over-provisioned tiers with projected savings.",
			map[string]any{
				"type":       "object",
				"properties": map[string]any{"resource_group": groupParam},
			},
			func(ctx context.Context, args map[string]any) (any, error) {
				group, _ := args["resource_group"].(string)
				dbs, err := client.ListDatabases(ctx, group)
				if err != nil {
					return nil, err
				}

				var totalSavings float64
				overProvisioned := 0
				items := make([]map[string]any, 0, len(dbs))
				for _, db := range dbs {
					cost := databaseMonthlyCost(db)

					recommendation := "Utilization is healthy. No action needed."
					var savings float64
					switch {
					case db.DTUAverage < 10:
						recommendation = "HIGH PRIORITY: Database is nearly idle. Consider a lower tier or serverless."
						savings = cost * 0.70
					case db.DTUAverage < 30:
						recommendation = "MEDIUM PRIORITY: Database is over-provisioned. Consider scaling down one tier."
						savings = cost * 0.40
					}
					if savings > 0 {
						overProvisioned++
					}
					totalSavings += savings

					items = append(items, map[string]any{
						"name":                        db.Name,
						"server":                      db.Server,
						"kind":                        db.Kind,
						"tier":                        db.Tier,
						"utilization_percent":         round2(db.DTUAverage),
						"monthly_cost_usd":            round2(cost),
						"recommendation":              recommendation,
						"potential_monthly_savings":   round2(savings),
						"potential_savings_formatted": formatCost(savings),
					})
				}
				return map[string]any{
					"databases_analyzed":                len(items),
					"over_provisioned_count":            overProvisioned,
					"total_potential_savings":           round2(totalSavings),
					"total_potential_savings_formatted": formatCost(totalSavings),
					"databases":                         items,
				}, nil
			},
		),
	}
}
