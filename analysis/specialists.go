package analysis

import (
	"github.com/hupe1980/costmesh/a2a"
	"github.com/hupe1980/costmesh/capability"
)

// Specialist bundles one domain agent's identity, instruction text and
// capability set, ready to be wrapped in an executor and served.
type Specialist struct {
	Card         a2a.AgentCard
	Instructions string
	Capabilities []capability.Capability
}

// Specialists returns the full roster of domain agents over the given cloud
// client: compute, storage, network, database, cost analysis and
// recommendation.
func Specialists(client CloudClient) []Specialist {
	return []Specialist{
		{
			Card: a2a.AgentCard{
				Name:        "Compute Optimization Agent",
				Description: "Analyzes virtual machine utilization and cost, and recommends right-sizing actions.",
				Version:     "1.0.0",
				Skills: []a2a.AgentSkill{
					{
						ID:          "analyze_vm_metrics",
						Name:        "Analyze VM Performance Metrics",
						Description: "Analyzes VM CPU utilization to identify optimization opportunities.",
						Tags:        []string{"compute", "vm", "metrics"},
						Examples:    []string{"Show me underutilized VMs in the production resource group"},
					},
					{
						ID:          "vm_right_sizing",
						Name:        "VM Right-Sizing Recommendations",
						Description: "Recommends specific smaller VM sizes with projected savings and risk levels.",
						Tags:        []string{"compute", "vm", "rightsizing", "cost"},
						Examples:    []string{"Which VMs can be downsized to save money?"},
					},
					{
						ID:          "list_vm_inventory",
						Name:        "List VM Inventory",
						Description: "Lists all VMs with sizes, locations and monthly cost estimates.",
						Tags:        []string{"compute", "vm", "inventory"},
						Examples:    []string{"List all VMs with their costs"},
					},
				},
			},
			Instructions: `You are a cloud compute optimization specialist analyzing virtual
machines for cost savings.

Use your functions to fetch real inventory and metrics before answering;
never invent resource names, utilization numbers or costs. When asked to
list resources, report the count and the per-resource details your
functions return. When recommending changes, include projected savings
and the risk level.`,
			Capabilities: ComputeCapabilities(client),
		},
		{
			Card: a2a.AgentCard{
				Name:        "Storage Optimization Agent",
				Description: "Finds wasted storage spend: unattached disks, oversized accounts and tiering opportunities.",
				Version:     "1.0.0",
				Skills: []a2a.AgentSkill{
					{
						ID:          "storage_inventory",
						Name:        "Storage Account Inventory",
						Description: "Lists storage accounts with capacity, tier and monthly cost.",
						Tags:        []string{"storage", "inventory", "cost"},
						Examples:    []string{"List my storage accounts with costs"},
					},
					{
						ID:          "storage_waste",
						Name:        "Storage Waste Detection",
						Description: "Detects unattached managed disks and cold data on hot tiers.",
						Tags:        []string{"storage", "disks", "tiering", "waste"},
						Examples:    []string{"Find unattached disks I am paying for"},
					},
				},
			},
			Instructions: `You are a cloud storage optimization specialist hunting for wasted
storage spend.

Use your functions to fetch the actual storage inventory before
answering; never invent disk names, sizes or costs. Prioritize findings
by monthly waste and state the concrete action for each one.`,
			Capabilities: StorageCapabilities(client),
		},
		{
			Card: a2a.AgentCard{
				Name:        "Network Optimization Agent",
				Description: "Finds orphaned network resources such as unattached public IP addresses.",
				Version:     "1.0.0",
				Skills: []a2a.AgentSkill{
					{
						ID:          "network_inventory",
						Name:        "Public IP Inventory",
						Description: "Lists reserved public IP addresses with attachment status and cost.",
						Tags:        []string{"network", "ip", "inventory"},
						Examples:    []string{"List my public IP addresses"},
					},
					{
						ID:          "orphaned_resources",
						Name:        "Orphaned Resource Detection",
						Description: "Finds network resources that cost money but serve nothing.",
						Tags:        []string{"network", "orphaned", "waste"},
						Examples:    []string{"Find orphaned resources in my subscription"},
					},
				},
			},
			Instructions: `You are a cloud network optimization specialist finding network
resources that cost money without serving traffic.

Use your functions to fetch the actual inventory before answering; never
invent resource names or costs. Report each orphaned resource with its
monthly cost and the action to reclaim it.`,
			Capabilities: NetworkCapabilities(client),
		},
		{
			Card: a2a.AgentCard{
				Name:        "Database Optimization Agent",
				Description: "Analyzes managed database utilization and flags over-provisioned tiers.",
				Version:     "1.0.0",
				Skills: []a2a.AgentSkill{
					{
						ID:          "database_inventory",
						Name:        "Database Inventory",
						Description: "Lists SQL and Cosmos DB databases with tier, storage and monthly cost.",
						Tags:        []string{"database", "sql", "cosmosdb", "inventory"},
						Examples:    []string{"List my databases with costs"},
					},
					{
						ID:          "database_utilization",
						Name:        "Database Utilization Analysis",
						Description: "Flags over-provisioned databases with projected savings from scaling down.",
						Tags:        []string{"database", "utilization", "cost"},
						Examples:    []string{"Which databases are over-provisioned?"},
					},
				},
			},
			Instructions: `You are a cloud database optimization specialist analyzing managed
database utilization.

Use your functions to fetch the actual inventory and utilization before
answering; never invent database names, tiers or costs. For each
over-provisioned database, state the current tier, the utilization and
the projected monthly savings.`,
			Capabilities: DatabaseCapabilities(client),
		},
		{
			Card: a2a.AgentCard{
				Name:        "Cost Analysis Agent",
				Description: "Breaks down cloud spend by service and resource group and identifies the largest cost drivers.",
				Version:     "1.0.0",
				Skills: []a2a.AgentSkill{
					{
						ID:          "cost_breakdown",
						Name:        "Spend Breakdown",
						Description: "Breaks down monthly spend by service or resource group with percentages.",
						Tags:        []string{"cost", "billing", "analysis"},
						Examples:    []string{"What are my biggest cost drivers this month?"},
					},
				},
			},
			Instructions: `You are a cloud cost analysis specialist explaining where the money
goes.

Use your function to fetch the actual spend breakdown before answering;
never invent amounts. Lead with the total and the largest cost driver,
then the ranked breakdown with percentages.`,
			Capabilities: CostCapabilities(client),
		},
		{
			Card: a2a.AgentCard{
				Name:        "Recommendation Agent",
				Description: "Aggregates findings across all domains into a prioritized cost optimization plan with ROI estimates.",
				Version:     "1.0.0",
				Skills: []a2a.AgentSkill{
					{
						ID:          "prioritized_plan",
						Name:        "Prioritized Optimization Plan",
						Description: "Aggregates compute, storage, network and database findings ranked by savings.",
						Tags:        []string{"recommendation", "aggregation", "savings"},
						Examples:    []string{"Give me a prioritized cost optimization plan"},
					},
					{
						ID:          "roi_analysis",
						Name:        "ROI Analysis",
						Description: "Calculates payback period and first-year net savings for an optimization.",
						Tags:        []string{"recommendation", "roi"},
						Examples:    []string{"Is it worth spending 8 hours to save $200 a month?"},
					},
				},
			},
			Instructions: `You are a cloud cost optimization advisor producing a single
prioritized plan from findings across compute, storage, network and
databases.

Use your functions to aggregate the actual findings before answering;
never invent savings figures. Rank recommendations by monthly savings,
include the total, and note the ROI when implementation effort is
discussed.`,
			Capabilities: RecommendationCapabilities(client),
		},
	}
}
