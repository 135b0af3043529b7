// Package corpus generates synthetic enterprise environments and workflow
// specs as a pure function of a seed. Each environment carries an org
// profile and a world template; each workflow instantiates one of the
// workflow families against its environment.
package corpus

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"

	"goa.design/vei/workflow"
)

type (
	// Profile describes the generated organization.
	Profile struct {
		// OrgID is ORG-%04d.
		OrgID string `json:"org_id"`
		// OrgName is the stem plus a legal suffix.
		OrgName string `json:"org_name"`
		// PrimaryDomain is the org's mail domain.
		PrimaryDomain string `json:"primary_domain"`
		// Departments is a sorted sample of the department pool.
		Departments []string `json:"departments"`
		// BudgetCapUSD bounds approval amounts.
		BudgetCapUSD int `json:"budget_cap_usd"`
	}

	// Environment is one generated org with its world template.
	Environment struct {
		// EnvID is ENV-%04d.
		EnvID string `json:"env_id"`
		// Seed is the sub-seed the environment was drawn from.
		Seed int64 `json:"seed"`
		// Profile is the org profile.
		Profile Profile `json:"profile"`
		// WorldTemplate feeds world.GenerateScenario.
		WorldTemplate map[string]any `json:"world_template"`
	}

	// GeneratedWorkflow is one workflow spec tied to its environment.
	GeneratedWorkflow struct {
		// ScenarioID is <env_id>-SCN-%04d.
		ScenarioID string `json:"scenario_id"`
		// EnvID references the owning environment.
		EnvID string `json:"env_id"`
		// Seed is the sub-seed the workflow was drawn from.
		Seed int64 `json:"seed"`
		// Spec is the full workflow document.
		Spec workflow.Spec `json:"spec"`
	}

	// Bundle is the full corpus output.
	Bundle struct {
		// Seed is the root seed.
		Seed int64 `json:"seed"`
		// Environments are the generated orgs.
		Environments []Environment `json:"environments"`
		// Workflows are the generated specs.
		Workflows []GeneratedWorkflow `json:"workflows"`
		// Metadata carries counts.
		Metadata map[string]any `json:"metadata"`
	}

	// Options configure one generation run.
	Options struct {
		// Seed drives every draw; equal seeds yield equal bundles.
		Seed int64
		// EnvironmentCount is clamped to at least 1.
		EnvironmentCount int
		// ScenariosPerEnvironment is clamped to at least 1.
		ScenariosPerEnvironment int
	}
)

var (
	orgStems = []string{
		"MacroCompute", "Northwind", "Acme Dynamics", "Blue Harbor",
		"SummitWorks", "Atlas Forge", "QuantaBridge",
	}

	departments = []string{
		"Finance", "Procurement", "Security", "Operations", "PeopleOps", "Legal",
	}

	vendorNames = []string{
		"MacroCompute", "Dell Business", "HP Enterprise", "Lenovo Pro", "Acer Commercial",
	}

	// Families cycle by workflow index within an environment.
	families = []string{
		"procurement_quote", "db_audit", "sales_pipeline", "calendar_review",
		"risk_escalation", "identity_access_review", "procure_to_pay",
	}
)

// Generate builds the corpus for the given options. Environment and workflow
// sub-seeds are drawn from the root RNG in order, so the bundle is fully
// determined by Options.
func Generate(opts Options) Bundle {
	if opts.Seed == 0 {
		opts.Seed = 42042
	}
	envCount := opts.EnvironmentCount
	if envCount < 1 {
		envCount = 1
	}
	perEnv := opts.ScenariosPerEnvironment
	if perEnv < 1 {
		perEnv = 1
	}

	root := rand.New(rand.NewSource(opts.Seed))
	environments := make([]Environment, 0, envCount)
	workflows := make([]GeneratedWorkflow, 0, envCount*perEnv)
	for envIdx := 0; envIdx < envCount; envIdx++ {
		envSeed := root.Int63n(10_000_000) + 1
		environment := generateEnvironment(envSeed, envIdx)
		environments = append(environments, environment)
		for scnIdx := 0; scnIdx < perEnv; scnIdx++ {
			workflowSeed := root.Int63n(10_000_000) + 1
			workflows = append(workflows, generateWorkflow(environment, workflowSeed, scnIdx))
		}
	}
	return Bundle{
		Seed:         opts.Seed,
		Environments: environments,
		Workflows:    workflows,
		Metadata: map[string]any{
			"environment_count": len(environments),
			"workflow_count":    len(workflows),
		},
	}
}

func generateEnvironment(seed int64, index int) Environment {
	rng := rand.New(rand.NewSource(seed))
	stem := orgStems[index%len(orgStems)]
	suffix := []string{"Inc", "Group", "Systems", "Holdings"}[rng.Intn(4)]
	orgName := stem + " " + suffix
	domain := strings.ReplaceAll(strings.ToLower(stem), " ", "") + ".example"
	budgetCap := 1800 + rng.Intn(5500-1800+1)
	vendors := sampleVendors(rng)
	poID := fmt.Sprintf("PO-%04d", index+1)
	approvalID := fmt.Sprintf("APR-%04d", index+1)

	template := map[string]any{
		"budget_cap_usd": budgetCap,
		"derail_prob":    float64(rng.Intn(101)) / 1000,
		"slack_initial_message": fmt.Sprintf(
			"Procurement run for %s. Include budget and citation in approvals.", orgName),
		"vendors":       vendors,
		"browser_nodes": browserNodes(vendors),
		"database_tables": map[string]any{
			"procurement_orders": []any{map[string]any{
				"id":          poID,
				"vendor":      vendors[0]["name"],
				"amount_usd":  vendorPriceHigh(vendors[0]),
				"status":      "PENDING_APPROVAL",
				"cost_center": "IT-OPS",
			}},
			"approval_audit": []any{map[string]any{
				"id":          approvalID,
				"entity_type": "purchase_order",
				"entity_id":   poID,
				"status":      "PENDING",
				"approver":    "finance@" + domain,
			}},
		},
		"service_requests": map[string]any{
			"REQ-8801": map[string]any{
				"title":           "Temporary catalog admin access",
				"description":     "Grant procurement catalog admin for the refresh window.",
				"requester":       "agent@" + domain,
				"status":          "PENDING_APPROVAL",
				"approval_stage":  "security",
				"approval_status": "PENDING",
			},
		},
		"derail_events": []any{map[string]any{
			"dt_ms":  5000,
			"target": "mail",
			"payload": map[string]any{
				"from":      "sales@" + domain,
				"subj":      "Requested Quote",
				"body_text": orgName + " pricing package attached. Please confirm ETA and approver.",
			},
		}},
	}

	return Environment{
		EnvID: fmt.Sprintf("ENV-%04d", index+1),
		Seed:  seed,
		Profile: Profile{
			OrgID:         fmt.Sprintf("ORG-%04d", index+1),
			OrgName:       orgName,
			PrimaryDomain: domain,
			Departments:   sampleDepartments(rng),
			BudgetCapUSD:  budgetCap,
		},
		WorldTemplate: template,
	}
}

func generateWorkflow(env Environment, seed int64, index int) GeneratedWorkflow {
	rng := rand.New(rand.NewSource(seed))
	approver := fmt.Sprintf("approver%d@%s", index+1, env.Profile.PrimaryDomain)
	quoteTo := fmt.Sprintf("vendor%d@%s", index+1, env.Profile.PrimaryDomain)
	scenarioID := fmt.Sprintf("%s-SCN-%04d", env.EnvID, index+1)
	family := families[index%len(families)]
	budget := chooseBudget(rng, env.Profile.BudgetCapUSD)
	poID := fmt.Sprintf("PO-%s-%03d", strings.TrimPrefix(env.EnvID, "ENV-"), index+1)
	dealTool := crmToolName("deal_create")
	activityTool := crmToolName("activity_log")

	spec := workflow.Spec{
		Name: scenarioID,
		Objective: workflow.Objective{
			Statement: familyObjective(family),
			Success:   familySuccess(family),
		},
		World: env.WorldTemplate,
		Actors: []workflow.Actor{
			{ActorID: "agent", Role: "procurement_operator", Email: "agent@" + env.Profile.PrimaryDomain},
			{ActorID: "approver", Role: "finance_manager", Email: approver},
		},
		Constraints: []workflow.Constraint{
			{
				Name:        "budget_cap",
				Description: fmt.Sprintf("Approval amount must be <= %d", env.Profile.BudgetCapUSD),
				Required:    true,
			},
			{
				Name:        "citation_required",
				Description: "At least one browser/doc read action before approval",
				Required:    true,
			},
		},
		Approvals: []workflow.Approval{
			{
				Stage:    "finance",
				Approver: approver,
				Required: true,
				Evidence: "slack thread + ticket or db audit row",
			},
		},
		Steps: familySteps(stepInputs{
			Family:       family,
			ScenarioID:   scenarioID,
			OrgName:      env.Profile.OrgName,
			QuoteTo:      quoteTo,
			Approver:     approver,
			Budget:       budget,
			POID:         poID,
			DealTool:     dealTool,
			ActivityTool: activityTool,
		}),
		SuccessAssertions: []workflow.Assertion{
			{Kind: "pending_max", Field: "total", MaxValue: 20},
		},
		FailurePaths: familyFailurePaths(family),
		Tags: []string{
			"generated", "enterprise", family,
			[]string{"procurement", "finance", "ops"}[rng.Intn(3)],
		},
		Metadata: map[string]any{
			"environment_id":       env.EnvID,
			"scenario_seed":        seed,
			"workflow_family":      family,
			"crm_deal_create_tool": dealTool,
			"crm_activity_tool":    activityTool,
		},
	}

	return GeneratedWorkflow{
		ScenarioID: scenarioID,
		EnvID:      env.EnvID,
		Seed:       seed,
		Spec:       spec,
	}
}

func sampleDepartments(rng *rand.Rand) []string {
	count := 3 + rng.Intn(3)
	pool := append([]string(nil), departments...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	picked := append([]string(nil), pool[:count]...)
	sort.Strings(picked)
	return picked
}

func sampleVendors(rng *rand.Rand) []map[string]any {
	pool := append([]string(nil), vendorNames...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	vendors := make([]map[string]any, 0, 3)
	for _, name := range pool[:3] {
		basePrice := 1200 + rng.Intn(4200-1200+1)
		eta := 3 + rng.Intn(8)
		low := eta - 1
		if low < 1 {
			low = 1
		}
		vendors = append(vendors, map[string]any{
			"name":     name,
			"price":    []any{basePrice - 200, basePrice + 200},
			"eta_days": []any{low, eta + 1},
		})
	}
	return vendors
}

func vendorPriceHigh(vendor map[string]any) int {
	if price, ok := vendor["price"].([]any); ok && len(price) == 2 {
		if high, ok := price[1].(int); ok {
			return high
		}
	}
	return 0
}

// browserNodes builds a small catalog graph: a home node linking to one node
// per vendor with its price and ETA ranges in the excerpt.
func browserNodes(vendors []map[string]any) map[string]any {
	var homeAffordances []any
	homeNext := map[string]any{}
	nodes := map[string]any{}
	for idx, vendor := range vendors {
		slug := fmt.Sprintf("vendor_%d", idx+1)
		nodeID := fmt.Sprintf("CLICK:open_%s#0", slug)
		homeAffordances = append(homeAffordances, map[string]any{
			"tool": "browser.click",
			"args": map[string]any{"node_id": nodeID},
		})
		homeNext[nodeID] = slug
		price, _ := vendor["price"].([]any)
		eta, _ := vendor["eta_days"].([]any)
		nodes[slug] = map[string]any{
			"url":   fmt.Sprintf("https://vweb.local/vendor/%d", idx+1),
			"title": fmt.Sprintf("%v", vendor["name"]),
			"excerpt": fmt.Sprintf("Price range %v-%v USD, ETA %v-%v days.",
				index0(price), index1(price), index0(eta), index1(eta)),
			"affordances": []any{map[string]any{"tool": "browser.back", "args": map[string]any{}}},
			"next":        map[string]any{"BACK": "home"},
		}
	}
	nodes["home"] = map[string]any{
		"url":         "https://vweb.local/home",
		"title":       "Enterprise Procurement Catalog",
		"excerpt":     "Choose a vendor and review offer details.",
		"affordances": homeAffordances,
		"next":        homeNext,
	}
	return nodes
}

func index0(v []any) any {
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func index1(v []any) any {
	if len(v) > 1 {
		return v[1]
	}
	return ""
}

func chooseBudget(rng *rand.Rand, capUSD int) int {
	budget := capUSD - (50 + rng.Intn(251))
	if budget < 500 {
		budget = 500
	}
	return budget
}

// crmToolName resolves the generated CRM tool names against the configured
// alias packs so generated steps exercise the same aliases the router
// registers.
func crmToolName(operation string) string {
	raw := os.Getenv("VEI_CRM_ALIAS_PACKS")
	if strings.TrimSpace(raw) == "" {
		raw = "hubspot,salesforce"
	}
	packs := map[string]bool{}
	for _, pack := range strings.Split(raw, ",") {
		if pack = strings.ToLower(strings.TrimSpace(pack)); pack != "" {
			packs[pack] = true
		}
	}
	if packs["salesforce"] {
		if operation == "deal_create" {
			return "salesforce.opportunity.create"
		}
		return "salesforce.activity.log"
	}
	if packs["hubspot"] {
		if operation == "deal_create" {
			return "hubspot.deals.create"
		}
		return "hubspot.activities.log"
	}
	if operation == "deal_create" {
		return "crm.create_deal"
	}
	return "crm.log_activity"
}
