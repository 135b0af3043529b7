package router

import (
	"os"
	"strings"
)

// aliasBinding maps a vendor-flavored tool name onto its canonical tool.
type aliasBinding struct {
	Alias string
	Base  string
}

// ERP alias packs keyed by VEI_ALIAS_PACKS entries. Each pack mirrors a
// vendor API naming scheme over the canonical erp.* tools.
var erpAliasPacks = map[string][]aliasBinding{
	"xero": {
		{"xero.purchase_orders.create", "erp.create_po"},
		{"xero.invoices.create", "erp.submit_invoice"},
		{"xero.payments.create", "erp.post_payment"},
	},
	"netsuite": {
		{"netsuite.purchaseorder.create", "erp.create_po"},
		{"netsuite.vendorbill.create", "erp.submit_invoice"},
		{"netsuite.vendorpayment.create", "erp.post_payment"},
	},
	"dynamics": {
		{"dynamics.purchase_orders.create", "erp.create_po"},
		{"dynamics.invoices.create", "erp.submit_invoice"},
		{"dynamics.payments.create", "erp.post_payment"},
	},
	"quickbooks": {
		{"quickbooks.purchaseorder.create", "erp.create_po"},
		{"quickbooks.bill.create", "erp.submit_invoice"},
		{"quickbooks.billpayment.create", "erp.post_payment"},
	},
}

// CRM alias packs keyed by VEI_CRM_ALIAS_PACKS entries.
var crmAliasPacks = map[string][]aliasBinding{
	"hubspot": {
		{"hubspot.deals.create", "crm.create_deal"},
		{"hubspot.activities.log", "crm.log_activity"},
	},
	"salesforce": {
		{"salesforce.opportunity.create", "crm.create_deal"},
		{"salesforce.activity.log", "crm.log_activity"},
	},
}

// envPacks splits a comma-separated pack list, falling back to def when the
// variable is unset or blank.
func envPacks(key, def string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		raw = def
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// registerAliasPacks installs the configured ERP and CRM alias packs. Alias
// specs inherit the base spec wholesale; duplicate registrations are ignored
// so repeated pack entries stay harmless.
func (r *Router) registerAliasPacks() {
	for _, pack := range envPacks("VEI_ALIAS_PACKS", "xero") {
		for _, binding := range erpAliasPacks[pack] {
			r.registerAlias(binding.Alias, binding.Base)
		}
	}
	for _, pack := range envPacks("VEI_CRM_ALIAS_PACKS", "hubspot,salesforce") {
		for _, binding := range crmAliasPacks[pack] {
			r.registerAlias(binding.Alias, binding.Base)
		}
	}
}

func (r *Router) registerAlias(alias, base string) {
	spec := ToolSpec{Name: alias, Description: "Alias -> " + base}
	if baseSpec, ok := r.Registry.Get(base); ok {
		spec = ToolSpec{
			Name:             alias,
			Description:      "Alias -> " + base + ". " + baseSpec.Description,
			Permissions:      baseSpec.Permissions,
			SideEffects:      baseSpec.SideEffects,
			DefaultLatencyMS: baseSpec.DefaultLatencyMS,
			LatencyJitterMS:  baseSpec.LatencyJitterMS,
			NominalCost:      baseSpec.NominalCost,
			Returns:          baseSpec.Returns,
			FaultProbability: baseSpec.FaultProbability,
		}
	}
	if err := r.Registry.Register(spec); err != nil {
		return
	}
	r.aliases[alias] = base
}
