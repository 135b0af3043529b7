package router

import (
	"fmt"
	"sort"
	"strings"
)

const unreadMenuLimit = 3

type (
	// MenuItem is one suggested next call in an observation.
	MenuItem struct {
		// Tool is the suggested tool name.
		Tool string
		// Args is a ready-to-send argument payload.
		Args map[string]any
	}

	// Observation is the agent-facing snapshot returned by observe.
	Observation struct {
		// TimeMS is the logical clock at observation time.
		TimeMS int64
		// Focus names the twin the menu is grouped around.
		Focus string
		// Summary is a one-line textual digest of the session state.
		Summary string
		// ActionMenu lists concrete next calls, focus group first.
		ActionMenu []MenuItem
		// PendingEvents counts queued bus events.
		PendingEvents int
	}
)

// Map renders the observation in the wire shape.
func (o Observation) Map() map[string]any {
	menu := make([]map[string]any, 0, len(o.ActionMenu))
	for _, item := range o.ActionMenu {
		args := item.Args
		if args == nil {
			args = map[string]any{}
		}
		menu = append(menu, map[string]any{"tool": item.Tool, "args": args})
	}
	return map[string]any{
		"time_ms":        o.TimeMS,
		"focus":          o.Focus,
		"summary":        o.Summary,
		"action_menu":    menu,
		"pending_events": o.PendingEvents,
	}
}

// focusForTool derives the observation focus after a call from a fixed
// prefix table. Vendor alias prefixes map onto their canonical twin.
func focusForTool(tool string) string {
	prefixes := []struct {
		prefix string
		focus  string
	}{
		{"browser.", "browser"},
		{"mail.", "mail"},
		{"slack.", "slack"},
		{"docs.", "docs"},
		{"calendar.", "calendar"},
		{"tickets.", "tickets"},
		{"db.", "db"},
		{"erp.", "erp"},
		{"crm.", "crm"},
		{"okta.", "okta"},
		{"servicedesk.", "servicedesk"},
		{"hubspot.", "crm"},
		{"salesforce.", "crm"},
		{"xero.", "erp"},
		{"netsuite.", "erp"},
		{"dynamics.", "erp"},
		{"quickbooks.", "erp"},
	}
	for _, entry := range prefixes {
		if strings.HasPrefix(tool, entry.prefix) {
			return entry.focus
		}
	}
	return "browser"
}

// Observe composes the deterministic observation: browser affordances at the
// current node, opens for the first unread mail, and channel opens. The
// focus group sorts first, then alphabetically by tool name with ties broken
// by insertion order.
func (r *Router) Observe(focusHint string) Observation {
	focus := focusHint
	if focus == "" {
		focus = "browser"
	}

	type groupedItem struct {
		group string
		item  MenuItem
	}
	var items []groupedItem
	for _, aff := range r.Browser.Affordances() {
		args := aff.Args
		if args == nil {
			args = map[string]any{}
		}
		items = append(items, groupedItem{"browser", MenuItem{Tool: aff.Tool, Args: args}})
	}
	unread := r.Mail.Unread(unreadMenuLimit)
	for _, id := range unread {
		items = append(items, groupedItem{"mail", MenuItem{Tool: "mail.open", Args: map[string]any{"id": id}}})
	}
	channels := r.Slack.ChannelNames()
	for _, channel := range channels {
		items = append(items, groupedItem{"slack", MenuItem{Tool: "slack.open_channel", Args: map[string]any{"channel": channel}}})
	}
	sort.SliceStable(items, func(i, j int) bool {
		iFocus := items[i].group == focus
		jFocus := items[j].group == focus
		if iFocus != jFocus {
			return iFocus
		}
		return items[i].item.Tool < items[j].item.Tool
	})
	menu := make([]MenuItem, 0, len(items))
	for _, it := range items {
		menu = append(menu, it.item)
	}

	pending := r.Bus.Pending()["total"]
	node := r.Browser.Read()
	title, _ := node["title"].(string)
	summary := fmt.Sprintf(
		"t=%dms focus=%s browser=%q unread_mail=%d channels=%d pending_events=%d",
		r.Bus.ClockMS(), focus, title, len(unread), len(channels), pending,
	)
	return Observation{
		TimeMS:        r.Bus.ClockMS(),
		Focus:         focus,
		Summary:       summary,
		ActionMenu:    menu,
		PendingEvents: pending,
	}
}
