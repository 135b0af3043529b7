package world

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"goa.design/vei/apitypes"
)

// GenerateScenario builds a Scenario from an inline world template. The
// template accepts the inline scenario keys (meta, budget_cap_usd, vendors,
// browser_nodes, documents, tickets, calendar_events, identity_*,
// service_*, database_tables, derail_events, slack_initial_message,
// derail_prob). The result is a pure function of (template, seed).
func GenerateScenario(template map[string]any, seed int64) Scenario {
	rng := rand.New(rand.NewSource(seed))
	s := Scenario{
		Metadata:            asMap(template["meta"]),
		BudgetCapUSD:        asInt(template["budget_cap_usd"], 3000),
		SlackInitialMessage: asString(template["slack_initial_message"]),
		DerailProb:          asFloat(template["derail_prob"]),
	}

	if nodes := asMap(template["browser_nodes"]); len(nodes) > 0 {
		s.BrowserNodes = parseBrowserNodes(nodes)
	}
	if vendors := asSlice(template["vendors"]); len(vendors) > 0 {
		s.VendorReplyVariants = vendorReplies(vendors, rng)
	}
	if docs := asMap(template["documents"]); len(docs) > 0 {
		s.Documents = parseDocuments(docs)
	}
	if tickets := asMap(template["tickets"]); len(tickets) > 0 {
		s.Tickets = parseTickets(tickets)
	}
	if events := asMap(template["calendar_events"]); len(events) > 0 {
		s.CalendarEvents = parseCalendarEvents(events)
	}
	if users := asMap(template["identity_users"]); len(users) > 0 {
		s.IdentityUsers = parseIdentityUsers(users)
	}
	if groups := asMap(template["identity_groups"]); len(groups) > 0 {
		s.IdentityGroups = parseIdentityGroups(groups)
	}
	if apps := asMap(template["identity_applications"]); len(apps) > 0 {
		s.IdentityApplications = parseIdentityApps(apps)
	}
	if incidents := asMap(template["service_incidents"]); len(incidents) > 0 {
		s.ServiceIncidents = parseIncidents(incidents)
	}
	if requests := asMap(template["service_requests"]); len(requests) > 0 {
		s.ServiceRequests = parseRequests(requests)
	}
	if tables := asMap(template["database_tables"]); len(tables) > 0 {
		s.DatabaseTables = parseTables(tables)
	}
	for _, raw := range asSlice(template["derail_events"]) {
		ev := asMap(raw)
		if ev == nil {
			continue
		}
		s.DerailEvents = append(s.DerailEvents, DerailEvent{
			DtMS:    int64(asInt(ev["dt_ms"], 0)),
			Target:  asString(ev["target"]),
			Payload: asMap(ev["payload"]),
		})
	}
	return s
}

// Resolve turns a world reference into a Scenario: nil means Default,
// {catalog: name} is a catalog lookup, anything else goes through
// GenerateScenario.
func Resolve(worldSpec map[string]any, seed int64) (Scenario, error) {
	if len(worldSpec) == 0 {
		return Default(), nil
	}
	if name, ok := worldSpec["catalog"].(string); ok {
		return GetScenario(name)
	}
	return GenerateScenario(worldSpec, seed), nil
}

// LoadScenarioFile reads a YAML or JSON scenario template from disk and
// resolves it.
func LoadScenarioFile(path string, seed int64) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario file: %w", err)
	}
	var template map[string]any
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(raw, &template); err != nil {
			return Scenario{}, apitypes.Errorf("invalid_scenario", "parse %s: %v", path, err)
		}
	} else if err := yaml.Unmarshal(raw, &template); err != nil {
		return Scenario{}, apitypes.Errorf("invalid_scenario", "parse %s: %v", path, err)
	}
	return Resolve(template, seed)
}

func vendorReplies(vendors []any, rng *rand.Rand) map[string][]ReplyVariant {
	// Vendor order is preserved; draws happen in order so the result is
	// deterministic for a given (template, seed).
	out := make(map[string][]ReplyVariant)
	for _, raw := range vendors {
		vendor := asMap(raw)
		if vendor == nil {
			continue
		}
		name := asString(vendor["name"])
		if name == "" {
			continue
		}
		priceLo, priceHi := rangeOf(vendor["price"], 1000, 1400)
		etaLo, etaHi := rangeOf(vendor["eta_days"], 3, 10)
		price := priceLo
		if priceHi > priceLo {
			price = priceLo + rng.Intn(priceHi-priceLo+1)
		}
		addr := "sales@" + vendorSlug(name) + ".example"
		out[addr] = []ReplyVariant{
			{BodyText: fmt.Sprintf("Thanks for the interest in %s. Current quote is $%d USD per unit, ETA %d-%d business days.", name, price, etaLo, etaHi)},
			{BodyText: fmt.Sprintf("%s pricing: $%d USD, delivery within %d business days of PO. Happy to hold the quote for 30 days.", name, price, etaHi)},
		}
	}
	return out
}

func vendorSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "")
}

func parseBrowserNodes(nodes map[string]any) map[string]BrowserNode {
	out := make(map[string]BrowserNode, len(nodes))
	for key, raw := range nodes {
		node := asMap(raw)
		if node == nil {
			continue
		}
		bn := BrowserNode{
			URL:     asString(node["url"]),
			Title:   asString(node["title"]),
			Excerpt: asString(node["excerpt"]),
			Next:    map[string]string{},
		}
		for _, affRaw := range asSlice(node["affordances"]) {
			aff := asMap(affRaw)
			if aff == nil {
				continue
			}
			bn.Affordances = append(bn.Affordances, Affordance{
				Tool: asString(aff["tool"]),
				Args: asMap(aff["args"]),
			})
		}
		for id, dest := range asMap(node["next"]) {
			bn.Next[id] = asString(dest)
		}
		out[key] = bn
	}
	return out
}

func parseDocuments(docs map[string]any) map[string]Document {
	out := make(map[string]Document, len(docs))
	for id, raw := range docs {
		doc := asMap(raw)
		if doc == nil {
			continue
		}
		out[id] = Document{
			DocID: withDefault(asString(doc["doc_id"]), id),
			Title: asString(doc["title"]),
			Body:  asString(doc["body"]),
			Tags:  asStringSlice(doc["tags"]),
		}
	}
	return out
}

func parseTickets(tickets map[string]any) map[string]TicketSeed {
	out := make(map[string]TicketSeed, len(tickets))
	for id, raw := range tickets {
		t := asMap(raw)
		if t == nil {
			continue
		}
		out[id] = TicketSeed{
			TicketID:    withDefault(asString(t["ticket_id"]), id),
			Title:       asString(t["title"]),
			Description: asString(t["description"]),
			Assignee:    asString(t["assignee"]),
			Status:      withDefault(asString(t["status"]), "open"),
			Priority:    withDefault(asString(t["priority"]), "P3"),
			Severity:    withDefault(asString(t["severity"]), "medium"),
			Labels:      asStringSlice(t["labels"]),
		}
	}
	return out
}

func parseCalendarEvents(events map[string]any) map[string]CalendarEventSeed {
	out := make(map[string]CalendarEventSeed, len(events))
	for id, raw := range events {
		ev := asMap(raw)
		if ev == nil {
			continue
		}
		out[id] = CalendarEventSeed{
			EventID:     withDefault(asString(ev["event_id"]), id),
			Title:       asString(ev["title"]),
			StartMS:     int64(asInt(ev["start_ms"], 0)),
			EndMS:       int64(asInt(ev["end_ms"], 0)),
			Attendees:   asStringSlice(ev["attendees"]),
			Location:    asString(ev["location"]),
			Description: asString(ev["description"]),
			Organizer:   asString(ev["organizer"]),
			Status:      withDefault(asString(ev["status"]), "CONFIRMED"),
		}
	}
	return out
}

func parseIdentityUsers(users map[string]any) map[string]IdentityUserSeed {
	out := make(map[string]IdentityUserSeed, len(users))
	for id, raw := range users {
		u := asMap(raw)
		if u == nil {
			continue
		}
		out[id] = IdentityUserSeed{
			UserID:       withDefault(asString(u["user_id"]), id),
			Email:        asString(u["email"]),
			Login:        asString(u["login"]),
			FirstName:    asString(u["first_name"]),
			LastName:     asString(u["last_name"]),
			Title:        asString(u["title"]),
			Department:   asString(u["department"]),
			Status:       withDefault(asString(u["status"]), "ACTIVE"),
			Groups:       asStringSlice(u["groups"]),
			Applications: asStringSlice(u["applications"]),
		}
	}
	return out
}

func parseIdentityGroups(groups map[string]any) map[string]IdentityGroupSeed {
	out := make(map[string]IdentityGroupSeed, len(groups))
	for id, raw := range groups {
		g := asMap(raw)
		if g == nil {
			continue
		}
		out[id] = IdentityGroupSeed{
			GroupID:     withDefault(asString(g["group_id"]), id),
			Name:        asString(g["name"]),
			Description: asString(g["description"]),
			Members:     asStringSlice(g["members"]),
		}
	}
	return out
}

func parseIdentityApps(apps map[string]any) map[string]IdentityApplicationSeed {
	out := make(map[string]IdentityApplicationSeed, len(apps))
	for id, raw := range apps {
		a := asMap(raw)
		if a == nil {
			continue
		}
		out[id] = IdentityApplicationSeed{
			AppID:       withDefault(asString(a["app_id"]), id),
			Label:       asString(a["label"]),
			Description: asString(a["description"]),
			Assignments: asStringSlice(a["assignments"]),
		}
	}
	return out
}

func parseIncidents(incidents map[string]any) map[string]IncidentSeed {
	out := make(map[string]IncidentSeed, len(incidents))
	for id, raw := range incidents {
		inc := asMap(raw)
		if inc == nil {
			continue
		}
		out[id] = IncidentSeed{
			IncidentID:  withDefault(asString(inc["incident_id"]), id),
			Title:       asString(inc["title"]),
			Description: asString(inc["description"]),
			Severity:    withDefault(asString(inc["severity"]), "medium"),
			Status:      withDefault(asString(inc["status"]), "NEW"),
			Assignee:    asString(inc["assignee"]),
			Service:     asString(inc["service"]),
		}
	}
	return out
}

func parseRequests(requests map[string]any) map[string]RequestSeed {
	out := make(map[string]RequestSeed, len(requests))
	for id, raw := range requests {
		req := asMap(raw)
		if req == nil {
			continue
		}
		out[id] = RequestSeed{
			RequestID:      withDefault(asString(req["request_id"]), id),
			Title:          asString(req["title"]),
			Description:    asString(req["description"]),
			Requester:      asString(req["requester"]),
			Status:         withDefault(asString(req["status"]), "PENDING_APPROVAL"),
			ApprovalStage:  asString(req["approval_stage"]),
			ApprovalStatus: withDefault(asString(req["approval_status"]), "PENDING"),
		}
	}
	return out
}

func parseTables(tables map[string]any) map[string][]map[string]any {
	out := make(map[string][]map[string]any, len(tables))
	for name, raw := range tables {
		var rows []map[string]any
		for _, rowRaw := range asSlice(raw) {
			if row := asMap(rowRaw); row != nil {
				rows = append(rows, row)
			}
		}
		out[name] = rows
	}
	return out
}

func rangeOf(raw any, defLo, defHi int) (int, int) {
	pair := asSlice(raw)
	if len(pair) == 2 {
		lo, hi := asInt(pair[0], defLo), asInt(pair[1], defHi)
		if hi < lo {
			hi = lo
		}
		return lo, hi
	}
	return defLo, defHi
}

func withDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

// Loose template accessors. Templates arrive from JSON or YAML so numeric
// values may be float64, int or json.Number.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return def
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return 0
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asStringSlice(v any) []string {
	raw := asSlice(v)
	if raw == nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// SortedTableNames returns table names in stable order, used when seeding
// twins so iteration order never depends on map layout.
func SortedTableNames(tables map[string][]map[string]any) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
