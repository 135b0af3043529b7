package world

import "sort"

// ScenarioManifest is a typed summary of a catalog entry, used by hosts to
// pick scenarios without materializing them.
type ScenarioManifest struct {
	Name                      string   `json:"name"`
	ScenarioType              string   `json:"scenario_type"`
	Difficulty                string   `json:"difficulty"`
	ExpectedStepsMin          int      `json:"expected_steps_min,omitempty"`
	ExpectedStepsMax          int      `json:"expected_steps_max,omitempty"`
	ToolFamilies              []string `json:"tool_families"`
	Tags                      []string `json:"tags"`
	DocsCount                 int      `json:"docs_count"`
	TicketsCount              int      `json:"tickets_count"`
	IdentityUsersCount        int      `json:"identity_users_count"`
	ServiceIncidentsCount     int      `json:"servicedesk_incidents_count"`
	ServiceRequestsCount      int      `json:"servicedesk_requests_count"`
}

// BuildManifest summarizes a scenario.
func BuildManifest(name string, s Scenario) ScenarioManifest {
	m := ScenarioManifest{
		Name:                  name,
		ScenarioType:          "core",
		Difficulty:            "standard",
		ToolFamilies:          toolFamilies(s),
		DocsCount:             len(s.Documents),
		TicketsCount:          len(s.Tickets),
		IdentityUsersCount:    len(s.IdentityUsers),
		ServiceIncidentsCount: len(s.ServiceIncidents),
		ServiceRequestsCount:  len(s.ServiceRequests),
	}
	if t := asString(s.Metadata["scenario_type"]); t != "" {
		m.ScenarioType = t
	}
	if d := asString(s.Metadata["difficulty"]); d != "" {
		m.Difficulty = d
	}
	if pair := asSlice(s.Metadata["expected_steps"]); len(pair) == 2 {
		m.ExpectedStepsMin = asInt(pair[0], 0)
		m.ExpectedStepsMax = asInt(pair[1], 0)
	}
	tags := asStringSlice(s.Metadata["tags"])
	seen := map[string]bool{}
	for _, tag := range tags {
		if !seen[tag] {
			seen[tag] = true
			m.Tags = append(m.Tags, tag)
		}
	}
	sort.Strings(m.Tags)
	if m.Tags == nil {
		m.Tags = []string{}
	}
	return m
}

// GetManifest returns the manifest for a catalog scenario.
func GetManifest(name string) (ScenarioManifest, error) {
	s, err := GetScenario(name)
	if err != nil {
		return ScenarioManifest{}, err
	}
	return BuildManifest(name, s), nil
}

// ListManifests returns manifests for the whole catalog sorted by name.
func ListManifests() []ScenarioManifest {
	names := ScenarioNames()
	out := make([]ScenarioManifest, 0, len(names))
	for _, name := range names {
		s, err := GetScenario(name)
		if err != nil {
			continue
		}
		out = append(out, BuildManifest(name, s))
	}
	return out
}

func toolFamilies(s Scenario) []string {
	families := map[string]bool{}
	if s.SlackInitialMessage != "" {
		families["slack"] = true
	}
	if len(s.VendorReplyVariants) > 0 {
		families["mail"] = true
	}
	if len(s.BrowserNodes) > 0 {
		families["browser"] = true
	}
	if len(s.Documents) > 0 {
		families["docs"] = true
	}
	if len(s.CalendarEvents) > 0 {
		families["calendar"] = true
	}
	if len(s.Tickets) > 0 {
		families["tickets"] = true
	}
	if len(s.DatabaseTables) > 0 {
		families["db"] = true
	}
	if len(s.IdentityUsers) > 0 || len(s.IdentityGroups) > 0 || len(s.IdentityApplications) > 0 {
		families["okta"] = true
	}
	if len(s.ServiceIncidents) > 0 || len(s.ServiceRequests) > 0 {
		families["servicedesk"] = true
	}
	out := make([]string, 0, len(families))
	for f := range families {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
