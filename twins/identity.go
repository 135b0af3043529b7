package twins

import (
	"fmt"
	"sort"
	"strings"

	"goa.design/vei/apitypes"
	"goa.design/vei/world"
)

type (
	// IdentityUser is one directory profile. Status values are ACTIVE,
	// PROVISIONED, SUSPENDED and DEPROVISIONED; deprovisioned is terminal.
	IdentityUser struct {
		UserID       string
		Email        string
		Login        string
		FirstName    string
		LastName     string
		Title        string
		Department   string
		Status       string
		Groups       []string
		Applications []string
	}

	// IdentityGroup is a directory group with its member ids.
	IdentityGroup struct {
		GroupID     string
		Name        string
		Description string
		Members     []string
	}

	// IdentityApplication is an SSO application with its assignments.
	IdentityApplication struct {
		AppID       string
		Label       string
		Description string
		Status      string
		Assignments []string
	}

	// Identity is the Okta-style directory twin. User/group and user/app
	// relationships are kept consistent in both directions.
	Identity struct {
		users    map[string]*IdentityUser
		groups   map[string]*IdentityGroup
		apps     map[string]*IdentityApplication
		resetSeq int
	}
)

func defaultIdentityUsers() map[string]world.IdentityUserSeed {
	return map[string]world.IdentityUserSeed{
		"USR-9001": {
			UserID:       "USR-9001",
			Email:        "jane@example.com",
			Login:        "jane",
			FirstName:    "Jane",
			LastName:     "Castillo",
			Title:        "Security Lead",
			Department:   "Security",
			Groups:       []string{"GRP-security"},
			Applications: []string{"APP-sso"},
		},
		"USR-9002": {
			UserID:       "USR-9002",
			Email:        "mike@example.com",
			Login:        "mike",
			FirstName:    "Mike",
			LastName:     "Dorsey",
			Title:        "IT Analyst",
			Department:   "IT",
			Status:       "SUSPENDED",
			Groups:       []string{"GRP-it"},
			Applications: []string{"APP-sso"},
		},
	}
}

func defaultIdentityGroups() map[string]world.IdentityGroupSeed {
	return map[string]world.IdentityGroupSeed{
		"GRP-security": {
			GroupID:     "GRP-security",
			Name:        "Security Admins",
			Description: "Manage identity profiles and MFA",
			Members:     []string{"USR-9001"},
		},
		"GRP-it": {
			GroupID: "GRP-it",
			Name:    "IT Support",
			Members: []string{"USR-9002"},
		},
	}
}

func defaultIdentityApps() map[string]world.IdentityApplicationSeed {
	return map[string]world.IdentityApplicationSeed{
		"APP-sso": {
			AppID:       "APP-sso",
			Label:       "Macro SSO",
			Description: "Corporate identity provider",
			Assignments: []string{"USR-9001", "USR-9002"},
		},
	}
}

// NewIdentity seeds the twin, falling back to the default directory when the
// scenario supplies none.
func NewIdentity(s world.Scenario) *Identity {
	userSeeds := s.IdentityUsers
	if len(userSeeds) == 0 {
		userSeeds = defaultIdentityUsers()
	}
	groupSeeds := s.IdentityGroups
	if len(groupSeeds) == 0 {
		groupSeeds = defaultIdentityGroups()
	}
	appSeeds := s.IdentityApplications
	if len(appSeeds) == 0 {
		appSeeds = defaultIdentityApps()
	}

	id := &Identity{
		users:    make(map[string]*IdentityUser, len(userSeeds)),
		groups:   make(map[string]*IdentityGroup, len(groupSeeds)),
		apps:     make(map[string]*IdentityApplication, len(appSeeds)),
		resetSeq: 1,
	}
	for _, seed := range userSeeds {
		status := seed.Status
		if status == "" {
			status = "ACTIVE"
		}
		id.users[seed.UserID] = &IdentityUser{
			UserID:       seed.UserID,
			Email:        seed.Email,
			Login:        seed.Login,
			FirstName:    seed.FirstName,
			LastName:     seed.LastName,
			Title:        seed.Title,
			Department:   seed.Department,
			Status:       status,
			Groups:       append([]string(nil), seed.Groups...),
			Applications: append([]string(nil), seed.Applications...),
		}
	}
	for _, seed := range groupSeeds {
		id.groups[seed.GroupID] = &IdentityGroup{
			GroupID:     seed.GroupID,
			Name:        seed.Name,
			Description: seed.Description,
			Members:     append([]string(nil), seed.Members...),
		}
	}
	for _, seed := range appSeeds {
		id.apps[seed.AppID] = &IdentityApplication{
			AppID:       seed.AppID,
			Label:       seed.Label,
			Description: seed.Description,
			Status:      "ACTIVE",
			Assignments: append([]string(nil), seed.Assignments...),
		}
	}
	id.syncRelationships()
	return id
}

// syncRelationships mirrors group membership and app assignments onto the
// user records so either side can be seeded alone.
func (id *Identity) syncRelationships() {
	for _, group := range id.groups {
		for _, member := range group.Members {
			user, ok := id.users[member]
			if !ok {
				continue
			}
			if !containsString(user.Groups, group.GroupID) {
				user.Groups = append(user.Groups, group.GroupID)
			}
		}
	}
	for _, app := range id.apps {
		for _, member := range app.Assignments {
			user, ok := id.users[member]
			if !ok {
				continue
			}
			if !containsString(user.Applications, app.AppID) {
				user.Applications = append(user.Applications, app.AppID)
			}
		}
	}
}

// ListUsers always returns the paginated envelope.
func (id *Identity) ListUsers(args map[string]any) (map[string]any, error) {
	req := pageRequest(args)
	status := strings.ToUpper(strings.TrimSpace(argString(args, "status")))
	needle := strings.ToLower(strings.TrimSpace(req.Query))
	includeGroups := argBool(args, "include_groups")

	var rows []map[string]any
	for _, userID := range id.userIDs() {
		user := id.users[userID]
		if status != "" && strings.ToUpper(user.Status) != status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(user.Email), needle) &&
			!strings.Contains(strings.ToLower(user.DisplayName()), needle) {
			continue
		}
		row := user.summary()
		if includeGroups {
			row["groups"] = toAnyList(user.Groups)
		}
		rows = append(rows, row)
	}
	sortField := req.SortBy
	switch sortField {
	case "email", "status", "display_name":
	default:
		sortField = "email"
	}
	sortRows(rows, sortField, req.Ascending())
	return id.page(rows, req, "users")
}

// GetUser returns the full user record.
func (id *Identity) GetUser(userID string) (map[string]any, error) {
	user, ok := id.users[userID]
	if !ok {
		return nil, apitypes.Errorf("okta.user_not_found", "Unknown user: %s", userID)
	}
	return user.detail(), nil
}

// ActivateUser moves a user to ACTIVE; already-active users are a no-op.
func (id *Identity) ActivateUser(userID string) (map[string]any, error) {
	user, ok := id.users[userID]
	if !ok {
		return nil, apitypes.Errorf("okta.user_not_found", "Unknown user: %s", userID)
	}
	if user.Status == "ACTIVE" {
		return map[string]any{"id": userID, "status": "ACTIVE", "changed": false}, nil
	}
	if user.Status == "DEPROVISIONED" {
		return nil, apitypes.Errorf("okta.invalid_state", "Cannot activate deprovisioned user: %s", userID)
	}
	user.Status = "ACTIVE"
	return map[string]any{"id": userID, "status": "ACTIVE", "changed": true}, nil
}

// DeactivateUser deprovisions a user; the state is terminal.
func (id *Identity) DeactivateUser(userID, reason string) (map[string]any, error) {
	user, ok := id.users[userID]
	if !ok {
		return nil, apitypes.Errorf("okta.user_not_found", "Unknown user: %s", userID)
	}
	if user.Status == "DEPROVISIONED" {
		return nil, apitypes.Errorf("okta.invalid_state", "User already deprovisioned: %s", userID)
	}
	user.Status = "DEPROVISIONED"
	if reason == "" {
		reason = "manual"
	}
	return map[string]any{"id": userID, "status": "DEPROVISIONED", "reason": reason}, nil
}

// SuspendUser suspends a user; suspending twice is a no-op.
func (id *Identity) SuspendUser(userID, reason string) (map[string]any, error) {
	user, ok := id.users[userID]
	if !ok {
		return nil, apitypes.Errorf("okta.user_not_found", "Unknown user: %s", userID)
	}
	if user.Status == "DEPROVISIONED" {
		return nil, apitypes.Errorf("okta.invalid_state", "Cannot suspend deprovisioned user: %s", userID)
	}
	if user.Status == "SUSPENDED" {
		return map[string]any{"id": userID, "status": "SUSPENDED", "changed": false}, nil
	}
	user.Status = "SUSPENDED"
	if reason == "" {
		reason = "manual"
	}
	return map[string]any{"id": userID, "status": "SUSPENDED", "changed": true, "reason": reason}, nil
}

// UnsuspendUser requires the user to be SUSPENDED.
func (id *Identity) UnsuspendUser(userID string) (map[string]any, error) {
	user, ok := id.users[userID]
	if !ok {
		return nil, apitypes.Errorf("okta.user_not_found", "Unknown user: %s", userID)
	}
	if user.Status != "SUSPENDED" {
		return nil, apitypes.Errorf("okta.invalid_state", "User is not suspended: %s", userID)
	}
	user.Status = "ACTIVE"
	return map[string]any{"id": userID, "status": "ACTIVE", "changed": true}, nil
}

// ResetPassword issues a deterministic reset token.
func (id *Identity) ResetPassword(userID string) (map[string]any, error) {
	user, ok := id.users[userID]
	if !ok {
		return nil, apitypes.Errorf("okta.user_not_found", "Unknown user: %s", userID)
	}
	switch user.Status {
	case "ACTIVE", "PROVISIONED", "SUSPENDED":
	default:
		return nil, apitypes.Errorf("okta.invalid_state", "Cannot reset password for %s user", strings.ToLower(user.Status))
	}
	token := fmt.Sprintf("RST-%04d-%s", id.resetSeq, user.UserID)
	id.resetSeq++
	return map[string]any{"user_id": user.UserID, "reset_token": token, "expires_ms": 3_600_000}, nil
}

// ListGroups always returns the paginated envelope.
func (id *Identity) ListGroups(args map[string]any) (map[string]any, error) {
	req := pageRequest(args)
	needle := strings.ToLower(strings.TrimSpace(req.Query))
	includeMembers := argBool(args, "include_members")

	var rows []map[string]any
	for _, groupID := range id.groupIDs() {
		group := id.groups[groupID]
		if needle != "" && !strings.Contains(strings.ToLower(group.Name), needle) {
			continue
		}
		row := map[string]any{
			"id":           group.GroupID,
			"name":         group.Name,
			"description":  group.Description,
			"member_count": len(group.Members),
		}
		if includeMembers {
			row["members"] = toAnyList(group.Members)
		}
		rows = append(rows, row)
	}
	sortField := req.SortBy
	if sortField != "name" && sortField != "member_count" {
		sortField = "name"
	}
	sortRows(rows, sortField, req.Ascending())
	return id.page(rows, req, "groups")
}

// AssignGroup adds a user to a group; both sides stay consistent.
func (id *Identity) AssignGroup(userID, groupID string) (map[string]any, error) {
	user, ok := id.users[userID]
	if !ok {
		return nil, apitypes.Errorf("okta.user_not_found", "Unknown user: %s", userID)
	}
	group, ok := id.groups[groupID]
	if !ok {
		return nil, apitypes.Errorf("okta.group_not_found", "Unknown group: %s", groupID)
	}
	if !containsString(group.Members, userID) {
		group.Members = append(group.Members, userID)
	}
	if !containsString(user.Groups, groupID) {
		user.Groups = append(user.Groups, groupID)
	}
	return map[string]any{"group_id": groupID, "user_id": userID, "members": len(group.Members)}, nil
}

// UnassignGroup removes a user from a group.
func (id *Identity) UnassignGroup(userID, groupID string) (map[string]any, error) {
	user, ok := id.users[userID]
	if !ok {
		return nil, apitypes.Errorf("okta.user_not_found", "Unknown user: %s", userID)
	}
	group, ok := id.groups[groupID]
	if !ok {
		return nil, apitypes.Errorf("okta.group_not_found", "Unknown group: %s", groupID)
	}
	user.Groups = removeString(user.Groups, groupID)
	group.Members = removeString(group.Members, userID)
	return map[string]any{"group_id": groupID, "user_id": userID, "members": len(group.Members)}, nil
}

// ListApplications always returns the paginated envelope.
func (id *Identity) ListApplications(args map[string]any) (map[string]any, error) {
	req := pageRequest(args)
	needle := strings.ToLower(strings.TrimSpace(req.Query))

	var rows []map[string]any
	for _, appID := range id.appIDs() {
		app := id.apps[appID]
		if needle != "" && !strings.Contains(strings.ToLower(app.Label), needle) {
			continue
		}
		rows = append(rows, map[string]any{
			"id":          app.AppID,
			"label":       app.Label,
			"description": app.Description,
			"status":      app.Status,
			"assignments": len(app.Assignments),
		})
	}
	sortField := req.SortBy
	switch sortField {
	case "label", "status", "assignments":
	default:
		sortField = "label"
	}
	sortRows(rows, sortField, req.Ascending())
	return id.page(rows, req, "applications")
}

// AssignApplication assigns an app to a user.
func (id *Identity) AssignApplication(userID, appID string) (map[string]any, error) {
	user, ok := id.users[userID]
	if !ok {
		return nil, apitypes.Errorf("okta.user_not_found", "Unknown user: %s", userID)
	}
	app, ok := id.apps[appID]
	if !ok {
		return nil, apitypes.Errorf("okta.app_not_found", "Unknown application: %s", appID)
	}
	if !containsString(app.Assignments, userID) {
		app.Assignments = append(app.Assignments, userID)
	}
	if !containsString(user.Applications, appID) {
		user.Applications = append(user.Applications, appID)
	}
	return map[string]any{"user_id": userID, "app_id": appID, "assignments": len(app.Assignments)}, nil
}

// UnassignApplication removes an app assignment from a user.
func (id *Identity) UnassignApplication(userID, appID string) (map[string]any, error) {
	user, ok := id.users[userID]
	if !ok {
		return nil, apitypes.Errorf("okta.user_not_found", "Unknown user: %s", userID)
	}
	app, ok := id.apps[appID]
	if !ok {
		return nil, apitypes.Errorf("okta.app_not_found", "Unknown application: %s", appID)
	}
	user.Applications = removeString(user.Applications, appID)
	app.Assignments = removeString(app.Assignments, userID)
	return map[string]any{"user_id": userID, "app_id": appID, "assignments": len(app.Assignments)}, nil
}

// Deliver applies a scheduled identity event keyed by op.
func (id *Identity) Deliver(payload map[string]any) (map[string]any, error) {
	op := strings.ToLower(argString(payload, "op"))
	userID := argString(payload, "user_id")
	switch op {
	case "activate":
		return id.ActivateUser(userID)
	case "deactivate":
		return id.DeactivateUser(userID, argString(payload, "reason"))
	case "suspend":
		return id.SuspendUser(userID, argString(payload, "reason"))
	case "unsuspend":
		return id.UnsuspendUser(userID)
	case "assign_group":
		return id.AssignGroup(userID, argString(payload, "group_id"))
	case "unassign_group":
		return id.UnassignGroup(userID, argString(payload, "group_id"))
	case "assign_application":
		return id.AssignApplication(userID, argString(payload, "app_id"))
	case "unassign_application":
		return id.UnassignApplication(userID, argString(payload, "app_id"))
	}
	return nil, apitypes.Errorf("okta.invalid_event", "unsupported identity delivery op: %s", op)
}

// DisplayName joins first and last name.
func (u *IdentityUser) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *IdentityUser) summary() map[string]any {
	return map[string]any{
		"id":           u.UserID,
		"email":        u.Email,
		"login":        u.Login,
		"display_name": u.DisplayName(),
		"status":       u.Status,
		"title":        u.Title,
		"department":   u.Department,
	}
}

func (u *IdentityUser) detail() map[string]any {
	out := u.summary()
	out["groups"] = toAnyList(u.Groups)
	out["applications"] = toAnyList(u.Applications)
	return out
}

// page wraps a sorted row set in the uniform envelope. Identity lists never
// use the legacy plain-array shape.
func (id *Identity) page(rows []map[string]any, req apitypes.PageRequest, key string) (map[string]any, error) {
	offset, err := apitypes.DecodeCursor(req.Cursor, "okta.invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope(key), nil
}

func (id *Identity) userIDs() []string {
	out := make([]string, 0, len(id.users))
	for userID := range id.users {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out
}

func (id *Identity) groupIDs() []string {
	out := make([]string, 0, len(id.groups))
	for groupID := range id.groups {
		out = append(out, groupID)
	}
	sort.Strings(out)
	return out
}

func (id *Identity) appIDs() []string {
	out := make([]string, 0, len(id.apps))
	for appID := range id.apps {
		out = append(out, appID)
	}
	sort.Strings(out)
	return out
}

func containsString(list []string, wanted string) bool {
	for _, item := range list {
		if item == wanted {
			return true
		}
	}
	return false
}

func removeString(list []string, wanted string) []string {
	out := list[:0]
	for _, item := range list {
		if item != wanted {
			out = append(out, item)
		}
	}
	return out
}

func toAnyList(list []string) []any {
	out := make([]any, 0, len(list))
	for _, item := range list {
		out = append(out, item)
	}
	return out
}
