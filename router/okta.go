package router

import "goa.design/vei/twins"

// NewOktaProvider mounts the identity twin as a tool provider claiming the
// okta.* prefix. Latency figures mimic a hosted directory API: writes are
// slower than reads and deprovisioning carries a small fault rate.
func NewOktaProvider(identity *twins.Identity) *PrefixProvider {
	specs := []ToolSpec{
		{
			Name:             "okta.list_users",
			Description:      "List Okta directory users optionally filtered by status or query.",
			Permissions:      []string{"identity:read"},
			DefaultLatencyMS: 350,
			LatencyJitterMS:  120,
		},
		{
			Name:             "okta.get_user",
			Description:      "Fetch a single user profile by id.",
			Permissions:      []string{"identity:read"},
			DefaultLatencyMS: 320,
			LatencyJitterMS:  90,
		},
		{
			Name:             "okta.activate_user",
			Description:      "Activate a user profile.",
			Permissions:      []string{"identity:write"},
			SideEffects:      []string{"identity_mutation"},
			DefaultLatencyMS: 420,
			LatencyJitterMS:  140,
		},
		{
			Name:             "okta.deactivate_user",
			Description:      "Deactivate or deprovision a user profile.",
			Permissions:      []string{"identity:write"},
			SideEffects:      []string{"identity_mutation"},
			DefaultLatencyMS: 450,
			LatencyJitterMS:  150,
			FaultProbability: 0.01,
		},
		{
			Name:             "okta.suspend_user",
			Description:      "Suspend a user account.",
			Permissions:      []string{"identity:write"},
			SideEffects:      []string{"identity_mutation"},
			DefaultLatencyMS: 430,
			LatencyJitterMS:  140,
		},
		{
			Name:             "okta.unsuspend_user",
			Description:      "Unsuspend a suspended user account.",
			Permissions:      []string{"identity:write"},
			SideEffects:      []string{"identity_mutation"},
			DefaultLatencyMS: 420,
			LatencyJitterMS:  130,
		},
		{
			Name:             "okta.reset_password",
			Description:      "Generate a password reset token for a user.",
			Permissions:      []string{"identity:write"},
			SideEffects:      []string{"identity_mutation"},
			DefaultLatencyMS: 380,
			LatencyJitterMS:  110,
		},
		{
			Name:             "okta.list_groups",
			Description:      "List Okta groups optionally including member ids.",
			Permissions:      []string{"identity:read"},
			DefaultLatencyMS: 330,
			LatencyJitterMS:  100,
		},
		{
			Name:             "okta.assign_group",
			Description:      "Add a user to an Okta group.",
			Permissions:      []string{"identity:write"},
			SideEffects:      []string{"identity_mutation"},
			DefaultLatencyMS: 410,
			LatencyJitterMS:  140,
		},
		{
			Name:             "okta.unassign_group",
			Description:      "Remove a user from an Okta group.",
			Permissions:      []string{"identity:write"},
			SideEffects:      []string{"identity_mutation"},
			DefaultLatencyMS: 410,
			LatencyJitterMS:  140,
		},
		{
			Name:             "okta.list_applications",
			Description:      "List SSO applications available in Okta.",
			Permissions:      []string{"identity:read"},
			DefaultLatencyMS: 300,
			LatencyJitterMS:  80,
		},
		{
			Name:             "okta.assign_application",
			Description:      "Assign an application to a user.",
			Permissions:      []string{"identity:write"},
			SideEffects:      []string{"identity_mutation"},
			DefaultLatencyMS: 420,
			LatencyJitterMS:  130,
		},
		{
			Name:             "okta.unassign_application",
			Description:      "Remove an application assignment from a user.",
			Permissions:      []string{"identity:write"},
			SideEffects:      []string{"identity_mutation"},
			DefaultLatencyMS: 420,
			LatencyJitterMS:  130,
		},
	}
	handlers := map[string]func(args map[string]any) (any, error){
		"okta.list_users": func(args map[string]any) (any, error) {
			return identity.ListUsers(args)
		},
		"okta.get_user": func(args map[string]any) (any, error) {
			return identity.GetUser(argString(args, "user_id"))
		},
		"okta.activate_user": func(args map[string]any) (any, error) {
			return identity.ActivateUser(argString(args, "user_id"))
		},
		"okta.deactivate_user": func(args map[string]any) (any, error) {
			return identity.DeactivateUser(argString(args, "user_id"), argString(args, "reason"))
		},
		"okta.suspend_user": func(args map[string]any) (any, error) {
			return identity.SuspendUser(argString(args, "user_id"), argString(args, "reason"))
		},
		"okta.unsuspend_user": func(args map[string]any) (any, error) {
			return identity.UnsuspendUser(argString(args, "user_id"))
		},
		"okta.reset_password": func(args map[string]any) (any, error) {
			return identity.ResetPassword(argString(args, "user_id"))
		},
		"okta.list_groups": func(args map[string]any) (any, error) {
			return identity.ListGroups(args)
		},
		"okta.assign_group": func(args map[string]any) (any, error) {
			return identity.AssignGroup(argString(args, "user_id"), argString(args, "group_id"))
		},
		"okta.unassign_group": func(args map[string]any) (any, error) {
			return identity.UnassignGroup(argString(args, "user_id"), argString(args, "group_id"))
		},
		"okta.list_applications": func(args map[string]any) (any, error) {
			return identity.ListApplications(args)
		},
		"okta.assign_application": func(args map[string]any) (any, error) {
			return identity.AssignApplication(argString(args, "user_id"), argString(args, "app_id"))
		},
		"okta.unassign_application": func(args map[string]any) (any, error) {
			return identity.UnassignApplication(argString(args, "user_id"), argString(args, "app_id"))
		},
	}
	return NewPrefixProvider("okta", []string{"okta."}, specs, handlers)
}
