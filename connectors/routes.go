package connectors

// Route maps a tool name onto a service operation and its write class.
type Route struct {
	Service   Service
	Operation string
	Class     OperationClass
}

// ToolRoutes is the authoritative classification of every connector-managed
// tool. Tools absent from this table bypass the connector runtime.
var ToolRoutes = map[string]Route{
	"slack.list_channels": {ServiceSlack, "list_channels", ClassRead},
	"slack.open_channel":  {ServiceSlack, "open_channel", ClassRead},
	"slack.fetch_thread":  {ServiceSlack, "fetch_thread", ClassRead},
	"slack.send_message":  {ServiceSlack, "send_message", ClassWriteSafe},
	"slack.react":         {ServiceSlack, "react", ClassWriteSafe},

	"mail.list":    {ServiceMail, "list", ClassRead},
	"mail.open":    {ServiceMail, "open", ClassRead},
	"mail.compose": {ServiceMail, "compose", ClassWriteSafe},
	"mail.reply":   {ServiceMail, "reply", ClassWriteSafe},

	"docs.list":   {ServiceDocs, "list", ClassRead},
	"docs.read":   {ServiceDocs, "read", ClassRead},
	"docs.search": {ServiceDocs, "search", ClassRead},
	"docs.create": {ServiceDocs, "create", ClassWriteSafe},
	"docs.update": {ServiceDocs, "update", ClassWriteSafe},

	"calendar.list_events":  {ServiceCalendar, "list_events", ClassRead},
	"calendar.create_event": {ServiceCalendar, "create_event", ClassWriteSafe},
	"calendar.accept":       {ServiceCalendar, "accept", ClassWriteSafe},
	"calendar.decline":      {ServiceCalendar, "decline", ClassWriteSafe},
	"calendar.update_event": {ServiceCalendar, "update_event", ClassWriteSafe},
	"calendar.cancel_event": {ServiceCalendar, "cancel_event", ClassWriteRisky},

	"tickets.list":        {ServiceTickets, "list", ClassRead},
	"tickets.get":         {ServiceTickets, "get", ClassRead},
	"tickets.create":      {ServiceTickets, "create", ClassWriteSafe},
	"tickets.update":      {ServiceTickets, "update", ClassWriteSafe},
	"tickets.transition":  {ServiceTickets, "transition", ClassWriteRisky},
	"tickets.add_comment": {ServiceTickets, "add_comment", ClassWriteSafe},

	"db.list_tables":    {ServiceDB, "list_tables", ClassRead},
	"db.describe_table": {ServiceDB, "describe_table", ClassRead},
	"db.query":          {ServiceDB, "query", ClassRead},
	"db.upsert":         {ServiceDB, "upsert", ClassWriteSafe},

	"erp.create_po":       {ServiceERP, "create_po", ClassWriteSafe},
	"erp.get_po":          {ServiceERP, "get_po", ClassRead},
	"erp.list_pos":        {ServiceERP, "list_pos", ClassRead},
	"erp.receive_goods":   {ServiceERP, "receive_goods", ClassWriteSafe},
	"erp.submit_invoice":  {ServiceERP, "submit_invoice", ClassWriteSafe},
	"erp.get_invoice":     {ServiceERP, "get_invoice", ClassRead},
	"erp.list_invoices":   {ServiceERP, "list_invoices", ClassRead},
	"erp.match_three_way": {ServiceERP, "match_three_way", ClassWriteSafe},
	"erp.post_payment":    {ServiceERP, "post_payment", ClassWriteRisky},

	"crm.create_contact":            {ServiceCRM, "create_contact", ClassWriteSafe},
	"crm.get_contact":               {ServiceCRM, "get_contact", ClassRead},
	"crm.list_contacts":             {ServiceCRM, "list_contacts", ClassRead},
	"crm.create_company":            {ServiceCRM, "create_company", ClassWriteSafe},
	"crm.get_company":               {ServiceCRM, "get_company", ClassRead},
	"crm.list_companies":            {ServiceCRM, "list_companies", ClassRead},
	"crm.associate_contact_company": {ServiceCRM, "associate_contact_company", ClassWriteSafe},
	"crm.create_deal":               {ServiceCRM, "create_deal", ClassWriteSafe},
	"crm.get_deal":                  {ServiceCRM, "get_deal", ClassRead},
	"crm.list_deals":                {ServiceCRM, "list_deals", ClassRead},
	"crm.update_deal_stage":         {ServiceCRM, "update_deal_stage", ClassWriteSafe},
	"crm.log_activity":              {ServiceCRM, "log_activity", ClassWriteSafe},

	"okta.list_users":           {ServiceOkta, "list_users", ClassRead},
	"okta.get_user":             {ServiceOkta, "get_user", ClassRead},
	"okta.activate_user":        {ServiceOkta, "activate_user", ClassWriteSafe},
	"okta.deactivate_user":      {ServiceOkta, "deactivate_user", ClassWriteRisky},
	"okta.suspend_user":         {ServiceOkta, "suspend_user", ClassWriteSafe},
	"okta.unsuspend_user":       {ServiceOkta, "unsuspend_user", ClassWriteSafe},
	"okta.reset_password":       {ServiceOkta, "reset_password", ClassWriteSafe},
	"okta.list_groups":          {ServiceOkta, "list_groups", ClassRead},
	"okta.assign_group":         {ServiceOkta, "assign_group", ClassWriteSafe},
	"okta.unassign_group":       {ServiceOkta, "unassign_group", ClassWriteSafe},
	"okta.list_applications":    {ServiceOkta, "list_applications", ClassRead},
	"okta.assign_application":   {ServiceOkta, "assign_application", ClassWriteSafe},
	"okta.unassign_application": {ServiceOkta, "unassign_application", ClassWriteSafe},

	"servicedesk.list_incidents":  {ServiceServiceDesk, "list_incidents", ClassRead},
	"servicedesk.get_incident":    {ServiceServiceDesk, "get_incident", ClassRead},
	"servicedesk.update_incident": {ServiceServiceDesk, "update_incident", ClassWriteSafe},
	"servicedesk.list_requests":   {ServiceServiceDesk, "list_requests", ClassRead},
	"servicedesk.get_request":     {ServiceServiceDesk, "get_request", ClassRead},
	"servicedesk.update_request":  {ServiceServiceDesk, "update_request", ClassWriteSafe},
}

// Managed reports whether the tool is routed through the connector runtime.
func Managed(tool string) bool {
	_, ok := ToolRoutes[tool]
	return ok
}
