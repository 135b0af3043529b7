package connectors

import "strings"

// Canonical builders reshape twin responses into the provider-style payloads
// recorded in receipts and replay memos. List operations normalize both the
// legacy plain-array shape and the paginated envelope.

func listLen(response any) (int, bool) {
	switch v := response.(type) {
	case []map[string]any:
		return len(v), true
	case []any:
		return len(v), true
	case []string:
		return len(v), true
	}
	return 0, false
}

// pagedCanonical maps an envelope response onto {ok, key, count, total,
// next_cursor, has_more} and a legacy array onto {ok, key, count}.
func pagedCanonical(key, rowsKey string, response any) (map[string]any, bool) {
	if n, ok := listLen(response); ok {
		return map[string]any{"ok": true, key: response, "count": n}, true
	}
	env, ok := response.(map[string]any)
	if !ok {
		return nil, false
	}
	rows, ok := env[rowsKey]
	if !ok {
		return nil, false
	}
	total := env["total"]
	if total == nil {
		total = env["count"]
	}
	return map[string]any{
		"ok":          true,
		key:           rows,
		"count":       env["count"],
		"total":       total,
		"next_cursor": env["next_cursor"],
		"has_more":    env["has_more"],
	}, true
}

func fallbackCanonical(response any) map[string]any {
	return map[string]any{"ok": true, "result": response}
}

func slackCanonical(req Request, response any) map[string]any {
	channel := req.Payload["channel"]
	if req.Operation == "list_channels" {
		if names, ok := response.([]string); ok {
			channels := make([]map[string]any, 0, len(names))
			for _, name := range names {
				channels = append(channels, map[string]any{
					"id":         name,
					"name":       strings.TrimPrefix(name, "#"),
					"is_channel": true,
				})
			}
			return map[string]any{"ok": true, "channels": channels}
		}
		if out, ok := pagedCanonical("channels", "channels", response); ok {
			return out
		}
	}
	if req.Operation == "send_message" {
		if msg, ok := response.(map[string]any); ok {
			return map[string]any{
				"ok":      true,
				"channel": channel,
				"ts":      msg["ts"],
				"message": map[string]any{
					"text":      req.Payload["text"],
					"thread_ts": req.Payload["thread_ts"],
				},
			}
		}
	}
	return map[string]any{"ok": true, "channel": channel, "result": response}
}

func mailCanonical(req Request, response any) map[string]any {
	if req.Operation == "list" {
		if n, ok := listLen(response); ok {
			folder := req.Payload["folder"]
			if folder == nil {
				folder = "INBOX"
			}
			return map[string]any{"ok": true, "folder": folder, "messages": response, "count": n}
		}
		if out, ok := pagedCanonical("messages", "messages", response); ok {
			return out
		}
	}
	if req.Operation == "compose" || req.Operation == "reply" {
		if msg, ok := response.(map[string]any); ok {
			return map[string]any{
				"ok":      true,
				"id":      msg["id"],
				"to":      req.Payload["to"],
				"subject": req.Payload["subj"],
				"queued":  true,
			}
		}
	}
	return fallbackCanonical(response)
}

func calendarCanonical(req Request, response any) map[string]any {
	if req.Operation == "list_events" {
		if out, ok := pagedCanonical("events", "events", response); ok {
			return out
		}
	}
	return fallbackCanonical(response)
}

func docsCanonical(req Request, response any) map[string]any {
	switch req.Operation {
	case "list":
		if out, ok := pagedCanonical("documents", "documents", response); ok {
			return out
		}
	case "search":
		if out, ok := pagedCanonical("hits", "documents", response); ok {
			out["query"] = req.Payload["query"]
			return out
		}
	case "read":
		if doc, ok := response.(map[string]any); ok {
			return map[string]any{"ok": true, "document": doc}
		}
	}
	return fallbackCanonical(response)
}

func ticketsCanonical(req Request, response any) map[string]any {
	switch req.Operation {
	case "list":
		if out, ok := pagedCanonical("tickets", "tickets", response); ok {
			return out
		}
	case "get":
		if ticket, ok := response.(map[string]any); ok {
			return map[string]any{"ok": true, "ticket": ticket}
		}
	}
	return fallbackCanonical(response)
}

func dbCanonical(req Request, response any) map[string]any {
	switch req.Operation {
	case "list_tables":
		if out, ok := pagedCanonical("tables", "tables", response); ok {
			return out
		}
	case "query":
		if env, ok := response.(map[string]any); ok {
			return map[string]any{
				"ok":          true,
				"table":       req.Payload["table"],
				"rows":        env["rows"],
				"count":       env["count"],
				"total":       env["total"],
				"next_cursor": env["next_cursor"],
				"has_more":    env["has_more"],
			}
		}
	}
	return fallbackCanonical(response)
}

func erpCanonical(req Request, response any) map[string]any {
	switch req.Operation {
	case "list_pos":
		if out, ok := pagedCanonical("purchase_orders", "purchase_orders", response); ok {
			return out
		}
	case "list_invoices":
		if out, ok := pagedCanonical("invoices", "invoices", response); ok {
			return out
		}
	}
	return fallbackCanonical(response)
}

func crmCanonical(req Request, response any) map[string]any {
	switch req.Operation {
	case "list_contacts":
		if out, ok := pagedCanonical("contacts", "contacts", response); ok {
			return out
		}
	case "list_companies":
		if out, ok := pagedCanonical("companies", "companies", response); ok {
			return out
		}
	case "list_deals":
		if out, ok := pagedCanonical("deals", "deals", response); ok {
			return out
		}
	}
	return fallbackCanonical(response)
}

func oktaCanonical(req Request, response any) map[string]any {
	env, ok := response.(map[string]any)
	if !ok {
		return fallbackCanonical(response)
	}
	if strings.HasPrefix(req.Operation, "list_") {
		out := map[string]any{"ok": true}
		for k, v := range env {
			out[k] = v
		}
		return out
	}
	if req.Operation == "get_user" {
		return map[string]any{"ok": true, "user": env}
	}
	return fallbackCanonical(response)
}

func servicedeskCanonical(req Request, response any) map[string]any {
	if req.Operation == "list_incidents" || req.Operation == "list_requests" {
		if env, ok := response.(map[string]any); ok {
			out := map[string]any{"ok": true}
			for k, v := range env {
				out[k] = v
			}
			return out
		}
	}
	return fallbackCanonical(response)
}

// canonicalFor returns the builder for a service.
func canonicalFor(service Service) CanonicalBuilder {
	switch service {
	case ServiceSlack:
		return slackCanonical
	case ServiceMail:
		return mailCanonical
	case ServiceCalendar:
		return calendarCanonical
	case ServiceDocs:
		return docsCanonical
	case ServiceTickets:
		return ticketsCanonical
	case ServiceDB:
		return dbCanonical
	case ServiceERP:
		return erpCanonical
	case ServiceCRM:
		return crmCanonical
	case ServiceOkta:
		return oktaCanonical
	case ServiceServiceDesk:
		return servicedeskCanonical
	}
	return func(_ Request, response any) map[string]any { return fallbackCanonical(response) }
}
