package twins

import (
	"fmt"
	"strings"

	"goa.design/vei/apitypes"
	"goa.design/vei/bus"
	"goa.design/vei/world"
)

type (
	// MailMessage is one message in either folder.
	MailMessage struct {
		ID       string
		From     string
		To       string
		Subj     string
		BodyText string
		Headers  map[string]string
		TimeMS   int64
		Folder   string
	}

	// Mail is the mailbox twin: INBOX plus OUTBOX, with scenario-driven
	// vendor replies scheduled on the bus.
	Mail struct {
		session Session
		replies map[string][]world.ReplyVariant
		// order preserves arrival order; ids are "m<N>".
		order  []string
		byID   map[string]*MailMessage
		opened map[string]bool
		seq    int
	}
)

// NewMail seeds the twin with the scenario reply rules.
func NewMail(s world.Scenario, session Session) *Mail {
	return &Mail{
		session: session,
		replies: s.VendorReplyVariants,
		byID:    make(map[string]*MailMessage),
		opened:  make(map[string]bool),
	}
}

// Compose sends an outbound message. When the recipient matches a scenario
// reply rule, one reply variant is scheduled back into the inbox.
func (m *Mail) Compose(to, subj, bodyText string) (map[string]any, error) {
	if to == "" {
		return nil, apitypes.NewError("invalid_args", "mail.compose requires to")
	}
	msg := m.append(&MailMessage{
		From:     "agent@local",
		To:       to,
		Subj:     subj,
		BodyText: bodyText,
		Folder:   "OUTBOX",
	})
	m.scheduleReply(to, subj)
	return map[string]any{"id": msg.ID, "time_ms": msg.TimeMS}, nil
}

// Reply answers an existing message; replying to a vendor thread can draw
// another scheduled reply.
func (m *Mail) Reply(id, bodyText string) (map[string]any, error) {
	orig, ok := m.byID[id]
	if !ok {
		return nil, apitypes.Errorf("unknown_message", "unknown message: %s", id)
	}
	subj := orig.Subj
	if !strings.HasPrefix(strings.ToLower(subj), "re:") {
		subj = "Re: " + subj
	}
	msg := m.append(&MailMessage{
		From:     "agent@local",
		To:       orig.From,
		Subj:     subj,
		BodyText: bodyText,
		Folder:   "OUTBOX",
	})
	m.scheduleReply(orig.From, subj)
	return map[string]any{"id": msg.ID, "time_ms": msg.TimeMS}, nil
}

// Open returns the full message and marks it read.
func (m *Mail) Open(id string) (map[string]any, error) {
	msg, ok := m.byID[id]
	if !ok {
		return nil, apitypes.Errorf("unknown_message", "unknown message: %s", id)
	}
	m.opened[id] = true
	return m.payload(msg, true), nil
}

// List returns inbox summaries. Without pagination args the legacy plain
// array is returned; otherwise the uniform envelope under "messages".
func (m *Mail) List(args map[string]any) (any, error) {
	req := pageRequest(args)
	folder := strings.ToUpper(argString(args, "folder"))
	if folder == "" {
		folder = "INBOX"
	}
	var rows []map[string]any
	for _, id := range m.order {
		msg := m.byID[id]
		if msg.Folder != folder {
			continue
		}
		if req.Query != "" {
			needle := strings.ToLower(req.Query)
			if !strings.Contains(strings.ToLower(msg.Subj), needle) &&
				!strings.Contains(strings.ToLower(msg.BodyText), needle) &&
				!strings.Contains(strings.ToLower(msg.From), needle) {
				continue
			}
		}
		rows = append(rows, m.payload(msg, false))
	}
	if req.SortBy != "" {
		field := req.SortBy
		if field != "time_ms" && field != "subj" && field != "from" {
			field = "time_ms"
		}
		sortRows(rows, field, req.Ascending())
	}
	if req.Legacy || !hasPagingArgs(args, "folder") {
		if rows == nil {
			rows = []map[string]any{}
		}
		return rows, nil
	}
	offset, err := apitypes.DecodeCursor(req.Cursor, "invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope("messages"), nil
}

// Unread returns up to n unopened inbox ids in arrival order; the router
// surfaces them in the action menu.
func (m *Mail) Unread(n int) []string {
	var out []string
	for _, id := range m.order {
		msg := m.byID[id]
		if msg.Folder == "INBOX" && !m.opened[id] {
			out = append(out, id)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

// Deliver accepts an inbound message from the bus.
func (m *Mail) Deliver(payload map[string]any) (map[string]any, error) {
	msg := m.append(&MailMessage{
		From:     argString(payload, "from"),
		To:       argString(payload, "to"),
		Subj:     argString(payload, "subj"),
		BodyText: argString(payload, "body_text"),
		Folder:   "INBOX",
	})
	if headers, ok := payload["headers"].(map[string]any); ok {
		msg.Headers = make(map[string]string, len(headers))
		for k, v := range headers {
			msg.Headers[k] = stringify(v)
		}
	}
	return map[string]any{"id": msg.ID}, nil
}

func (m *Mail) scheduleReply(to, subj string) {
	variants, ok := m.replies[strings.ToLower(strings.TrimSpace(to))]
	if !ok || len(variants) == 0 {
		return
	}
	variant := bus.Choice(m.session.RNG(), variants)
	replySubj := variant.Subj
	if replySubj == "" {
		replySubj = "Re: " + subj
	}
	delay := variant.DelayMS
	if delay <= 0 {
		delay = int64(m.session.RNG().Between(10_000, 15_000))
	}
	m.session.Schedule(delay, "mail", map[string]any{
		"from":      to,
		"to":        "agent@local",
		"subj":      replySubj,
		"body_text": variant.BodyText,
	})
}

func (m *Mail) append(msg *MailMessage) *MailMessage {
	m.seq++
	msg.ID = fmt.Sprintf("m%d", m.seq)
	msg.TimeMS = m.session.ClockMS()
	m.byID[msg.ID] = msg
	m.order = append(m.order, msg.ID)
	return msg
}

func (m *Mail) payload(msg *MailMessage, full bool) map[string]any {
	out := map[string]any{
		"id":      msg.ID,
		"from":    msg.From,
		"to":      msg.To,
		"subj":    msg.Subj,
		"time_ms": msg.TimeMS,
		"folder":  msg.Folder,
	}
	if full {
		out["body_text"] = msg.BodyText
		if len(msg.Headers) > 0 {
			headers := make(map[string]any, len(msg.Headers))
			for k, v := range msg.Headers {
				headers[k] = v
			}
			out["headers"] = headers
		}
	}
	return out
}
