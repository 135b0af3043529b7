package twins

import (
	"sort"
	"strconv"
	"strings"

	"goa.design/vei/apitypes"
	"goa.design/vei/world"
)

type (
	// SlackMessage is one chat message. TS is a stringified monotonic
	// integer unique per channel; threads hang off ThreadTS.
	SlackMessage struct {
		Channel   string
		TS        string
		User      string
		Text      string
		ThreadTS  string
		Reactions []map[string]any
	}

	// Slack is the chat twin.
	Slack struct {
		session  Session
		channels map[string][]*SlackMessage
		tsSeq    map[string]int
	}
)

const defaultChannel = "#procurement"

// NewSlack seeds the twin with the scenario's initial message.
func NewSlack(s world.Scenario, session Session) *Slack {
	twin := &Slack{
		session:  session,
		channels: map[string][]*SlackMessage{defaultChannel: {}},
		tsSeq:    map[string]int{},
	}
	if s.SlackInitialMessage != "" {
		twin.post(defaultChannel, "ops.lead", s.SlackInitialMessage, "")
	}
	return twin
}

// ListChannels returns channel names. Legacy shape is a plain array of
// {channel, messages} summaries.
func (s *Slack) ListChannels(args map[string]any) (any, error) {
	req := pageRequest(args)
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([]map[string]any, 0, len(names))
	for _, name := range names {
		rows = append(rows, map[string]any{
			"channel":  name,
			"messages": len(s.channels[name]),
		})
	}
	if req.Legacy || !hasPagingArgs(args) {
		return rows, nil
	}
	offset, err := apitypes.DecodeCursor(req.Cursor, "invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope("channels"), nil
}

// OpenChannel returns the most recent messages in a channel.
func (s *Slack) OpenChannel(channel string, limit int) (map[string]any, error) {
	msgs, ok := s.channels[normalizeChannel(channel)]
	if !ok {
		return nil, apitypes.Errorf("unknown_channel", "unknown channel: %s", channel)
	}
	if limit <= 0 {
		limit = 20
	}
	start := len(msgs) - limit
	if start < 0 {
		start = 0
	}
	out := make([]map[string]any, 0, len(msgs)-start)
	for _, msg := range msgs[start:] {
		out = append(out, s.payload(msg))
	}
	return map[string]any{"channel": normalizeChannel(channel), "messages": out}, nil
}

// SendMessage posts to a channel, creating it on first use.
func (s *Slack) SendMessage(channel, text, threadTS string) (map[string]any, error) {
	if text == "" {
		return nil, apitypes.NewError("invalid_args", "slack.send_message requires text")
	}
	name := normalizeChannel(channel)
	msg := s.post(name, "agent", text, threadTS)
	return map[string]any{"channel": name, "ts": msg.TS}, nil
}

// React appends an emoji reaction to a message.
func (s *Slack) React(channel, ts, emoji string) (map[string]any, error) {
	msg, err := s.find(channel, ts)
	if err != nil {
		return nil, err
	}
	msg.Reactions = append(msg.Reactions, map[string]any{"emoji": emoji, "user": "agent"})
	return map[string]any{"ok": true, "ts": msg.TS, "reactions": len(msg.Reactions)}, nil
}

// FetchThread returns the root message and its replies.
func (s *Slack) FetchThread(channel, threadTS string) (map[string]any, error) {
	root, err := s.find(channel, threadTS)
	if err != nil {
		return nil, err
	}
	name := normalizeChannel(channel)
	thread := []map[string]any{s.payload(root)}
	for _, msg := range s.channels[name] {
		if msg.ThreadTS == threadTS && msg.TS != threadTS {
			thread = append(thread, s.payload(msg))
		}
	}
	return map[string]any{"channel": name, "thread_ts": threadTS, "messages": thread}, nil
}

// Deliver accepts an inbound message from the bus.
func (s *Slack) Deliver(payload map[string]any) (map[string]any, error) {
	channel := normalizeChannel(argString(payload, "channel"))
	user := argString(payload, "user")
	if user == "" {
		user = "system"
	}
	msg := s.post(channel, user, argString(payload, "text"), argString(payload, "thread_ts"))
	return map[string]any{"channel": channel, "ts": msg.TS}, nil
}

func (s *Slack) post(channel, user, text, threadTS string) *SlackMessage {
	s.tsSeq[channel]++
	msg := &SlackMessage{
		Channel:  channel,
		TS:       strconv.Itoa(s.tsSeq[channel]),
		User:     user,
		Text:     text,
		ThreadTS: threadTS,
	}
	s.channels[channel] = append(s.channels[channel], msg)
	return msg
}

func (s *Slack) find(channel, ts string) (*SlackMessage, error) {
	msgs, ok := s.channels[normalizeChannel(channel)]
	if !ok {
		return nil, apitypes.Errorf("unknown_channel", "unknown channel: %s", channel)
	}
	for _, msg := range msgs {
		if msg.TS == ts {
			return msg, nil
		}
	}
	return nil, apitypes.Errorf("unknown_message", "no message %s in %s", ts, channel)
}

func (s *Slack) payload(msg *SlackMessage) map[string]any {
	out := map[string]any{
		"channel": msg.Channel,
		"ts":      msg.TS,
		"user":    msg.User,
		"text":    msg.Text,
	}
	if msg.ThreadTS != "" {
		out["thread_ts"] = msg.ThreadTS
	}
	if len(msg.Reactions) > 0 {
		out["reactions"] = msg.Reactions
	}
	return out
}

// ChannelNames lists channels sorted, for the action menu.
func (s *Slack) ChannelNames() []string {
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeChannel(channel string) string {
	name := strings.TrimSpace(channel)
	if name == "" {
		return defaultChannel
	}
	if !strings.HasPrefix(name, "#") {
		name = "#" + name
	}
	return name
}
