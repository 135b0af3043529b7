package twins

import (
	"sort"
	"strings"

	"goa.design/vei/apitypes"
	"goa.design/vei/world"
)

const browserHistoryLimit = 32

// Browser is the toy web twin: a finite directed node graph with a cursor
// and a bounded history stack. It is not an HTML engine.
type Browser struct {
	nodes   map[string]world.BrowserNode
	current string
	history []string
	forms   map[string]string
}

// NewBrowser seeds the twin from the scenario graph. A missing or empty
// graph yields a single inert home node.
func NewBrowser(s world.Scenario) *Browser {
	nodes := s.BrowserNodes
	if len(nodes) == 0 {
		nodes = map[string]world.BrowserNode{
			"home": {
				URL:     "https://vweb.local/home",
				Title:   "Blank Workspace",
				Excerpt: "Nothing to see here.",
			},
		}
	}
	current := "home"
	if _, ok := nodes[current]; !ok {
		keys := make([]string, 0, len(nodes))
		for k := range nodes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		current = keys[0]
	}
	return &Browser{
		nodes:   nodes,
		current: current,
		forms:   make(map[string]string),
	}
}

// Read returns the current node.
func (b *Browser) Read() map[string]any {
	return b.nodePayload(b.current)
}

// Open navigates to the node whose URL matches.
func (b *Browser) Open(url string) (map[string]any, error) {
	if url == "" {
		return b.Read(), nil
	}
	for key, node := range b.nodes {
		if node.URL == url {
			b.push(key)
			return b.Read(), nil
		}
	}
	return nil, apitypes.Errorf("unknown_url", "no node for url: %s", url)
}

// Click follows the edge named by nodeID.
func (b *Browser) Click(nodeID string) (map[string]any, error) {
	node := b.nodes[b.current]
	dest, ok := node.Next[nodeID]
	if !ok {
		return nil, apitypes.Errorf("unknown_node", "no affordance %s at %s", nodeID, b.current)
	}
	if _, ok := b.nodes[dest]; !ok {
		return nil, apitypes.Errorf("unknown_node", "dangling edge %s -> %s", nodeID, dest)
	}
	b.push(dest)
	return b.Read(), nil
}

// Back pops the history stack; at the root it stays put.
func (b *Browser) Back() map[string]any {
	if n := len(b.history); n > 0 {
		b.current = b.history[n-1]
		b.history = b.history[:n-1]
	}
	return b.Read()
}

// Type records text into a named field on the current node.
func (b *Browser) Type(nodeID, text string) map[string]any {
	b.forms[b.current+"#"+nodeID] = text
	return map[string]any{"ok": true, "node_id": nodeID, "text": text}
}

// Submit flushes typed fields for the current node.
func (b *Browser) Submit(nodeID string) map[string]any {
	fields := map[string]any{}
	prefix := b.current + "#"
	for key, text := range b.forms {
		if strings.HasPrefix(key, prefix) {
			fields[strings.TrimPrefix(key, prefix)] = text
			delete(b.forms, key)
		}
	}
	return map[string]any{"ok": true, "node_id": nodeID, "fields": fields}
}

// Find scores nodes by token hits in title and excerpt, returning the top k
// with a stable tiebreak on node key.
func (b *Browser) Find(query string, topK int) []map[string]any {
	if topK <= 0 {
		topK = 5
	}
	tokens := strings.Fields(strings.ToLower(query))
	type hit struct {
		key   string
		score int
	}
	var hits []hit
	for key, node := range b.nodes {
		score := 0
		haystack := strings.ToLower(node.Title + " " + node.Excerpt)
		for _, tok := range tokens {
			if strings.Contains(haystack, tok) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{key: key, score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].key < hits[j].key
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		node := b.nodes[h.key]
		out = append(out, map[string]any{
			"node_id": h.key,
			"url":     node.URL,
			"title":   node.Title,
			"excerpt": node.Excerpt,
			"score":   h.score,
		})
	}
	return out
}

// Affordances lists the tool suggestions at the current node, used by the
// router when composing the action menu.
func (b *Browser) Affordances() []world.Affordance {
	return b.nodes[b.current].Affordances
}

// Deliver accepts graph mutations scheduled on the bus: a payload with
// node_id and node replaces or adds a node.
func (b *Browser) Deliver(payload map[string]any) (map[string]any, error) {
	nodeID := argString(payload, "node_id")
	if nodeID == "" {
		return nil, apitypes.NewError("invalid_args", "browser delivery requires node_id")
	}
	raw, _ := payload["node"].(map[string]any)
	node := world.BrowserNode{
		URL:     argString(raw, "url"),
		Title:   argString(raw, "title"),
		Excerpt: argString(raw, "excerpt"),
		Next:    map[string]string{},
	}
	if next, ok := raw["next"].(map[string]any); ok {
		for id, dest := range next {
			if d, ok := dest.(string); ok {
				node.Next[id] = d
			}
		}
	}
	b.nodes[nodeID] = node
	return map[string]any{"ok": true, "node_id": nodeID}, nil
}

func (b *Browser) push(dest string) {
	b.history = append(b.history, b.current)
	if len(b.history) > browserHistoryLimit {
		b.history = b.history[1:]
	}
	b.current = dest
}

func (b *Browser) nodePayload(key string) map[string]any {
	node := b.nodes[key]
	affordances := make([]map[string]any, 0, len(node.Affordances))
	for _, aff := range node.Affordances {
		args := aff.Args
		if args == nil {
			args = map[string]any{}
		}
		affordances = append(affordances, map[string]any{"tool": aff.Tool, "args": args})
	}
	return map[string]any{
		"node_id":     key,
		"url":         node.URL,
		"title":       node.Title,
		"excerpt":     node.Excerpt,
		"affordances": affordances,
	}
}
