package router

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
)

// traceRingSize bounds the in-memory record ring served by Tail.
const traceRingSize = 2048

// Trace is the append-only session log: one record per tool call and per bus
// delivery, mirrored to trace.jsonl under the artifacts directory when one is
// configured. A rolling sha256 over the appended records serves as the state
// head for snapshots and scoring.
type Trace struct {
	outDir  string
	records []map[string]any
	pending []map[string]any
	head    [sha256.Size]byte
	count   int
}

// NewTrace creates a trace writing to dir/trace.jsonl; an empty dir keeps the
// trace purely in memory.
func NewTrace(dir string) *Trace {
	return &Trace{outDir: dir}
}

// OutDir returns the artifacts directory, empty when in-memory only.
func (t *Trace) OutDir() string { return t.outDir }

// AppendCall records one executed tool call.
func (t *Trace) AppendCall(timeMS int64, tool string, args map[string]any, response any, latencyMS int64) {
	if args == nil {
		args = map[string]any{}
	}
	t.append(map[string]any{
		"type":       "call",
		"time_ms":    timeMS,
		"tool":       tool,
		"args":       args,
		"response":   response,
		"latency_ms": latencyMS,
	})
}

// AppendEvent records one bus delivery.
func (t *Trace) AppendEvent(timeMS int64, target string, payload map[string]any) {
	t.append(map[string]any{
		"type":    "event",
		"time_ms": timeMS,
		"target":  target,
		"payload": payload,
	})
}

// AppendError records a structural failure such as bus.unknown_target.
func (t *Trace) AppendError(timeMS int64, code string, detail map[string]any) {
	t.append(map[string]any{
		"type":    "error",
		"time_ms": timeMS,
		"code":    code,
		"detail":  detail,
	})
}

// Tail returns up to n most recent records, oldest first.
func (t *Trace) Tail(n int) []map[string]any {
	if n <= 0 || n > len(t.records) {
		n = len(t.records)
	}
	out := make([]map[string]any, n)
	copy(out, t.records[len(t.records)-n:])
	return out
}

// Len reports the number of records appended over the session lifetime.
func (t *Trace) Len() int { return t.count }

// Head returns the rolling sha256 over every appended record as hex.
func (t *Trace) Head() string {
	return hex.EncodeToString(t.head[:])
}

// Flush writes buffered records to trace.jsonl. Safe to call repeatedly.
func (t *Trace) Flush() error {
	if t.outDir == "" || len(t.pending) == 0 {
		t.pending = nil
		return nil
	}
	if err := os.MkdirAll(t.outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(t.outDir, "trace.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, record := range t.pending {
		line, err := json.Marshal(record)
		if err != nil {
			continue
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	t.pending = nil
	return nil
}

func (t *Trace) append(record map[string]any) {
	t.count++
	t.records = append(t.records, record)
	if len(t.records) > traceRingSize {
		t.records = t.records[len(t.records)-traceRingSize:]
	}
	t.pending = append(t.pending, record)
	// Map keys marshal sorted, keeping the head reproducible.
	line, err := json.Marshal(record)
	if err != nil {
		return
	}
	h := sha256.New()
	h.Write(t.head[:])
	h.Write(line)
	copy(t.head[:], h.Sum(nil))
}
