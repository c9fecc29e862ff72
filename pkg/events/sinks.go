package events

import (
	"context"
	"log/slog"
	"sync"
)

// SlogSink writes each event as one structured log record.
type SlogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogSink creates a sink that logs at level. A nil logger uses the
// default logger.
func NewSlogSink(logger *slog.Logger, level slog.Level) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With("component", "events"), level: level}
}

// Append logs the envelope.
func (s *SlogSink) Append(ctx context.Context, e Envelope) error {
	s.logger.LogAttrs(ctx, s.level, "event",
		slog.String("event_id", e.ID),
		slog.String("event_type", e.Type),
		slog.String("source", e.Source),
		slog.String("idempotency_key", e.IdempotencyKey),
		slog.String("workflow_id", e.WorkflowID),
		slog.String("payload", string(e.Payload)),
	)
	return nil
}

// MemorySink keeps events in memory, dropping duplicate idempotency keys.
// It is safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	events []Envelope
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{seen: make(map[string]struct{})}
}

// Append stores e unless an event with the same idempotency key was stored.
func (m *MemorySink) Append(_ context.Context, e Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.IdempotencyKey != "" {
		if _, dup := m.seen[e.IdempotencyKey]; dup {
			return nil
		}
		m.seen[e.IdempotencyKey] = struct{}{}
	}
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of the stored events in arrival order.
func (m *MemorySink) Events() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Envelope(nil), m.events...)
}

// OfType returns the stored events with the given type.
func (m *MemorySink) OfType(eventType string) []Envelope {
	var out []Envelope
	for _, e := range m.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Fanout appends every event to each of its sinks and returns the first error.
type Fanout []EventSink

// Append implements EventSink.
func (f Fanout) Append(ctx context.Context, e Envelope) error {
	var first error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Append(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
