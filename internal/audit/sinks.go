package audit

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// LogSink writes each event as one structured log line.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Write implements Sink.
func (s *LogSink) Write(ctx context.Context, e Event) error {
	attrs := []slog.Attr{
		slog.String("event_id", e.ID),
		slog.String("kind", string(e.Kind)),
		slog.Time("at", e.At),
	}
	if e.ActorID != "" {
		attrs = append(attrs, slog.String("actor_id", e.ActorID))
	}
	if e.UserID != "" {
		attrs = append(attrs, slog.String("user_id", e.UserID))
	}
	if e.Platform != "" {
		attrs = append(attrs, slog.String("platform", e.Platform))
	}
	if e.KeyCode != "" {
		attrs = append(attrs, slog.String("key_code", e.KeyCode))
	}
	if e.Points != 0 {
		attrs = append(attrs, slog.Int64("points", e.Points))
	}
	if e.Points != 0 || e.Balance != 0 {
		attrs = append(attrs, slog.Int64("balance", e.Balance))
	}
	if len(e.Details) > 0 {
		details := make([]any, 0, len(e.Details))
		for _, k := range slices.Sorted(maps.Keys(e.Details)) {
			details = append(details, slog.String(k, e.Details[k]))
		}
		attrs = append(attrs, slog.Group("details", details...))
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	return nil
}

// MemorySink keeps the most recent events in memory. It backs the recent
// events view when the journal is disabled.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewMemorySink keeps at most limit events, discarding the oldest.
// A limit <= 0 keeps everything.
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{limit: limit}
}

// Name implements Sink.
func (s *MemorySink) Name() string { return "memory" }

// Write implements Sink.
func (s *MemorySink) Write(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if s.limit > 0 && len(s.events) > s.limit {
		s.events = slices.Delete(s.events, 0, len(s.events)-s.limit)
	}
	return nil
}

// Events returns a copy of the stored events, oldest first.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// Recent implements Reader.
func (s *MemorySink) Recent(_ context.Context, q Query) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q.normalize()
	var out []Event
	for _, e := range slices.Backward(s.events) {
		if !q.matches(e) {
			continue
		}
		out = append(out, e)
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}
