package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
)

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to a reader through a buffered channel. Emit
// blocks while the channel is full unless ctx ends first.
type ChannelSink struct {
	ch chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.ch <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event { return s.ch }

// JSONWriterSink writes one JSON object per line. Write errors are dropped.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		w = io.Discard
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(event)
}

// SlogSink logs events through a structured logger: failures at Warn,
// everything else at Info. Metadata goes under a "meta" group.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(ctx context.Context, event Event) {
	attrs := make([]slog.Attr, 0, 8)
	attrs = append(attrs,
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.Time("at", event.Timestamp),
	)
	for _, kv := range [...][2]string{
		{"user_id", event.UserID},
		{"jti", event.JTI},
		{"ip", event.IP},
		{"error", event.Error},
	} {
		if kv[1] != "" {
			attrs = append(attrs, slog.String(kv[0], kv[1]))
		}
	}
	if len(event.Metadata) > 0 {
		meta := make([]any, 0, len(event.Metadata))
		for k, v := range event.Metadata {
			meta = append(meta, slog.String(k, v))
		}
		attrs = append(attrs, slog.Group("meta", meta...))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(ctx, level, "authcore: audit", attrs...)
}
