package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Event is one security-relevant engine decision. Token ids are stored as a
// short prefix of the ledger key; raw tokens never reach an Event.
type Event struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	EventType  string            `json:"event_type"`
	IdentityID int64             `json:"identity_id,omitempty"`
	TokenID    string            `json:"token_id,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	IP         string            `json:"ip,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
}

// HCLogSink logs each event as one structured line. Failed decisions are
// logged at warn, everything else at info.
type HCLogSink struct {
	logger hclog.Logger
}

func NewHCLogSink(logger hclog.Logger) *HCLogSink {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &HCLogSink{logger: logger.Named("audit")}
}

func (s *HCLogSink) Emit(_ context.Context, event Event) {
	if s == nil {
		return
	}

	args := []interface{}{
		"event_id", event.ID,
		"success", event.Success,
	}
	if event.IdentityID != 0 {
		args = append(args, "identity_id", event.IdentityID)
	}
	if event.TokenID != "" {
		args = append(args, "token_id", event.TokenID)
	}
	if event.RequestID != "" {
		args = append(args, "request_id", event.RequestID)
	}
	if event.IP != "" {
		args = append(args, "ip", event.IP)
	}
	if event.Error != "" {
		args = append(args, "error", event.Error)
	}
	for k, v := range event.Metadata {
		args = append(args, k, v)
	}

	if event.Success {
		s.logger.Info(event.EventType, args...)
		return
	}
	s.logger.Warn(event.EventType, args...)
}
