package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
)

func TestDispatcherDeliversAndStampsID(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	defer d.Close()

	d.Emit(context.Background(), Event{EventType: "login_success", Success: true})

	select {
	case ev := <-sink.Events():
		if ev.ID == "" {
			t.Fatal("expected event id to be assigned")
		}
		if ev.EventType != "login_success" {
			t.Fatalf("unexpected event type %q", ev.EventType)
		}
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) {
	<-s.release
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "refresh_success"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a stalled sink")
	}
	close(sink.release)
	d.Close()
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func TestDispatcherCloseDrainsInOrder(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{EventType: strconv.Itoa(i)})
	}
	d.Close()
	d.Close()

	if len(sink.events) != 50 {
		t.Fatalf("expected 50 delivered events, got %d", len(sink.events))
	}
	for i, ev := range sink.events {
		if ev.EventType != strconv.Itoa(i) {
			t.Fatalf("event %d out of order: %q", i, ev.EventType)
		}
	}

	d.Emit(context.Background(), Event{EventType: "late"})
	if len(sink.events) != 50 {
		t.Fatal("emit after close must be ignored")
	}
}

type panickingSink struct{}

func (panickingSink) Emit(context.Context, Event) { panic("sink broke") }

func TestDispatcherSurvivesSinkPanic(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, panickingSink{})
	d.Emit(context.Background(), Event{EventType: "login_success"})
	d.Emit(context.Background(), Event{EventType: "logout"})
	d.Close()

	if got := d.Failed(); got != 2 {
		t.Fatalf("expected 2 failed deliveries, got %d", got)
	}
}

func TestDispatcherBlockingHonoursContext(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	// The first event occupies the sink, the second fills the buffer.
	d.Emit(context.Background(), Event{EventType: "a"})
	d.Emit(context.Background(), Event{EventType: "b"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "c"})
	if d.Dropped() == 0 {
		t.Fatal("expected the event to be dropped once its context expired")
	}

	close(sink.release)
	d.Close()
}

func TestDispatcherLogsDrops(t *testing.T) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, JSONFormat: true})
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true, Logger: logger}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "refresh_success"})
	}
	close(sink.release)
	d.Close()

	if !strings.Contains(buf.String(), "audit buffer full") {
		t.Fatalf("expected drop warning, got %q", buf.String())
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{ID: "a", EventType: "logout", IdentityID: 3, Success: true})
	sink.Emit(context.Background(), Event{ID: "b", EventType: "logout", Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if ev.IdentityID != 3 || ev.ID != "a" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestHCLogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{
		Output:     &buf,
		Level:      hclog.Info,
		JSONFormat: true,
	})
	sink := NewHCLogSink(logger)

	sink.Emit(context.Background(), Event{ID: "1", EventType: "login_failure", Error: "invalid_credentials"})
	sink.Emit(context.Background(), Event{ID: "2", EventType: "login_success", Success: true, IdentityID: 9})

	out := buf.String()
	if !strings.Contains(out, `"@level":"warn"`) || !strings.Contains(out, `"@level":"info"`) {
		t.Fatalf("expected warn and info lines, got %s", out)
	}
	if !strings.Contains(out, `"identity_id":9`) {
		t.Fatalf("expected identity_id field, got %s", out)
	}
}
