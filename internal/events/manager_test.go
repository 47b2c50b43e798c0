package events

import (
	"errors"
	"testing"

	"github.com/yungbote/transcoderd/internal/platform/logger"
)

type fakeSubscriber struct {
	sent     []any
	closes   int
	failSend bool
}

func (f *fakeSubscriber) Send(v any) error {
	if f.failSend {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeSubscriber) Close() error {
	f.closes++
	return nil
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewManager(log)
}

func TestBroadcastProgress(t *testing.T) {
	m := newManager(t)
	a := &fakeSubscriber{}
	b := &fakeSubscriber{}
	m.Add("job-1", a)
	m.Add("job-1", b)
	m.Add("job-2", &fakeSubscriber{})

	m.Broadcast("job-1", EventProgress, "p1")
	m.Broadcast("job-1", EventProgress, "p2")

	for _, sub := range []*fakeSubscriber{a, b} {
		if len(sub.sent) != 2 {
			t.Fatalf("subscriber got %d messages, want 2", len(sub.sent))
		}
		if sub.closes != 0 {
			t.Fatalf("progress broadcast closed a subscriber")
		}
	}
}

func TestBroadcastCompletionClosesSubscribers(t *testing.T) {
	m := newManager(t)
	a := &fakeSubscriber{}
	m.Add("job-1", a)

	m.Broadcast("job-1", EventCompletion, "done")
	if len(a.sent) != 1 || a.sent[0] != "done" {
		t.Fatalf("completion payload not delivered: %v", a.sent)
	}
	if a.closes != 1 {
		t.Fatalf("closes = %d, want 1", a.closes)
	}

	// The subscriber is gone; later events must not reach it.
	m.Broadcast("job-1", EventProgress, "late")
	if len(a.sent) != 1 {
		t.Fatalf("closed subscriber received a later event")
	}
}

func TestBroadcastDropsDeadSubscriber(t *testing.T) {
	m := newManager(t)
	dead := &fakeSubscriber{failSend: true}
	live := &fakeSubscriber{}
	m.Add("job-1", dead)
	m.Add("job-1", live)

	m.Broadcast("job-1", EventProgress, "p1")
	if len(live.sent) != 1 {
		t.Fatalf("live subscriber got %d messages, want 1", len(live.sent))
	}
	if dead.closes != 1 {
		t.Fatalf("dead subscriber closes = %d, want 1", dead.closes)
	}

	dead.failSend = false
	m.Broadcast("job-1", EventProgress, "p2")
	if len(dead.sent) != 0 {
		t.Fatalf("dropped subscriber was broadcast to again")
	}
	if len(live.sent) != 2 {
		t.Fatalf("live subscriber got %d messages, want 2", len(live.sent))
	}
}

func TestRemove(t *testing.T) {
	m := newManager(t)
	a := &fakeSubscriber{}
	b := &fakeSubscriber{}
	m.Add("job-1", a)
	m.Add("job-1", b)
	m.Remove("job-1", a)

	m.Broadcast("job-1", EventProgress, "p1")
	if len(a.sent) != 0 {
		t.Fatalf("removed subscriber received an event")
	}
	if len(b.sent) != 1 {
		t.Fatalf("remaining subscriber got %d messages, want 1", len(b.sent))
	}
}
