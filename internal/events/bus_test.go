package events

import (
	"errors"
	"testing"
	"time"
)

func TestNewBus(t *testing.T) {
	bus := NewBus()
	if bus == nil {
		t.Fatal("expected non-nil bus")
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}
}

func TestBusSubscribeUnsubscribe(t *testing.T) {
	bus := NewBus()

	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	if bus.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", bus.SubscriberCount())
	}

	bus.Unsubscribe(ch1)
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}
	if _, ok := <-ch1; ok {
		t.Error("expected unsubscribed channel to be closed")
	}

	// Unknown channel should be ignored
	bus.Unsubscribe(make(chan Event))
	bus.Unsubscribe(ch2)
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}
}

func TestBusPublish(t *testing.T) {
	bus := NewBus()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()

	bus.Publish(NewPoolStartedEvent("id-1", "root", 4))

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.Type != EventPoolStarted {
				t.Errorf("subscriber %d: expected type %s, got %s", i, EventPoolStarted, received.Type)
			}
			if received.PoolName != "root" || received.Data.Workers != 4 {
				t.Errorf("subscriber %d: unexpected payload %+v", i, received)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestBusPublishNonBlocking(t *testing.T) {
	bus := NewBusWithBuffer(1)
	ch := bus.Subscribe()

	bus.Publish(NewWorkerExitedEvent("id-1", "root", 0, nil))
	bus.Publish(NewWorkerExitedEvent("id-1", "root", 1, nil))
	bus.Publish(NewWorkerExitedEvent("id-1", "root", 2, nil))

	if bus.Dropped() != 2 {
		t.Errorf("expected 2 dropped deliveries, got %d", bus.Dropped())
	}

	select {
	case e := <-ch:
		if e.Data.WorkerID != 0 {
			t.Errorf("expected first event to survive, got worker %d", e.Data.WorkerID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for first event")
	}
}

func TestNilBusPublish(t *testing.T) {
	var bus *Bus
	// Must not panic
	bus.Publish(NewPoolStoppedEvent("id-1", "root", nil))
}

func TestBusClose(t *testing.T) {
	bus := NewBus()

	ch := bus.Subscribe()
	bus.Close()

	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", bus.SubscriberCount())
	}
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}
}

func TestEventCreation(t *testing.T) {
	boom := errors.New("boom")

	t.Run("JobPanicked", func(t *testing.T) {
		e := NewJobPanickedEvent("id-1", "root", 3, boom)
		if e.Type != EventJobPanicked {
			t.Errorf("expected %s, got %s", EventJobPanicked, e.Type)
		}
		if e.Data.WorkerID != 3 || e.Data.Error != "boom" {
			t.Errorf("unexpected data %+v", e.Data)
		}
	})

	t.Run("PoolStoppedWithoutError", func(t *testing.T) {
		e := NewPoolStoppedEvent("id-1", "root", nil)
		if e.Type != EventPoolStopped {
			t.Errorf("expected %s, got %s", EventPoolStopped, e.Type)
		}
		if e.Data.Error != "" {
			t.Errorf("expected empty error, got %q", e.Data.Error)
		}
	})

	t.Run("SubmitRejected", func(t *testing.T) {
		e := NewSubmitRejectedEvent("id-1", "nested", boom)
		if e.Type != EventSubmitRejected || e.PoolName != "nested" {
			t.Errorf("unexpected event %+v", e)
		}
	})
}
