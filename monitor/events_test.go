package monitor

import "testing"

func TestEmitterDeliversEvents(t *testing.T) {
	e := NewEventEmitter("sess-1", 4)
	e.Emit(EventReviewStart, map[string]interface{}{"n": 1})
	e.Close()

	var got []SessionEvent
	for ev := range e.Events() {
		got = append(got, ev)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Kind != EventReviewStart || got[0].SessionID != "sess-1" {
		t.Errorf("unexpected event: %+v", got[0])
	}
}

func TestEmitterDropsWhenFull(t *testing.T) {
	e := NewEventEmitter("sess-1", 2)
	for i := 0; i < 10; i++ {
		e.Emit(EventReviewEnd, nil) // must not block
	}
	e.Close()

	count := 0
	for range e.Events() {
		count++
	}
	if count != 2 {
		t.Errorf("expected buffer-limited 2 events, got %d", count)
	}
}

func TestEmitterCloseIdempotent(t *testing.T) {
	e := NewEventEmitter("sess-1", 1)
	e.Close()
	e.Close() // must not panic
	e.Emit(EventError, nil)

	for range e.Events() {
		t.Error("no events expected after close")
	}
}
