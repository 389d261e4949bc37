package events

import "testing"

func TestEmitDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []int
	bus.Subscribe(SyncProgress, func(payload any) { order = append(order, 1) })
	bus.Subscribe(SyncProgress, func(payload any) { order = append(order, 2) })
	bus.Subscribe(SyncProgress, func(payload any) { order = append(order, 3) })

	bus.EmitProgress(1, 2, 3)

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestEmitPassesTypedPayload(t *testing.T) {
	bus := NewBus()
	var got *ProgressPayload
	bus.Subscribe(SyncProgress, func(payload any) { got = payload.(*ProgressPayload) })

	bus.EmitProgress(5, 6, 7)

	if got == nil || got.Pending != 5 || got.Done != 6 || got.Failed != 7 {
		t.Fatalf("got = %+v, want {5 6 7}", got)
	}
}

func TestEmitOnlyDeliversToSubscribedEvent(t *testing.T) {
	bus := NewBus()
	called := false
	bus.Subscribe(SyncComplete, func(payload any) { called = true })

	bus.EmitStart([]string{"1A..."})

	if called {
		t.Fatal("subscriber to sync:complete was invoked by sync:start")
	}
}

func TestSubscriberPanicDoesNotStopOtherSubscribers(t *testing.T) {
	bus := NewBus()
	secondCalled := false
	bus.Subscribe(SyncError, func(payload any) { panic("boom") })
	bus.Subscribe(SyncError, func(payload any) { secondCalled = true })

	bus.EmitError("disconnected")

	if !secondCalled {
		t.Fatal("second subscriber was not invoked after the first panicked")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsubscribe := bus.Subscribe(SyncComplete, func(payload any) { calls++ })

	bus.EmitComplete()
	unsubscribe()
	bus.EmitComplete()

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
