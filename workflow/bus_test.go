package workflow

import "testing"

func TestEventBus_EmitNotifiesInSubscriptionOrder(t *testing.T) {
	b := NewEventBus()
	var order []string
	b.On("x", func(payload any) { order = append(order, "first") })
	b.On("x", func(payload any) { order = append(order, "second") })

	b.Emit("x", 1)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v, want [first second]", order)
	}
}

func TestEventBus_OnAllReceivesEveryChannel(t *testing.T) {
	b := NewEventBus()
	seen := map[string]any{}
	b.OnAll(func(channel string, payload any) { seen[channel] = payload })

	b.Emit("a", 1)
	b.Emit("b", "two")

	if seen["a"] != 1 || seen["b"] != "two" {
		t.Fatalf("seen = %v, want a=1 b=two", seen)
	}
}

func TestEventBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := NewEventBus()
	var calls int
	unsubscribe := b.On("x", func(payload any) { calls++ })

	b.Emit("x", 1)
	unsubscribe()
	b.Emit("x", 2)

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestEventBus_GetStateReturnsLastPayload(t *testing.T) {
	b := NewEventBus()
	b.Emit("x", "first")
	b.Emit("x", "second")

	v, ok := b.GetState("x")
	if !ok || v != "second" {
		t.Fatalf("GetState = (%v, %v), want (second, true)", v, ok)
	}
}

func TestEventBus_SnapshotRestoreRoundTrip(t *testing.T) {
	b := NewEventBus()
	b.Emit("x", 1)
	b.Emit("y", "two")

	snap := b.GetAllState()

	restored := NewEventBus()
	restored.SetAllState(snap)

	x, _ := restored.GetState("x")
	y, _ := restored.GetState("y")
	if x != 1 || y != "two" {
		t.Fatalf("restored = (%v, %v), want (1, two)", x, y)
	}
}

func TestEventBus_UpdateAppliesFunctionAndEmits(t *testing.T) {
	b := NewEventBus()
	b.Emit("counter", 0)

	var lastSeen any
	b.On("counter", func(payload any) { lastSeen = payload })

	b.Update("counter", func(prev any) any {
		n, _ := prev.(int)
		return n + 1
	})

	if lastSeen != 1 {
		t.Fatalf("lastSeen = %v, want 1", lastSeen)
	}
}
