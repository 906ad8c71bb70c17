package smfplay

import (
	"sync/atomic"
	"testing"
)

func TestNotifyStartStopsSiblingsOnce(t *testing.T) {
	c := NewCoordinator()
	var aStops, bStops, cStops atomic.Int32
	idA := c.Register(func() { aStops.Add(1) })
	c.Register(func() { bStops.Add(1) })
	c.Register(func() { cStops.Add(1) })

	c.NotifyStart(idA)

	if got := aStops.Load(); got != 0 {
		t.Fatalf("starting player stopped %d times, want 0", got)
	}
	if got := bStops.Load(); got != 1 {
		t.Fatalf("sibling B stopped %d times, want 1", got)
	}
	if got := cStops.Load(); got != 1 {
		t.Fatalf("sibling C stopped %d times, want 1", got)
	}
	if c.Active() != idA {
		t.Fatalf("active = %q, want %q", c.Active(), idA)
	}
}

func TestUnregisterRemovesCallback(t *testing.T) {
	c := NewCoordinator()
	var stops atomic.Int32
	idA := c.Register(func() { stops.Add(1) })
	idB := c.Register(func() {})

	c.Unregister(idA)
	c.NotifyStart(idB)

	if got := stops.Load(); got != 0 {
		t.Fatalf("unregistered callback fired %d times", got)
	}
}

func TestUnregisterActiveClearsActive(t *testing.T) {
	c := NewCoordinator()
	id := c.Register(func() {})
	c.NotifyStart(id)
	c.Unregister(id)
	if got := c.Active(); got != "" {
		t.Fatalf("active = %q after unregister, want empty", got)
	}
}

func TestPanickingCallbackDoesNotBlockOthers(t *testing.T) {
	c := NewCoordinator()
	var stops atomic.Int32
	c.Register(func() { panic("bad player") })
	c.Register(func() { stops.Add(1) })
	id := c.Register(func() {})

	c.NotifyStart(id)

	if got := stops.Load(); got != 1 {
		t.Fatalf("healthy sibling stopped %d times, want 1", got)
	}
}

func TestRegistrationIDsAreUnique(t *testing.T) {
	c := NewCoordinator()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := c.Register(func() {})
		if seen[id] {
			t.Fatalf("duplicate registration id %q", id)
		}
		seen[id] = true
	}
}
