package smfplay

import (
	"sync"

	"github.com/google/uuid"

	"github.com/keyfall/smfplay-go/internal/debug"
)

// Coordinator enforces the single-audible-player rule across every engine
// registered with it. When one player starts, every sibling's stop callback
// runs first, so at most one registration is ever audible.
type Coordinator struct {
	mu     sync.Mutex
	stops  map[string]func()
	active string
}

func NewCoordinator() *Coordinator {
	return &Coordinator{stops: map[string]func(){}}
}

// Register adds a player and returns its registration id. The stop callback
// is invoked whenever a sibling starts.
func (c *Coordinator) Register(stop func()) string {
	id := uuid.NewString()
	c.mu.Lock()
	c.stops[id] = stop
	c.mu.Unlock()
	return id
}

// Unregister fully removes a registration; its callback will never fire
// again and the id is forgotten.
func (c *Coordinator) Unregister(id string) {
	c.mu.Lock()
	delete(c.stops, id)
	if c.active == id {
		c.active = ""
	}
	c.mu.Unlock()
}

// NotifyStart marks id as the active player after stopping every sibling.
// A panicking callback is contained so one misbehaving player cannot keep
// the others from stopping.
func (c *Coordinator) NotifyStart(id string) {
	c.mu.Lock()
	siblings := make([]func(), 0, len(c.stops))
	for sid, stop := range c.stops {
		if sid != id && stop != nil {
			siblings = append(siblings, stop)
		}
	}
	c.active = id
	c.mu.Unlock()

	for _, stop := range siblings {
		func() {
			defer func() {
				if r := recover(); r != nil {
					debug.Logf("coordinator", "stop callback panicked: %v", r)
				}
			}()
			stop()
		}()
	}
}

// Active returns the id of the player that most recently started, or "".
func (c *Coordinator) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
