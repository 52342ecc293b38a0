package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ccawaisnadeem/storefront-go/internal/domain"
)

const defaultDuration = 5 * time.Second

type EventKind int

const (
	EventAdded EventKind = iota
	EventRemoved
)

// Event is what subscribers receive when a notification appears or expires.
type Event struct {
	Kind         EventKind
	Notification domain.Notification
}

// Center is a process-wide log of transient user-facing messages. Every
// notification carries its own expiry timer; subscribers see additions and
// removals in order.
type Center struct {
	mu      sync.Mutex
	active  map[string]domain.Notification
	timers  map[string]*time.Timer
	subs    map[int]chan Event
	nextSub int
}

func NewCenter() *Center {
	return &Center{
		active: make(map[string]domain.Notification),
		timers: make(map[string]*time.Timer),
		subs:   make(map[int]chan Event),
	}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away; events are dropped, not blocked on, if the
// listener falls behind.
func (c *Center) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Event, 16)
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

func (c *Center) Success(title, message string) string {
	return c.Push(domain.Notification{Type: domain.NotificationSuccess, Title: title, Message: message})
}

func (c *Center) Error(title, message string) string {
	return c.Push(domain.Notification{Type: domain.NotificationError, Title: title, Message: message, ShowClose: true})
}

func (c *Center) Warning(title, message string) string {
	return c.Push(domain.Notification{Type: domain.NotificationWarning, Title: title, Message: message})
}

func (c *Center) Info(title, message string) string {
	return c.Push(domain.Notification{Type: domain.NotificationInfo, Title: title, Message: message})
}

// Push adds a notification, assigns its ID and arms its expiry timer.
func (c *Center) Push(n domain.Notification) string {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Duration <= 0 {
		n.Duration = defaultDuration
	}

	c.mu.Lock()
	c.active[n.ID] = n
	c.timers[n.ID] = time.AfterFunc(n.Duration, func() { c.Dismiss(n.ID) })
	c.broadcast(Event{Kind: EventAdded, Notification: n})
	c.mu.Unlock()

	return n.ID
}

// Dismiss removes a notification before (or at) its expiry. Unknown IDs are
// ignored, so the timer callback and a manual close can race safely.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.active[id]
	if !ok {
		return
	}
	delete(c.active, id)
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	c.broadcast(Event{Kind: EventRemoved, Notification: n})
}

// Active returns the currently visible notifications.
func (c *Center) Active() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Notification, 0, len(c.active))
	for _, n := range c.active {
		out = append(out, n)
	}
	return out
}

// broadcast requires c.mu held.
func (c *Center) broadcast(ev Event) {
	for _, sub := range c.subs {
		select {
		case sub <- ev:
		default: // slow subscriber, drop
		}
	}
}
