package orbit

import "sync"

// EventType identifies a state-change notification.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventJoined       EventType = "joined"
	EventLeft         EventType = "left"
	EventPeers        EventType = "peers"
)

// Event is one notification on the event stream. Fields are populated
// according to Type: Profile for connected, Name and Channel for joined,
// Name for left, Peers for peers.
type Event struct {
	Type    EventType
	Profile *UserProfile
	Name    string
	Channel *Channel
	Peers   []string
}

// Subscription is one observer's view of the event stream. Events arrive on C
// until Close is called or the subscription's buffer overflows, in which case
// newer events are dropped for that subscriber only.
type Subscription struct {
	C   <-chan Event
	c   chan Event
	bus *Bus
}

// Close detaches the subscription from the bus.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

// Bus fans state-change notifications out to registered subscribers.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

const subscriptionBuffer = 100

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new observer.
func (b *Bus) Subscribe() *Subscription {
	c := make(chan Event, subscriptionBuffer)
	sub := &Subscription{C: c, c: c, bus: b}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.c)
	}
}

// Publish delivers ev to every subscriber. Delivery never blocks the
// publisher; a subscriber that falls subscriptionBuffer events behind misses
// the overflow.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.c <- ev:
		default:
		}
	}
}
