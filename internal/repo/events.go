package repo

import "sync"

type EventKind string

const (
	EventLoaded     EventKind = "loaded"
	EventLoadFailed EventKind = "load_failed"
	EventAdded      EventKind = "added"
	EventUpdated    EventKind = "updated"
	EventRemoved    EventKind = "removed"
	EventSyncFailed EventKind = "sync_failed"
)

// Event tells subscribers that the collection changed.
type Event struct {
	Kind   EventKind `json:"kind"`
	TaskID int64     `json:"task_id,omitempty"`
	Op     string    `json:"op,omitempty"`
	Err    string    `json:"error,omitempty"`
}

const subscriberBuffer = 32

type notifier struct {
	subMu  sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// Subscribe returns a channel of change events and a func that ends the
// subscription. A subscriber that falls behind misses events; senders never block.
func (n *notifier) Subscribe() (<-chan Event, func()) {
	n.subMu.Lock()
	defer n.subMu.Unlock()

	if n.subs == nil {
		n.subs = make(map[int]chan Event)
	}
	id := n.nextID
	n.nextID++
	ch := make(chan Event, subscriberBuffer)
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.subMu.Lock()
			defer n.subMu.Unlock()
			delete(n.subs, id)
			close(ch)
		})
	}
}

func (n *notifier) emit(e Event) {
	n.subMu.Lock()
	defer n.subMu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
