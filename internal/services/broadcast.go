package services

import "sync"

// Broadcaster fans a message out to every connected client. NudgeTelemetry
// schedules a debounced telemetry rebroadcast so clients observe state
// changes promptly without racing the direct reply to the sender.
type Broadcaster interface {
	Broadcast(v interface{})
	NudgeTelemetry()
}

// Persister is the load/save contract of the persistence gateway as consumed
// by the domain services. Failures are warnings, never fatal.
type Persister interface {
	Load(key string, out any) (bool, error)
	Save(key string, v any) error
}

// BroadcastRelay decouples the services from the transport hub: the hub is
// bound after construction, breaking the dependency cycle between the two.
// Until bound, broadcasts are dropped.
type BroadcastRelay struct {
	mu     sync.RWMutex
	target Broadcaster
}

func NewBroadcastRelay() *BroadcastRelay {
	return &BroadcastRelay{}
}

func (r *BroadcastRelay) Bind(b Broadcaster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = b
}

func (r *BroadcastRelay) Broadcast(v interface{}) {
	r.mu.RLock()
	t := r.target
	r.mu.RUnlock()
	if t != nil {
		t.Broadcast(v)
	}
}

func (r *BroadcastRelay) NudgeTelemetry() {
	r.mu.RLock()
	t := r.target
	r.mu.RUnlock()
	if t != nil {
		t.NudgeTelemetry()
	}
}
