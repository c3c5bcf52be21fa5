// Package events provides a minimal observer registry: a mapping from
// event name to an ordered list of handlers, dispatched synchronously.
//
// The registry performs no goroutine management of its own. Emit invokes
// handlers on the calling goroutine in registration order, so a component
// that emits from a single loop goroutine gets strict ordering across all
// of its events for free.
package events

import "sync"

// Handler receives an event payload. The payload type for each event name
// is part of the emitting component's contract.
type Handler func(payload any)

// Subscription identifies a registered handler so it can be removed.
// The zero value is not a valid subscription.
type Subscription struct {
	name string
	id   uint64
}

type registration struct {
	id uint64
	fn Handler
}

// Registry maps event names to ordered handler lists.
//
// On/Off may be called from any goroutine. Emit snapshots the handler list
// under the lock and then invokes handlers without holding it, so handlers
// may themselves call On or Off. Ordering across concurrent Emit calls is
// the emitter's responsibility.
type Registry struct {
	mu       sync.Mutex
	handlers map[string][]registration
	nextID   uint64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]registration)}
}

// On registers h for the named event and returns a Subscription for later
// removal. Handlers run in registration order. A nil handler is ignored
// and yields a Subscription that Off treats as a no-op.
func (r *Registry) On(name string, h Handler) Subscription {
	if h == nil {
		return Subscription{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.handlers[name] = append(r.handlers[name], registration{id: id, fn: h})
	return Subscription{name: name, id: id}
}

// Off removes the handler identified by sub. Removing an unknown or
// already-removed subscription is a no-op.
func (r *Registry) Off(sub Subscription) {
	if sub.id == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	regs := r.handlers[sub.name]
	for i, reg := range regs {
		if reg.id == sub.id {
			r.handlers[sub.name] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// Emit invokes all handlers registered for name, in registration order, on
// the calling goroutine. Handlers registered during an Emit do not receive
// that emission.
func (r *Registry) Emit(name string, payload any) {
	r.mu.Lock()
	regs := r.handlers[name]
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)
	r.mu.Unlock()

	for _, reg := range snapshot {
		reg.fn(payload)
	}
}

// HandlerCount returns the number of handlers registered for name.
// Intended for tests and observability.
func (r *Registry) HandlerCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers[name])
}
