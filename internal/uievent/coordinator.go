// Package uievent coordinates raw UI events (key presses, clicks, resize)
// across independent transient consumers such as popups. It installs one
// native listener per (target, event type) pair and fans out to registered
// handlers in priority order, so a modal's escape handler always runs
// before a page-level shortcut no matter who registered first.
package uievent

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Priority orders handler execution for one native event. Higher runs
// first. The numeric values are configuration, not contract.
type Priority int

const (
	PriorityLow      Priority = 10
	PriorityMedium   Priority = 20
	PriorityHigh     Priority = 30
	PriorityHighest  Priority = 40
	PriorityCritical Priority = 50
)

// NativeEvent is one occurrence of a raw UI event. A handler may stop
// propagation to short-circuit lower-priority handlers.
type NativeEvent struct {
	Type    string
	Payload any
	stopped bool
}

// StopPropagation prevents remaining lower-priority handlers from running.
func (e *NativeEvent) StopPropagation() {
	e.stopped = true
}

// Stopped reports whether propagation was stopped.
func (e *NativeEvent) Stopped() bool {
	return e.stopped
}

// Handler consumes one native event occurrence.
type Handler func(*NativeEvent)

// EventTarget is the collaborator that produces native events (a window, a
// document, a widget). AddNativeListener installs a listener and returns
// its removal function.
type EventTarget interface {
	AddNativeListener(eventType string, fn func(*NativeEvent)) (remove func())
}

// HandlerID identifies one registration for exact removal.
type HandlerID string

type registration struct {
	id       HandlerID
	priority Priority
	seq      uint64
	fn       Handler
}

type muxKey struct {
	target    EventTarget
	eventType string
}

type mux struct {
	remove   func()
	handlers []registration
}

// Coordinator multiplexes native listeners for many independent consumers
// with deterministic ordering and centralized teardown.
type Coordinator struct {
	mu        sync.Mutex
	log       *zap.Logger
	seq       uint64
	muxes     map[muxKey]*mux
	byID      map[HandlerID]muxKey
	destroyed bool
}

// NewCoordinator builds an empty coordinator.
func NewCoordinator(log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		log:   log,
		muxes: make(map[muxKey]*mux),
		byID:  make(map[HandlerID]muxKey),
	}
}

// On registers a handler for an event type on a target. The first
// registration for a (target, type) pair installs the single native
// listener; later ones only join the fan-out list.
func (c *Coordinator) On(target EventTarget, eventType string, handler Handler, priority Priority) HandlerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ""
	}

	key := muxKey{target: target, eventType: eventType}
	m, ok := c.muxes[key]
	if !ok {
		m = &mux{}
		m.remove = target.AddNativeListener(eventType, func(ev *NativeEvent) {
			c.fanOut(key, ev)
		})
		c.muxes[key] = m
	}

	c.seq++
	reg := registration{
		id:       HandlerID(uuid.NewString()),
		priority: priority,
		seq:      c.seq,
		fn:       handler,
	}
	m.handlers = append(m.handlers, reg)
	sort.SliceStable(m.handlers, func(i, j int) bool {
		if m.handlers[i].priority != m.handlers[j].priority {
			return m.handlers[i].priority > m.handlers[j].priority
		}
		return m.handlers[i].seq < m.handlers[j].seq
	})
	c.byID[reg.id] = key
	return reg.id
}

// Remove unregisters exactly one handler. The native listener is removed
// when the last handler for its (target, type) pair goes away. Unknown ids
// are a no-op.
func (c *Coordinator) Remove(id HandlerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.byID[id]
	if !ok {
		return
	}
	delete(c.byID, id)
	m := c.muxes[key]
	if m == nil {
		return
	}
	for i, reg := range m.handlers {
		if reg.id == id {
			m.handlers = append(m.handlers[:i], m.handlers[i+1:]...)
			break
		}
	}
	if len(m.handlers) == 0 {
		if m.remove != nil {
			m.remove()
		}
		delete(c.muxes, key)
	}
}

// Destroy unregisters every handler registered through this coordinator.
// After Destroy, handlers receive zero further events even if the native
// event still fires for other coordinators on the same target.
func (c *Coordinator) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.destroyed = true
	for key, m := range c.muxes {
		if m.remove != nil {
			m.remove()
		}
		delete(c.muxes, key)
	}
	c.byID = make(map[HandlerID]muxKey)
	c.log.Debug("uievent.coordinator.destroyed")
}

// HandlerCount reports registered handlers, for diagnostics.
func (c *Coordinator) HandlerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byID)
}

func (c *Coordinator) fanOut(key muxKey, ev *NativeEvent) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	m := c.muxes[key]
	if m == nil {
		c.mu.Unlock()
		return
	}
	handlers := make([]registration, len(m.handlers))
	copy(handlers, m.handlers)
	c.mu.Unlock()

	// A handler may destroy this coordinator or remove a later handler
	// while the event is in flight, so liveness is re-checked per handler
	// rather than trusted from the snapshot taken above.
	for _, reg := range handlers {
		if ev.stopped {
			return
		}
		c.mu.Lock()
		dead := c.destroyed
		_, live := c.byID[reg.id]
		c.mu.Unlock()
		if dead {
			return
		}
		if !live {
			continue
		}
		reg.fn(ev)
	}
}
