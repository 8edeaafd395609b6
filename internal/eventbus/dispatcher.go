package eventbus

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sakugaworks/cutflow/internal/apperr"
	"github.com/sakugaworks/cutflow/internal/cut"
	obsmetrics "github.com/sakugaworks/cutflow/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Priority orders handler execution within one dispatch. Higher runs first.
type Priority int

const (
	PriorityLow      Priority = 10
	PriorityMedium   Priority = 20
	PriorityHigh     Priority = 30
	PriorityHighest  Priority = 40
	PriorityCritical Priority = 50
)

// Handler consumes one domain event.
type Handler func(cut.Event)

// SubscriptionID identifies one subscription for removal.
type SubscriptionID uint64

type subscription struct {
	id       SubscriptionID
	priority Priority
	seq      uint64
	fn       Handler
}

// Dispatcher is a typed publish/subscribe bus for domain events. Handlers
// for one dispatch run in descending priority order, stable within equal
// priority. A failing handler never stops the rest. A Dispatch issued from
// inside a handler is queued and drained after the current pass, so
// loosely coupled subscribers cannot recurse into each other.
type Dispatcher struct {
	mu          sync.Mutex
	log         *zap.Logger
	recorder    *apperr.Recorder
	nextID      SubscriptionID
	nextSeq     uint64
	subs        map[cut.EventType][]subscription
	queue       []cut.Event
	dispatching bool
}

// NewDispatcher builds a dispatcher reporting handler failures through the
// supplied recorder.
func NewDispatcher(log *zap.Logger, recorder *apperr.Recorder) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		log:      log,
		recorder: recorder,
		subs:     make(map[cut.EventType][]subscription),
	}
}

// Subscribe registers a handler for an event type at a priority.
func (d *Dispatcher) Subscribe(eventType cut.EventType, handler Handler, priority Priority) SubscriptionID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.nextSeq++
	sub := subscription{
		id:       d.nextID,
		priority: priority,
		seq:      d.nextSeq,
		fn:       handler,
	}
	subs := append(d.subs[eventType], sub)
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].priority != subs[j].priority {
			return subs[i].priority > subs[j].priority
		}
		return subs[i].seq < subs[j].seq
	})
	d.subs[eventType] = subs
	return sub.id
}

// Unsubscribe removes a subscription. Unknown ids are a no-op.
func (d *Dispatcher) Unsubscribe(id SubscriptionID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for eventType, subs := range d.subs {
		for i, sub := range subs {
			if sub.id == id {
				d.subs[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Dispatch delivers an event to every subscriber of its type. Reentrant
// calls are queued behind the in-flight dispatch and processed in order.
func (d *Dispatcher) Dispatch(event cut.Event) {
	d.mu.Lock()
	if d.dispatching {
		d.queue = append(d.queue, event)
		d.mu.Unlock()
		return
	}
	d.dispatching = true
	d.mu.Unlock()

	current := event
	for {
		d.deliver(current)
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.dispatching = false
			d.mu.Unlock()
			return
		}
		current = d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()
	}
}

func (d *Dispatcher) deliver(event cut.Event) {
	d.mu.Lock()
	subs := make([]subscription, len(d.subs[event.Type]))
	copy(subs, d.subs[event.Type])
	d.mu.Unlock()

	obsmetrics.Core().IncEventDispatched(string(event.Type))
	for _, sub := range subs {
		d.runHandler(event, sub)
	}
}

func (d *Dispatcher) runHandler(event cut.Event, sub subscription) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("handler panic on %s: %v", event.Type, rec)
			obsmetrics.Core().IncHandlerError("eventbus")
			if d.recorder != nil {
				d.recorder.Record("eventbus.handler", err)
			}
			d.log.Error("eventbus.handler.panic",
				zap.String("event_type", string(event.Type)),
				zap.String("aggregate_id", event.AggregateID),
				zap.Uint64("subscription_id", uint64(sub.id)),
				zap.Any("panic", rec),
			)
		}
	}()
	sub.fn(event)
}

// Module provides the shared dispatcher.
var Module = fx.Module("eventbus",
	fx.Provide(NewDispatcher),
)
