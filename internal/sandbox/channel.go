package sandbox

import (
	"sync"

	"github.com/vizlet/vizlet/internal/types"
)

// subscriberBuffer bounds each subscriber channel. Outcome messages are
// tiny and rare; a slow consumer loses the oldest rather than blocking an
// execution.
const subscriberBuffer = 8

// Dispatcher is the host side of the message channel. It attributes
// messages to widget executions and discards messages from superseded
// contexts: when a widget's spec changes while an old execution is still in
// flight, the old execution's eventual ready/error can never be applied to
// the new one.
type Dispatcher struct {
	mu          sync.RWMutex
	generations map[string]uint64
	subscribers map[string]map[chan types.Message]struct{}
	firehose    map[chan types.Message]struct{}
}

// NewDispatcher creates a message dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		generations: make(map[string]uint64),
		subscribers: make(map[string]map[chan types.Message]struct{}),
		firehose:    make(map[chan types.Message]struct{}),
	}
}

// Advance marks fingerprint as widgetID's current generation. Messages
// stamped with any other fingerprint are discarded from now on.
func (d *Dispatcher) Advance(widgetID string, fingerprint uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generations[widgetID] = fingerprint
}

// Forget drops generation tracking for an unmounted widget.
func (d *Dispatcher) Forget(widgetID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.generations, widgetID)
}

// Subscribe returns a channel receiving messages attributed to widgetID and
// a cancel function.
func (d *Dispatcher) Subscribe(widgetID string) (<-chan types.Message, func()) {
	ch := make(chan types.Message, subscriberBuffer)

	d.mu.Lock()
	if d.subscribers[widgetID] == nil {
		d.subscribers[widgetID] = make(map[chan types.Message]struct{})
	}
	d.subscribers[widgetID][ch] = struct{}{}
	d.mu.Unlock()

	cancel := func() {
		d.mu.Lock()
		if subs, ok := d.subscribers[widgetID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(d.subscribers, widgetID)
			}
		}
		d.mu.Unlock()
	}
	return ch, cancel
}

// SubscribeAll returns a channel receiving every accepted message,
// regardless of widget. Used for streaming render outcomes to dashboards.
func (d *Dispatcher) SubscribeAll() (<-chan types.Message, func()) {
	ch := make(chan types.Message, subscriberBuffer*4)

	d.mu.Lock()
	d.firehose[ch] = struct{}{}
	d.mu.Unlock()

	cancel := func() {
		d.mu.Lock()
		delete(d.firehose, ch)
		d.mu.Unlock()
	}
	return ch, cancel
}

// Dispatch validates and routes one message. It reports whether the message
// was accepted: unknown kinds and messages from stale generations are
// dropped. The payload is never executed, only used to toggle state.
func (d *Dispatcher) Dispatch(msg types.Message) bool {
	if msg.Type != types.MessageReady && msg.Type != types.MessageError {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if current, tracked := d.generations[msg.WidgetID]; tracked && current != msg.Fingerprint {
		return false
	}

	for ch := range d.subscribers[msg.WidgetID] {
		select {
		case ch <- msg:
		default:
		}
	}
	for ch := range d.firehose {
		select {
		case ch <- msg:
		default:
		}
	}
	return true
}
