// Package events is the terminal-wide listener registry. Payment sessions
// subscribe when they open and unsubscribe when they close.
package events

import (
	"context"
	"sort"
	"sync"
)

type Kind string

const (
	KindClick   Kind = "click"
	KindKeyDown Kind = "keydown"
)

// Click targets that keep the current payment mode selected.
const (
	TargetModeOfPayment = "mode-of-payment"
	TargetNumpad        = "numpad"
)

type Event struct {
	Kind   Kind   `json:"kind"`
	Target string `json:"target,omitempty"`
	Key    string `json:"key,omitempty"`
	Ctrl   bool   `json:"ctrl,omitempty"`
	Meta   bool   `json:"meta,omitempty"`
}

type Handler func(ctx context.Context, ev Event)

type subscription struct {
	kind    Kind
	handler Handler
}

type Dispatcher struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscription
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[int]subscription)}
}

// Subscribe registers handler for kind. The returned func removes it and is
// safe to call more than once.
func (d *Dispatcher) Subscribe(kind Kind, handler Handler) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.subs[id] = subscription{kind: kind, handler: handler}
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
		})
	}
}

// Dispatch delivers ev to every handler of its kind in subscription order.
// Handlers run without the dispatcher lock held.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) int {
	d.mu.Lock()
	ids := make([]int, 0, len(d.subs))
	for id, sub := range d.subs {
		if sub.kind == ev.Kind {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, d.subs[id].handler)
	}
	d.mu.Unlock()

	for _, handler := range handlers {
		handler(ctx, ev)
	}
	return len(handlers)
}

func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}
