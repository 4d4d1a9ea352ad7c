package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchRoutesByKindInOrder(t *testing.T) {
	d := NewDispatcher()
	var got []string

	d.Subscribe(KindClick, func(_ context.Context, ev Event) { got = append(got, "a:"+ev.Target) })
	d.Subscribe(KindKeyDown, func(_ context.Context, ev Event) { got = append(got, "k:"+ev.Key) })
	d.Subscribe(KindClick, func(_ context.Context, ev Event) { got = append(got, "b:"+ev.Target) })

	n := d.Dispatch(context.Background(), Event{Kind: KindClick, Target: "body"})
	assert.Equal(t, 2, n)
	d.Dispatch(context.Background(), Event{Kind: KindKeyDown, Key: "Tab"})

	assert.Equal(t, []string{"a:body", "b:body", "k:Tab"}, got)
}

func TestUnsubscribeRemovesHandlerOnce(t *testing.T) {
	d := NewDispatcher()
	calls := 0
	unsubscribe := d.Subscribe(KindClick, func(context.Context, Event) { calls++ })
	other := d.Subscribe(KindClick, func(context.Context, Event) {})

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, d.Len())

	d.Dispatch(context.Background(), Event{Kind: KindClick})
	assert.Equal(t, 0, calls)

	other()
	assert.Equal(t, 0, d.Len())
}

func TestHandlerMaySubscribeDuringDispatch(t *testing.T) {
	d := NewDispatcher()
	d.Subscribe(KindClick, func(context.Context, Event) {
		d.Subscribe(KindClick, func(context.Context, Event) {})
	})

	d.Dispatch(context.Background(), Event{Kind: KindClick})
	assert.Equal(t, 2, d.Len())
}
