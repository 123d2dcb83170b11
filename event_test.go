package bipe

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fired(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestEventNotifyWakesListener(t *testing.T) {
	var ev event

	ch := ev.listen()
	require.False(t, fired(ch))

	ev.notify()
	require.True(t, fired(ch))
}

func TestEventNotifyWithoutListenerIsDropped(t *testing.T) {
	var ev event

	ev.notify()

	ch := ev.listen()
	require.False(t, fired(ch), "a notify before listen must not satisfy a later wait")
}

func TestEventRearm(t *testing.T) {
	var ev event

	first := ev.listen()
	ev.notify()
	require.True(t, fired(first))

	second := ev.listen()
	require.False(t, fired(second))
	ev.notify()
	require.True(t, fired(second))
}

func TestEventAbandonedListenDoesNotSwallowNotify(t *testing.T) {
	var ev event

	abandoned := ev.listen()
	_ = abandoned

	next := ev.listen()
	ev.notify()
	require.True(t, fired(next))
}

func TestEventConcurrentNotify(t *testing.T) {
	var ev event

	for range 1000 {
		ch := ev.listen()

		var wg sync.WaitGroup
		wg.Go(ev.notify)

		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatal("notify after listen was lost")
		}
		wg.Wait()
	}
}
