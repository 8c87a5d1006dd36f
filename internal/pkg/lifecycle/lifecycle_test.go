package lifecycle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_NotifiesOnChangeOnly(t *testing.T) {
	n := NewNotifier(StateActive)
	var got []AppState
	n.Subscribe(func(s AppState) { got = append(got, s) })

	n.Set(StateActive)
	n.Set(StateBackground)
	n.Set(StateBackground)
	n.Set(StateActive)

	assert.Equal(t, []AppState{StateBackground, StateActive}, got)
	assert.Equal(t, StateActive, n.State())
}

func TestNotifier_UnsubscribeIsIdempotent(t *testing.T) {
	n := NewNotifier(StateActive)
	calls := 0
	unsubscribe := n.Subscribe(func(AppState) { calls++ })
	other := n.Subscribe(func(AppState) {})

	unsubscribe()
	unsubscribe()
	n.Set(StateInactive)

	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, n.ListenerCount())
	other()
	assert.Equal(t, 0, n.ListenerCount())
}

func TestAppState_IsForeground(t *testing.T) {
	assert.True(t, StateActive.IsForeground())
	assert.False(t, StateInactive.IsForeground())
	assert.False(t, StateBackground.IsForeground())
}

func TestNotifier_ConcurrentSetsDeliverInOrder(t *testing.T) {
	n := NewNotifier(StateActive)
	var (
		mu         sync.Mutex
		last       AppState
		mismatched int
	)
	n.Subscribe(func(s AppState) {
		mu.Lock()
		defer mu.Unlock()
		if n.State() != s {
			mismatched++
		}
		last = s
	})

	states := []AppState{StateActive, StateInactive, StateBackground}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n.Set(states[i%len(states)])
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, mismatched)
	if last != "" {
		assert.Equal(t, n.State(), last)
	}
}
