package reachability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_Transitions(t *testing.T) {
	n := NewNotifier(false)
	var got []bool
	unsubscribe := n.Subscribe(func(c bool) { got = append(got, c) })

	n.Set(false)
	n.Set(true)
	n.Set(true)
	n.Set(false)
	unsubscribe()
	n.Set(true)

	assert.Equal(t, []bool{true, false}, got)
	assert.True(t, n.IsConnected())
	assert.Equal(t, 0, n.ListenerCount())
}

func TestProber_Check(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	n := NewNotifier(false)
	p := NewProber(srv.URL, time.Minute, time.Second, n)

	assert.True(t, p.Check(context.Background()))
	assert.True(t, n.IsConnected())

	status.Store(http.StatusServiceUnavailable)
	assert.False(t, p.Check(context.Background()))
	assert.False(t, n.IsConnected())
}

func TestProber_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	n := NewNotifier(true)
	p := NewProber(url, time.Minute, 200*time.Millisecond, n)

	assert.False(t, p.Check(context.Background()))
	assert.False(t, n.IsConnected())
}

func TestNotifier_ConcurrentSetsDeliverInOrder(t *testing.T) {
	n := NewNotifier(false)
	var (
		mu         sync.Mutex
		delivered  int
		last       bool
		mismatched int
	)
	n.Subscribe(func(c bool) {
		mu.Lock()
		defer mu.Unlock()
		if n.IsConnected() != c {
			mismatched++
		}
		delivered++
		last = c
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n.Set(i%2 == 0)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, mismatched)
	if delivered > 0 {
		assert.Equal(t, n.IsConnected(), last)
	}
}
