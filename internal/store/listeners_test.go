package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/streamvibe/streamvibe/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenersSkipOlderSnapshots(t *testing.T) {
	var l listeners[int]
	var got []int
	l.add(func(v int) { got = append(got, v) })

	first := l.stamp()
	second := l.stamp()
	l.publish(second, 2)
	l.publish(first, 1)
	l.publish(l.stamp(), 3)

	assert.Equal(t, []int{2, 3}, got)
}

func TestListenersCancel(t *testing.T) {
	var l listeners[string]
	var a, b []string
	cancelA := l.add(func(s string) { a = append(a, s) })
	l.add(func(s string) { b = append(b, s) })

	l.publish(l.stamp(), "one")
	cancelA()
	l.publish(l.stamp(), "two")

	assert.Equal(t, []string{"one"}, a)
	assert.Equal(t, []string{"one", "two"}, b)
}

func TestSlowSubscriberEndsOnNewestState(t *testing.T) {
	env := newTestEnv(t)
	user := env.loginAs(t, "ada", api.RoleCreator)
	env.seedMedia(user.ID, "a", "b")
	store := NewMedia(env.client)

	var (
		mu        sync.Mutex
		last      MediaState
		delivered int
	)
	cancel := store.Subscribe(func(st MediaState) {
		if st.Loading {
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		last = st
		delivered++
		mu.Unlock()
	})
	defer cancel()

	ctx := context.Background()
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.FetchUserMedia(ctx))
		}()
		time.Sleep(time.Millisecond)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Positive(t, delivered)
	assert.False(t, store.Snapshot().Loading)
	assert.False(t, last.Loading)
	assert.Len(t, last.UserMedia, 2)
}
