package store

import (
	"sort"
	"sync"
)

// listeners fans state snapshots out to subscribers.
//
// Snapshots are stamped with a version while the store lock is held and
// delivered one at a time. A snapshot older than one already delivered is
// skipped, so subscribers always end on the newest state. Subscribers may
// read Snapshot but must not call store operations synchronously.
type listeners[S any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(S)

	version   uint64
	delivery  sync.Mutex
	delivered uint64
}

func (l *listeners[S]) add(fn func(S)) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[int]func(S))
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

// stamp returns the version of a new snapshot. Callers hold the store lock.
func (l *listeners[S]) stamp() uint64 {
	l.version++
	return l.version
}

// publish delivers state unless a newer snapshot was delivered first.
// It must not be called with the store lock held.
func (l *listeners[S]) publish(version uint64, state S) {
	l.delivery.Lock()
	defer l.delivery.Unlock()

	if version <= l.delivered {
		return
	}
	l.delivered = version
	l.notify(state)
}

// notify calls every subscriber in subscription order.
func (l *listeners[S]) notify(state S) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(S), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
