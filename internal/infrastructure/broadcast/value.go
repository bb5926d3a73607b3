// Package broadcast provides a last-value multicast container: a state cell
// with a single writer and any number of subscribers. New subscribers
// immediately receive the current value, then every subsequent update.
// Delivery is conflated per subscriber, so a slow consumer observes the
// newest value rather than a backlog of stale ones.
package broadcast

import "sync"

// Value holds the current value and the subscriber set.
type Value[T any] struct {
	mu      sync.Mutex
	current T
	subs    map[int]chan T
	nextID  int
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		current: initial,
		subs:    make(map[int]chan T),
	}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set stores val and delivers it to every subscriber.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.current = val
	for _, ch := range v.subs {
		deliver(ch, val)
	}
}

// Subscribe registers a new observer. The returned channel carries the
// current value immediately, then every update until cancel is called.
// cancel is idempotent.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextID
	v.nextID++

	ch := make(chan T, 1)
	ch <- v.current
	v.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			delete(v.subs, id)
		})
	}
	return ch, cancel
}

// deliver replaces any undelivered value so the channel always holds the
// newest state.
func deliver[T any](ch chan T, val T) {
	for {
		select {
		case ch <- val:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
