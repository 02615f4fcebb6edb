package client

import "sync"

// Value is an observable cell. A new subscriber is called with the current
// value right away and then with every later Set, in order.
type Value[T any] struct {
	notify sync.Mutex // serializes Set and Subscribe so delivery order is stable

	mu   sync.RWMutex
	cur  T
	next int
	subs map[int]func(T)
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, subs: make(map[int]func(T))}
}

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cur
}

// Set stores x and calls every subscriber with it.
func (v *Value[T]) Set(x T) {
	v.notify.Lock()
	defer v.notify.Unlock()

	v.mu.Lock()
	v.cur = x
	fns := make([]func(T), 0, len(v.subs))
	for _, fn := range v.subs {
		fns = append(fns, fn)
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn(x)
	}
}

// Subscribe registers fn and returns a function that removes it.
// fn must not call Set on the same Value.
func (v *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	v.notify.Lock()
	defer v.notify.Unlock()

	v.mu.Lock()
	id := v.next
	v.next++
	v.subs[id] = fn
	cur := v.cur
	v.mu.Unlock()

	fn(cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}
