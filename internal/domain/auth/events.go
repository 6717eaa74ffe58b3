package auth

import "sync"

// Broadcaster fans session events out to subscribers. Identity
// providers embed one so the session listener can observe sign-in and
// sign-out activity regardless of which provider is wired.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan<- Event
}

// Subscribe registers ch to receive future events. The returned cancel
// func unregisters it; after cancel returns no further events are
// delivered on ch. The caller owns ch and closes it after cancel.
func (b *Broadcaster) Subscribe(ch chan<- Event) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]chan<- Event)
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers ev to all current subscribers. Delivery blocks per
// subscriber; subscribers are expected to keep a buffered channel
// drained by a dedicated goroutine.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	subs := make([]chan<- Event, 0, len(b.subs))
	for _, ch := range b.subs {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	for _, ch := range subs {
		ch <- ev
	}
}
