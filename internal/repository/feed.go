package repository

import "sync"

// ClaimFeed fans out a "claims changed" signal to live subscribers. Each
// subscriber gets a buffered channel of one tick; publishes while a tick is
// already pending are coalesced. The cancel function returned by Subscribe
// must be called when the view is torn down, otherwise the subscription
// leaks.
type ClaimFeed struct {
	mu   sync.Mutex
	next int
	subs map[int]chan struct{}
}

func NewClaimFeed() *ClaimFeed {
	return &ClaimFeed{subs: make(map[int]chan struct{})}
}

func (f *ClaimFeed) Subscribe() (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++

	ch := make(chan struct{}, 1)
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
	return ch, cancel
}

func (f *ClaimFeed) Publish() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
			// un tick ya pendiente alcanza
		}
	}
}

func (f *ClaimFeed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
