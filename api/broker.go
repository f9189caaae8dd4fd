package api

import "sync"

// updateBroker signals stream subscribers of a session that its board
// changed. Signals coalesce: a subscriber that has not caught up yet sees a
// single pending signal.
type updateBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func newUpdateBroker() *updateBroker {
	return &updateBroker{subs: make(map[string]map[chan struct{}]struct{})}
}

func (b *updateBroker) subscribe(session string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	if b.subs[session] == nil {
		b.subs[session] = make(map[chan struct{}]struct{})
	}
	b.subs[session][ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subs[session]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(b.subs, session)
			}
		}
	}
}

func (b *updateBroker) notify(session string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[session] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (b *updateBroker) count(session string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[session])
}
