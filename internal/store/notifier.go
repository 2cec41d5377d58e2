package store

import "sync"

// notifier fans committed changes out to in-process subscribers. Both
// store implementations embed it; this is the push half of the store
// contract.
type notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]SubscribeFunc
}

func newNotifier() *notifier {
	return &notifier{
		subs: make(map[string]map[int]SubscribeFunc),
	}
}

func (n *notifier) Subscribe(path string, fn SubscribeFunc) (cancel func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs[path] == nil {
		n.subs[path] = make(map[int]SubscribeFunc)
	}
	id := n.nextID
	n.nextID++
	n.subs[path][id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs[path], id)
		if len(n.subs[path]) == 0 {
			delete(n.subs, path)
		}
	}
}

func (n *notifier) publish(path string, value []byte, ok bool) {
	n.mu.RLock()
	fns := make([]SubscribeFunc, 0, len(n.subs[path]))
	for _, fn := range n.subs[path] {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	// Outside the lock so a callback can subscribe or cancel.
	for _, fn := range fns {
		fn(value, ok)
	}
}
