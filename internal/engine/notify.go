package engine

import "sync"

// Notifier broadcasts job completion to long-poll waiters. It is safe for
// concurrent use.
//
// Finished jobs are retained as done markers so that late subscribers
// (those arriving after the job reached a terminal state) receive a
// closed channel instead of blocking forever. Markers are a few bytes
// each and are dropped when the registry evicts the job.
type Notifier struct {
	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	subs   map[int]chan struct{}
	nextID int
	done   bool
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{topics: make(map[string]*topic)}
}

// Subscribe returns a channel that is closed once the job reaches a
// terminal state, and an unsubscribe function. If the job already
// finished, the returned channel is closed immediately.
func (n *Notifier) Subscribe(id string) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := n.topics[id]
	if !ok {
		t = &topic{subs: make(map[int]chan struct{})}
		n.topics[id] = t
	}

	ch := make(chan struct{})
	if t.done {
		close(ch)
		return ch, func() {}
	}

	subID := t.nextID
	t.nextID++
	t.subs[subID] = ch

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(t.subs, subID)
		// Reclaim topics nothing refers to anymore. Subscribers can
		// name identifiers the engine never issued; without this the
		// map would grow with every probe of an unknown id. Done
		// markers stay until the registry eviction forgets them.
		if len(t.subs) == 0 && !t.done && n.topics[id] == t {
			delete(n.topics, id)
		}
	}
}

// Done signals that the job reached a terminal state. All waiter channels
// are closed and future Subscribe calls return a closed channel.
func (n *Notifier) Done(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := n.topics[id]
	if !ok {
		n.topics[id] = &topic{subs: make(map[int]chan struct{}), done: true}
		return
	}

	t.done = true
	for subID, ch := range t.subs {
		close(ch)
		delete(t.subs, subID)
	}
}

// Forget drops the done marker for an evicted job.
func (n *Notifier) Forget(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.topics, id)
}
