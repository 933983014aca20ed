package store

import (
	"bytes"
	"strings"
	"sync"
)

// MemStore is an in-memory Store. It backs the standalone daemon's
// single-node mode and the test harness; the harness feeds peer state
// in through ApplyRemote to emulate the database's eventual delivery.
//
// Change delivery is queued and drained iteratively: a mutation
// performed from within a subscriber callback is recorded and
// delivered after the current delivery returns, never recursively.
type MemStore struct {
	mu    sync.Mutex
	own   NodeID
	attrs map[NodeID][]Attribute

	subs    []subscriber
	nextSub int

	queue    []Change
	draining bool
}

type subscriber struct {
	id int
	fn func(Change)
}

// NewMemStore creates an in-memory store for the given local node.
func NewMemStore(own NodeID) *MemStore {
	return &MemStore{
		own:   own,
		attrs: map[NodeID][]Attribute{own: nil},
	}
}

// Subscribe registers a change callback and returns its cancel function.
func (s *MemStore) Subscribe(fn func(Change)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Nodes enumerates all known nodes in unspecified order.
func (s *MemStore) Nodes() []NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make([]NodeID, 0, len(s.attrs))
	for n := range s.attrs {
		nodes = append(nodes, n)
	}
	return nodes
}

// OwnNode returns the local node's identity.
func (s *MemStore) OwnNode() NodeID {
	return s.own
}

// AttributesOfKind returns payload copies of the node's attributes of
// the given kind, in publication order.
func (s *MemStore) AttributesOfKind(n NodeID, k Kind) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out [][]byte
	for _, a := range s.attrs[n] {
		if a.Kind == k {
			out = append(out, append([]byte(nil), a.Payload...))
		}
	}
	return out
}

// AddOwnAttribute publishes a locally-owned attribute.
func (s *MemStore) AddOwnAttribute(k Kind, payload []byte) {
	p := append([]byte(nil), payload...)
	s.mu.Lock()
	s.attrs[s.own] = append(s.attrs[s.own], Attribute{Kind: k, Payload: p})
	s.queue = append(s.queue, Change{Node: s.own, Kind: k, Payload: p, Added: true})
	s.mu.Unlock()
	s.drain()
}

// RemoveOwnAttributesOfKind retracts every locally-owned attribute of
// the given kind. No-op if none exist.
func (s *MemStore) RemoveOwnAttributesOfKind(k Kind) {
	s.mu.Lock()
	kept := s.attrs[s.own][:0]
	for _, a := range s.attrs[s.own] {
		if a.Kind == k {
			s.queue = append(s.queue, Change{Node: s.own, Kind: k, Payload: a.Payload, Added: false})
		} else {
			kept = append(kept, a)
		}
	}
	s.attrs[s.own] = kept
	s.mu.Unlock()
	s.drain()
}

// Rank is byte-wise comparison of node identities, the database's
// canonical total order.
func (s *MemStore) Rank(a, b NodeID) int {
	return strings.Compare(string(a), string(b))
}

// ApplyRemote records an attribute change originating on a remote node
// and delivers it to subscribers. The test harness uses it to emulate
// database replication; changes for the local node are ignored.
func (s *MemStore) ApplyRemote(ch Change) {
	if ch.Node == s.own {
		return
	}
	p := append([]byte(nil), ch.Payload...)
	s.mu.Lock()
	if ch.Added {
		s.attrs[ch.Node] = append(s.attrs[ch.Node], Attribute{Kind: ch.Kind, Payload: p})
	} else {
		if !s.removeOneLocked(ch.Node, ch.Kind, p) {
			s.mu.Unlock()
			return
		}
	}
	s.queue = append(s.queue, Change{Node: ch.Node, Kind: ch.Kind, Payload: p, Added: ch.Added})
	s.mu.Unlock()
	s.drain()
}

// RemoveNode drops a departed node and delivers a removal for each of
// its attributes, the view the database presents when a member leaves.
func (s *MemStore) RemoveNode(n NodeID) {
	if n == s.own {
		return
	}
	s.mu.Lock()
	attrs, ok := s.attrs[n]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.attrs, n)
	for _, a := range attrs {
		s.queue = append(s.queue, Change{Node: n, Kind: a.Kind, Payload: a.Payload, Added: false})
	}
	s.mu.Unlock()
	s.drain()
}

// removeOneLocked removes the first attribute of n matching kind and
// payload. Caller holds s.mu.
func (s *MemStore) removeOneLocked(n NodeID, k Kind, payload []byte) bool {
	attrs := s.attrs[n]
	for i, a := range attrs {
		if a.Kind == k && bytes.Equal(a.Payload, payload) {
			s.attrs[n] = append(attrs[:i], attrs[i+1:]...)
			return true
		}
	}
	return false
}

// drain delivers queued changes in order. Only one drain runs at a
// time; mutations made by subscribers extend the queue and are picked
// up by the running drain.
func (s *MemStore) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		ch := s.queue[0]
		s.queue = s.queue[1:]
		subs := make([]subscriber, len(s.subs))
		copy(subs, s.subs)
		s.mu.Unlock()
		for _, sub := range subs {
			sub.fn(ch)
		}
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}
