package it

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"mcastelect/internal/ifmon"
	"mcastelect/internal/mcast"
	"mcastelect/internal/notify"
	"mcastelect/internal/store"
)

// Cluster wires several in-memory stores into one attribute network:
// every locally-owned change on one store is replicated to all others,
// emulating the external database. Replication is buffered and flushed
// between clock rounds, so a node's first election pass sees its own
// view before peers' changes land, the way real propagation delay
// behaves. A single mock clock drives every node's debounce timers.
type Cluster struct {
	Clock *clock.Mock
	nodes []*Node

	pending []delivery
}

type delivery struct {
	to *Node
	ch store.Change
}

// Node is one cluster participant and its recorded notifications.
type Node struct {
	ID      store.NodeID
	Store   *store.MemStore
	Monitor *ifmon.Static
	Module  *mcast.Module

	mu     sync.Mutex
	events []notify.Event
}

// NewCluster builds stores for the given node IDs and wires
// replication between them. Modules are attached separately with
// Attach so tests control join order.
func NewCluster(ids ...store.NodeID) *Cluster {
	c := &Cluster{Clock: clock.NewMock()}
	for _, id := range ids {
		c.nodes = append(c.nodes, &Node{
			ID:      id,
			Store:   store.NewMemStore(id),
			Monitor: ifmon.NewStatic(),
		})
	}
	for _, n := range c.nodes {
		n := n
		n.Store.Subscribe(func(ch store.Change) {
			if ch.Node != n.ID {
				return
			}
			for _, peer := range c.nodes {
				if peer != n {
					c.pending = append(c.pending, delivery{to: peer, ch: ch})
				}
			}
		})
	}
	return c
}

// Flush delivers buffered replication. Changes generated while
// flushing are buffered for the next flush, keeping rounds distinct.
func (c *Cluster) Flush() {
	batch := c.pending
	c.pending = nil
	for _, d := range batch {
		d.to.Store.ApplyRemote(d.ch)
	}
}

// Get returns the node with the given ID, or nil.
func (c *Cluster) Get(id store.NodeID) *Node {
	for _, n := range c.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Attach starts the node's module, recording its notifications.
func (c *Cluster) Attach(n *Node) error {
	mod, err := mcast.Attach(mcast.Options{
		Store:    n.Store,
		Monitor:  n.Monitor,
		Notifier: notify.Func(n.record),
		Clock:    c.Clock,
	})
	if err != nil {
		return err
	}
	n.Module = mod
	return nil
}

// Depart detaches a node gracefully: its module retracts what it
// published and the retractions replicate out.
func (c *Cluster) Depart(id store.NodeID) {
	n := c.remove(id)
	if n == nil {
		return
	}
	if n.Module != nil {
		n.Module.Close()
		n.Module = nil
	}
	c.Flush()
}

// Crash drops a node without teardown; peers observe the database
// withdrawing everything the vanished member owned.
func (c *Cluster) Crash(id store.NodeID) {
	n := c.remove(id)
	if n == nil {
		return
	}
	if n.Module != nil {
		n.Module.Close()
		n.Module = nil
	}
	// The crashed node's unreplicated changes never make it out.
	kept := c.pending[:0]
	for _, d := range c.pending {
		if d.ch.Node != id {
			kept = append(kept, d)
		}
	}
	c.pending = kept
	for _, peer := range c.nodes {
		peer.Store.RemoveNode(id)
	}
}

func (c *Cluster) remove(id store.NodeID) *Node {
	for i, n := range c.nodes {
		if n.ID == id {
			c.nodes = append(c.nodes[:i], c.nodes[i+1:]...)
			return n
		}
	}
	return nil
}

// Settle runs whole debounce rounds: advance the shared clock so
// pending triggers fire, then flush replication so the results land
// everywhere before the next round.
func (c *Cluster) Settle(rounds int) {
	for i := 0; i < rounds; i++ {
		c.Clock.Add(time.Second)
		c.Flush()
	}
}

// Close detaches every remaining module.
func (c *Cluster) Close() {
	for _, n := range c.nodes {
		if n.Module != nil {
			n.Module.Close()
			n.Module = nil
		}
	}
}

func (n *Node) record(ev notify.Event) error {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
	return nil
}

// Events returns a snapshot of everything notified so far.
func (n *Node) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Event, len(n.events))
	copy(out, n.events)
	return out
}

// EventsOfType filters the snapshot by event type.
func (n *Node) EventsOfType(typ string) []notify.Event {
	var out []notify.Event
	for _, ev := range n.Events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// LastRPA returns the most recent rpa event, if any.
func (n *Node) LastRPA() (notify.Event, bool) {
	evs := n.EventsOfType(notify.TypeRPA)
	if len(evs) == 0 {
		return notify.Event{}, false
	}
	return evs[len(evs)-1], true
}
