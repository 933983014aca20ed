package ifmon

import (
	"net/netip"
	"sync"
)

// EventKind distinguishes the two notifications the collaborator emits.
type EventKind int

const (
	// IfaceState reports an interface transition. Internal is true when
	// the interface became an internal one, false when it ceased to be
	// (went down, disappeared, or is classified external).
	IfaceState EventKind = iota
	// AddrChange reports that an interface's address set changed. Any
	// published address may have been invalidated.
	AddrChange
)

// Event is one interface or address notification.
type Event struct {
	Kind     EventKind
	Ifname   string
	Internal bool
}

// Monitor is the consumed contract: event subscription plus the
// primary-address query.
type Monitor interface {
	// Subscribe registers an event callback and returns its cancel
	// function. Cancel is idempotent.
	Subscribe(fn func(Event)) (cancel func())
	// PrimaryIPv6 returns the node's current primary global IPv6
	// address, if one exists.
	PrimaryIPv6() (netip.Addr, bool)
}

// Static is a Monitor driven entirely by its caller: tests and
// embedders that track interfaces themselves set the address and inject
// events directly.
type Static struct {
	mu      sync.Mutex
	addr    netip.Addr
	hasAddr bool
	subs    []staticSub
	nextSub int
}

type staticSub struct {
	id int
	fn func(Event)
}

// NewStatic creates a Static with no address and no subscribers.
func NewStatic() *Static {
	return &Static{}
}

// Subscribe registers an event callback.
func (s *Static) Subscribe(fn func(Event)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, staticSub{id: id, fn: fn})
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

// PrimaryIPv6 returns the configured address, if set.
func (s *Static) PrimaryIPv6() (netip.Addr, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr, s.hasAddr
}

// SetPrimaryIPv6 sets the address PrimaryIPv6 reports.
func (s *Static) SetPrimaryIPv6(a netip.Addr) {
	s.mu.Lock()
	s.addr = a
	s.hasAddr = true
	s.mu.Unlock()
}

// ClearPrimaryIPv6 makes PrimaryIPv6 report no address.
func (s *Static) ClearPrimaryIPv6() {
	s.mu.Lock()
	s.addr = netip.Addr{}
	s.hasAddr = false
	s.mu.Unlock()
}

// Emit delivers an event to all subscribers.
func (s *Static) Emit(ev Event) {
	s.mu.Lock()
	subs := make([]staticSub, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.fn(ev)
	}
}
