package mcast

import (
	"net/netip"

	"mcastelect/internal/notify"
	"mcastelect/internal/store"
)

// fireRP runs one election pass. The election is stateless: it scans
// every node's candidate attributes from scratch and the canonical
// node order is the sole tie-break, so the result is independent of
// enumeration order.
func (m *Module) fireRP() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.metrics.elections.Inc()

	own := m.store.OwnNode()

	var (
		found    bool
		bestNode store.NodeID
		bestAddr netip.Addr
	)
	for _, n := range m.store.Nodes() {
		for _, payload := range m.store.AttributesOfKind(n, store.KindRPACandidate) {
			addr, ok := addrFromPayload(payload)
			if !ok {
				continue
			}
			if !found || m.store.Rank(n, bestNode) > 0 {
				found = true
				bestNode = n
				bestAddr = addr
			}
		}
	}

	if found {
		if ret := m.store.Rank(bestNode, own); ret != 0 {
			if ret > 0 {
				// A better node announced itself; stop competing.
				m.store.RemoveOwnAttributesOfKind(store.KindRPACandidate)
			}
			// ret < 0: we would outrank the winner but have no
			// published candidacy this pass. Announce the standing
			// winner and leave displacement to a later pass once our
			// own candidacy is in the scan.
			m.notifyRPLocked(bestAddr, bestNode == own)
			return
		}
	}

	// Nothing found (or the standing winner is us): retract and
	// republish with the current address so the announcement tracks it.
	m.store.RemoveOwnAttributesOfKind(store.KindRPACandidate)
	addr, ok := m.mon.PrimaryIPv6()
	if !ok {
		m.log.Debug().Msg("rp election: no IPv6 address at all")
		return
	}
	a16 := addr.As16()
	m.store.AddOwnAttribute(store.KindRPACandidate, a16[:])
	m.notifyRPLocked(addr, true)
}

// notifyRPLocked emits an RP change unless the elected address is the
// one already notified. The previously notified address rides along;
// it starts as the zero address. Caller holds m.mu.
func (m *Module) notifyRPLocked(addr netip.Addr, local bool) {
	if addr == m.currentRPA {
		return
	}
	prev := m.currentRPA
	m.currentRPA = addr
	m.log.Info().
		Str("rpa", addr.String()).
		Str("prev", prev.String()).
		Bool("local", local).
		Msg("rendezvous point changed")
	m.deliver(notify.RPA(notify.OriginFor(local), addr.String(), prev.String()))
}
