package mcast

import "mcastelect/internal/store"

// fireBP re-evaluates the border proxy claim after a quiet interval:
// self is a border proxy iff it still holds an external connection and
// a usable address. Observers learn of the publish/retract through the
// dispatcher's immediate path, fed back by the store.
func (m *Module) fireBP() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.metrics.bpUpdates.Inc()

	m.store.RemoveOwnAttributesOfKind(store.KindBorderProxy)

	own := m.store.OwnNode()
	if len(m.store.AttributesOfKind(own, store.KindExternalConnection)) == 0 {
		return
	}
	addr, ok := m.mon.PrimaryIPv6()
	if !ok {
		m.log.Debug().Msg("border proxy update: no IPv6 address at all")
		return
	}
	a16 := addr.As16()
	m.store.AddOwnAttribute(store.KindBorderProxy, a16[:])
}
