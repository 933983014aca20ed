package mcast

import (
	"errors"
	"net/netip"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"mcastelect/internal/ifmon"
	"mcastelect/internal/notify"
	"mcastelect/internal/sched"
	"mcastelect/internal/store"
)

// Quiet intervals before acting on attribute or address churn.
const (
	DefaultBPDebounce = 1000 * time.Millisecond
	DefaultRPDebounce = 1000 * time.Millisecond
)

// Options configures Attach. Store, Monitor and Notifier are required.
type Options struct {
	Store    store.Store
	Monitor  ifmon.Monitor
	Notifier notify.Notifier

	// Clock defaults to the system clock.
	Clock clock.Clock
	// Logger defaults to a disabled logger.
	Logger zerolog.Logger
	// BPDebounce and RPDebounce default to one second.
	BPDebounce time.Duration
	RPDebounce time.Duration
	// Registry optionally receives the module's collectors.
	Registry prometheus.Registerer
}

// Module is one attached instance. Mutable state (the notified RP
// address and the closed flag) is serialized behind a single mutex;
// dispatcher paths only arm triggers or forward notifications and take
// no module lock, so store feedback generated while a timer handler
// holds the lock cannot deadlock.
type Module struct {
	store    store.Store
	mon      ifmon.Monitor
	notifier notify.Notifier
	log      zerolog.Logger
	metrics  *metrics

	bp *sched.Trigger
	rp *sched.Trigger

	cancelStore func()
	cancelMon   func()

	mu         sync.Mutex
	currentRPA netip.Addr
	closed     bool
}

// Attach wires the module to its collaborators and arms the election
// trigger once, so a freshly attached module performs an election pass
// shortly after startup even with zero external stimulus.
func Attach(opts Options) (*Module, error) {
	if opts.Store == nil {
		return nil, errors.New("mcast: store is required")
	}
	if opts.Monitor == nil {
		return nil, errors.New("mcast: monitor is required")
	}
	if opts.Notifier == nil {
		return nil, errors.New("mcast: notifier is required")
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	bpDebounce := opts.BPDebounce
	if bpDebounce <= 0 {
		bpDebounce = DefaultBPDebounce
	}
	rpDebounce := opts.RPDebounce
	if rpDebounce <= 0 {
		rpDebounce = DefaultRPDebounce
	}

	m := &Module{
		store:      opts.Store,
		mon:        opts.Monitor,
		notifier:   opts.Notifier,
		log:        opts.Logger,
		metrics:    newMetrics(opts.Registry),
		currentRPA: netip.IPv6Unspecified(),
	}
	m.bp = sched.New(clk, bpDebounce, m.fireBP)
	m.rp = sched.New(clk, rpDebounce, m.fireRP)

	m.cancelStore = m.store.Subscribe(m.onChange)
	m.cancelMon = m.mon.Subscribe(m.onMonitor)

	// Even if we're alone, we may want to be RP.
	m.rp.Arm()
	return m, nil
}

// onChange is the dispatcher: it classifies every attribute change and
// either forwards it immediately or arms a debounce trigger.
func (m *Module) onChange(ch store.Change) {
	switch ch.Kind {
	case store.KindExternalConnection:
		if ch.Node != m.store.OwnNode() {
			return
		}
		m.metrics.changes.WithLabelValues(ch.Kind.String()).Inc()
		m.bp.Arm()
	case store.KindBorderProxy:
		addr, ok := addrFromPayload(ch.Payload)
		if !ok {
			// Malformed announcement, dropped without a trace.
			return
		}
		m.metrics.changes.WithLabelValues(ch.Kind.String()).Inc()
		action := notify.ActionRemove
		if ch.Added {
			action = notify.ActionAdd
		}
		origin := notify.OriginFor(ch.Node == m.store.OwnNode())
		m.deliver(notify.BP(action, origin, addr.String()))
	case store.KindRPACandidate:
		// Payload length is validated by the election scan, not here.
		m.metrics.changes.WithLabelValues(ch.Kind.String()).Inc()
		m.rp.Arm()
	}
}

// onMonitor handles the interface collaborator's events.
func (m *Module) onMonitor(ev ifmon.Event) {
	switch ev.Kind {
	case ifmon.IfaceState:
		state := notify.StateExternal
		if ev.Internal {
			state = notify.StateInternal
		}
		m.deliver(notify.IfState(ev.Ifname, state))
	case ifmon.AddrChange:
		// An address change may invalidate both published attributes.
		m.rp.Arm()
		m.bp.Arm()
	}
}

// deliver hands an event to the notifier. Failure is logged and
// counted; the attribute state already committed is authoritative.
func (m *Module) deliver(ev notify.Event) {
	if err := m.notifier.Deliver(ev); err != nil {
		m.metrics.notifyFailures.Inc()
		m.log.Warn().Err(err).Str("event", ev.Type).Msg("notifier delivery failed")
		return
	}
	m.metrics.delivered.Inc()
}

// Busy reports whether either debounce trigger is pending. Callers use
// it to decide whether the module still has work in flight.
func (m *Module) Busy() bool {
	return m.rp.Armed() || m.bp.Armed()
}

// Close detaches the module: it cancels both subscriptions, retracts
// any self-owned candidate and border proxy attributes, and disarms
// both triggers. Idempotent; safe even if nothing was ever published.
func (m *Module) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancelMon()
	m.cancelStore()
	m.store.RemoveOwnAttributesOfKind(store.KindRPACandidate)
	m.store.RemoveOwnAttributesOfKind(store.KindBorderProxy)
	m.bp.Stop()
	m.rp.Stop()
}

// addrFromPayload decodes a published address payload. Exactly 16
// bytes or nothing.
func addrFromPayload(p []byte) (netip.Addr, bool) {
	if len(p) != 16 {
		return netip.Addr{}, false
	}
	return netip.AddrFromSlice(p)
}
