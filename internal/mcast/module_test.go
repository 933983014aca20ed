package mcast

import (
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"mcastelect/internal/ifmon"
	"mcastelect/internal/notify"
	"mcastelect/internal/store"
)

// fixture is one module wired to an in-memory store, a static monitor
// and a recording notifier, driven by a mock clock.
type fixture struct {
	clk *clock.Mock
	st  *store.MemStore
	mon *ifmon.Static
	mod *Module

	mu     sync.Mutex
	events []notify.Event
	fail   bool
}

func newFixture(t *testing.T, own store.NodeID) *fixture {
	t.Helper()
	f := &fixture{
		clk: clock.NewMock(),
		st:  store.NewMemStore(own),
		mon: ifmon.NewStatic(),
	}
	mod, err := Attach(Options{
		Store:    f.st,
		Monitor:  f.mon,
		Notifier: notify.Func(f.deliver),
		Clock:    f.clk,
	})
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	f.mod = mod
	t.Cleanup(mod.Close)
	return f
}

func (f *fixture) deliver(ev notify.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("delivery refused")
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fixture) setFail(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func (f *fixture) eventsOf(typ string) []notify.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notify.Event
	for _, ev := range f.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// settleIdle runs the startup election with no address so both
// triggers end up idle.
func (f *fixture) settleIdle(t *testing.T) {
	t.Helper()
	f.clk.Add(time.Second)
	if f.mod.Busy() {
		t.Fatal("Module still busy after idle settle")
	}
}

func payload16(addr string) []byte {
	a := netip.MustParseAddr(addr).As16()
	return a[:]
}

func (f *fixture) addRemoteCandidate(node store.NodeID, addr string) {
	f.st.ApplyRemote(store.Change{
		Node: node, Kind: store.KindRPACandidate, Payload: payload16(addr), Added: true,
	})
}

func (f *fixture) removeRemoteCandidate(node store.NodeID, addr string) {
	f.st.ApplyRemote(store.Change{
		Node: node, Kind: store.KindRPACandidate, Payload: payload16(addr), Added: false,
	})
}

func TestAttach_RequiresCollaborators(t *testing.T) {
	st := store.NewMemStore("n1")
	mon := ifmon.NewStatic()
	sink := notify.Func(func(notify.Event) error { return nil })

	if _, err := Attach(Options{Monitor: mon, Notifier: sink}); err == nil {
		t.Error("Attach without store succeeded")
	}
	if _, err := Attach(Options{Store: st, Notifier: sink}); err == nil {
		t.Error("Attach without monitor succeeded")
	}
	if _, err := Attach(Options{Store: st, Monitor: mon}); err == nil {
		t.Error("Attach without notifier succeeded")
	}
}

func TestAttach_RegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	mod, err := Attach(Options{
		Store:    store.NewMemStore("n1"),
		Monitor:  ifmon.NewStatic(),
		Notifier: notify.Func(func(notify.Event) error { return nil }),
		Clock:    clock.NewMock(),
		Registry: reg,
	})
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	mod.Close()
}

func TestAttach_ArmsElectionImmediately(t *testing.T) {
	f := newFixture(t, "n1")
	if !f.mod.Busy() {
		t.Error("Freshly attached module has no pending election")
	}
	if !f.mod.rp.Armed() || f.mod.bp.Armed() {
		t.Error("Expected only the election trigger armed at attach")
	}
}

func TestDispatcher_BorderProxyImmediate(t *testing.T) {
	f := newFixture(t, "n1")

	f.st.ApplyRemote(store.Change{
		Node: "n2", Kind: store.KindBorderProxy, Payload: payload16("2001:db8::2"), Added: true,
	})
	got := f.eventsOf(notify.TypeBP)
	if len(got) != 1 {
		t.Fatalf("Expected immediate bp event, got %+v", got)
	}
	want := notify.BP(notify.ActionAdd, notify.OriginRemote, "2001:db8::2")
	if got[0] != want {
		t.Errorf("bp event = %+v, want %+v", got[0], want)
	}

	f.st.ApplyRemote(store.Change{
		Node: "n2", Kind: store.KindBorderProxy, Payload: payload16("2001:db8::2"), Added: false,
	})
	got = f.eventsOf(notify.TypeBP)
	if len(got) != 2 || got[1].Action != notify.ActionRemove {
		t.Fatalf("Expected bp remove event, got %+v", got)
	}

	// Own announcements report origin local.
	f.st.AddOwnAttribute(store.KindBorderProxy, payload16("2001:db8::1"))
	got = f.eventsOf(notify.TypeBP)
	if len(got) != 3 || got[2].Origin != notify.OriginLocal {
		t.Fatalf("Expected local bp event, got %+v", got)
	}
}

func TestDispatcher_MalformedBorderProxyDropped(t *testing.T) {
	f := newFixture(t, "n1")

	f.st.ApplyRemote(store.Change{
		Node: "n2", Kind: store.KindBorderProxy, Payload: []byte{1, 2, 3}, Added: true,
	})
	f.st.ApplyRemote(store.Change{
		Node: "n2", Kind: store.KindBorderProxy, Payload: make([]byte, 20), Added: true,
	})
	if got := f.eventsOf(notify.TypeBP); len(got) != 0 {
		t.Errorf("Malformed announcements produced events: %+v", got)
	}
}

func TestDispatcher_ExternalConnectionArmsOnlyForSelf(t *testing.T) {
	f := newFixture(t, "n1")
	f.settleIdle(t)

	f.st.ApplyRemote(store.Change{
		Node: "n2", Kind: store.KindExternalConnection, Added: true,
	})
	if f.mod.bp.Armed() {
		t.Error("Remote external connection armed the proxy trigger")
	}

	f.st.AddOwnAttribute(store.KindExternalConnection, nil)
	if !f.mod.bp.Armed() {
		t.Error("Own external connection did not arm the proxy trigger")
	}
	if f.mod.rp.Armed() {
		t.Error("External connection armed the election trigger")
	}
}

func TestDispatcher_CandidateChurnArmsElection(t *testing.T) {
	f := newFixture(t, "n1")
	f.settleIdle(t)

	// Any payload length arms; validation happens in the scan.
	f.st.ApplyRemote(store.Change{
		Node: "n2", Kind: store.KindRPACandidate, Payload: []byte{1}, Added: true,
	})
	if !f.mod.rp.Armed() {
		t.Error("Candidate churn did not arm the election trigger")
	}
	if f.mod.bp.Armed() {
		t.Error("Candidate churn armed the proxy trigger")
	}
}

func TestMonitor_IfStateForwarded(t *testing.T) {
	f := newFixture(t, "n1")

	f.mon.Emit(ifmon.Event{Kind: ifmon.IfaceState, Ifname: "eth0", Internal: true})
	f.mon.Emit(ifmon.Event{Kind: ifmon.IfaceState, Ifname: "wan0", Internal: false})

	got := f.eventsOf(notify.TypeIfState)
	if len(got) != 2 {
		t.Fatalf("Expected 2 ifstate events, got %+v", got)
	}
	if got[0] != notify.IfState("eth0", notify.StateInternal) {
		t.Errorf("Internal transition mapped wrong: %+v", got[0])
	}
	if got[1] != notify.IfState("wan0", notify.StateExternal) {
		t.Errorf("External transition mapped wrong: %+v", got[1])
	}
}

func TestMonitor_AddrChangeArmsBothTriggers(t *testing.T) {
	f := newFixture(t, "n1")
	f.settleIdle(t)

	f.mon.Emit(ifmon.Event{Kind: ifmon.AddrChange, Ifname: "eth0"})
	if !f.mod.rp.Armed() || !f.mod.bp.Armed() {
		t.Error("Address change did not arm both triggers")
	}
	if !f.mod.Busy() {
		t.Error("Busy did not reflect armed triggers")
	}
}

func TestModule_CloseRetractsEverything(t *testing.T) {
	f := newFixture(t, "n1")
	f.mon.SetPrimaryIPv6(netip.MustParseAddr("2001:db8::1"))
	f.st.AddOwnAttribute(store.KindExternalConnection, nil)
	f.clk.Add(time.Second)

	if got := f.st.AttributesOfKind("n1", store.KindRPACandidate); len(got) != 1 {
		t.Fatalf("Election did not publish a candidate: %v", got)
	}
	if got := f.st.AttributesOfKind("n1", store.KindBorderProxy); len(got) != 1 {
		t.Fatalf("Proxy update did not publish: %v", got)
	}

	f.mod.Close()
	if got := f.st.AttributesOfKind("n1", store.KindRPACandidate); len(got) != 0 {
		t.Errorf("Candidate attribute survived detach: %v", got)
	}
	if got := f.st.AttributesOfKind("n1", store.KindBorderProxy); len(got) != 0 {
		t.Errorf("Proxy attribute survived detach: %v", got)
	}
	if f.mod.Busy() {
		t.Error("Module busy after detach")
	}

	// Idempotent, and the clock can keep running harmlessly.
	f.mod.Close()
	before := len(f.eventsOf(notify.TypeRPA))
	f.clk.Add(5 * time.Second)
	if got := len(f.eventsOf(notify.TypeRPA)); got != before {
		t.Errorf("Detached module kept notifying: %d -> %d", before, got)
	}
	if got := f.st.AttributesOfKind("n1", store.KindRPACandidate); len(got) != 0 {
		t.Errorf("Detached module republished: %v", got)
	}
}

func TestModule_CloseWithoutActivity(t *testing.T) {
	f := newFixture(t, "n1")
	f.mod.Close()
	f.mod.Close()
	if f.mod.Busy() {
		t.Error("Module busy after detach")
	}
}

func TestModule_NotifierFailureDoesNotAbortPublish(t *testing.T) {
	f := newFixture(t, "n1")
	f.setFail(true)
	f.mon.SetPrimaryIPv6(netip.MustParseAddr("2001:db8::1"))

	f.clk.Add(time.Second)
	if got := f.st.AttributesOfKind("n1", store.KindRPACandidate); len(got) != 1 {
		t.Fatalf("Failed delivery aborted the publish: %v", got)
	}

	// The result was still committed as notified; an identical
	// re-election stays suppressed even once delivery works again.
	f.setFail(false)
	f.clk.Add(2 * time.Second)
	if got := f.eventsOf(notify.TypeRPA); len(got) != 0 {
		t.Errorf("Suppression lost after delivery failure: %+v", got)
	}
}
