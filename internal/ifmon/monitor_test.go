package ifmon

import (
	"net/netip"
	"testing"
)

func TestStatic_PrimaryIPv6(t *testing.T) {
	m := NewStatic()

	if _, ok := m.PrimaryIPv6(); ok {
		t.Error("New Static reports an address")
	}

	addr := netip.MustParseAddr("2001:db8::1")
	m.SetPrimaryIPv6(addr)
	got, ok := m.PrimaryIPv6()
	if !ok || got != addr {
		t.Errorf("Expected %v, got %v (ok=%v)", addr, got, ok)
	}

	m.ClearPrimaryIPv6()
	if _, ok := m.PrimaryIPv6(); ok {
		t.Error("Cleared Static still reports an address")
	}
}

func TestStatic_EmitAndCancel(t *testing.T) {
	m := NewStatic()

	var got []Event
	cancel := m.Subscribe(func(ev Event) { got = append(got, ev) })
	other := 0
	m.Subscribe(func(Event) { other++ })

	m.Emit(Event{Kind: IfaceState, Ifname: "eth0", Internal: true})
	m.Emit(Event{Kind: AddrChange, Ifname: "eth0"})
	if len(got) != 2 || other != 2 {
		t.Fatalf("Expected both subscribers to see 2 events, got %d and %d", len(got), other)
	}
	if got[0].Kind != IfaceState || !got[0].Internal || got[1].Kind != AddrChange {
		t.Errorf("Events delivered wrong: %+v", got)
	}

	cancel()
	cancel()
	m.Emit(Event{Kind: AddrChange, Ifname: "eth1"})
	if len(got) != 2 {
		t.Errorf("Cancelled subscriber received an event")
	}
	if other != 3 {
		t.Errorf("Remaining subscriber missed an event, got %d", other)
	}
}
