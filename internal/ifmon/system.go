package ifmon

import (
	"net"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// iface is one observed interface: link state plus its address set.
type iface struct {
	Name  string
	Up    bool
	Addrs []netip.Addr
}

// SystemMonitor polls the OS interface table and diffs successive
// snapshots into Events. Interfaces named in the external set are
// classified external; everything else (loopback aside) is internal.
// The first poll seeds the baseline without emitting.
type SystemMonitor struct {
	clk      clock.Clock
	interval time.Duration
	external map[string]bool
	log      zerolog.Logger

	// list is swapped out by tests.
	list func() ([]iface, error)

	mu      sync.Mutex
	subs    []staticSub
	nextSub int
	seen    map[string]iface
	seeded  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewSystemMonitor creates a monitor polling every interval. external
// lists the interface names treated as external uplinks.
func NewSystemMonitor(clk clock.Clock, interval time.Duration, external []string, log zerolog.Logger) *SystemMonitor {
	ext := make(map[string]bool, len(external))
	for _, name := range external {
		ext[name] = true
	}
	return &SystemMonitor{
		clk:      clk,
		interval: interval,
		external: ext,
		log:      log,
		list:     listSystemInterfaces,
		done:     make(chan struct{}),
	}
}

// Subscribe registers an event callback.
func (m *SystemMonitor) Subscribe(fn func(Event)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs = append(m.subs, staticSub{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, sub := range m.subs {
				if sub.id == id {
					m.subs = append(m.subs[:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// PrimaryIPv6 returns a global unicast IPv6 address from the last
// snapshot, preferring external interfaces.
func (m *SystemMonitor) PrimaryIPv6() (netip.Addr, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var fallback netip.Addr
	names := make([]string, 0, len(m.seen))
	for name := range m.seen {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ifc := m.seen[name]
		if !ifc.Up {
			continue
		}
		for _, a := range ifc.Addrs {
			if !usableIPv6(a) {
				continue
			}
			if m.external[name] {
				return a, true
			}
			if !fallback.IsValid() {
				fallback = a
			}
		}
	}
	if fallback.IsValid() {
		return fallback, true
	}
	return netip.Addr{}, false
}

// ExternalUp reports whether any external-classified interface is up
// with a usable IPv6 address in the last snapshot.
func (m *SystemMonitor) ExternalUp() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, ifc := range m.seen {
		if !m.external[name] || !ifc.Up {
			continue
		}
		for _, a := range ifc.Addrs {
			if usableIPv6(a) {
				return true
			}
		}
	}
	return false
}

// Start begins polling. Stop must be called exactly once afterwards.
func (m *SystemMonitor) Start() {
	m.poll()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := m.clk.Ticker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.done:
				return
			case <-ticker.C:
				m.poll()
			}
		}
	}()
}

// Stop halts polling and waits for the poll goroutine to exit.
func (m *SystemMonitor) Stop() {
	close(m.done)
	m.wg.Wait()
}

// poll snapshots the interface table and emits the diff.
func (m *SystemMonitor) poll() {
	current, err := m.list()
	if err != nil {
		m.log.Debug().Err(err).Msg("interface poll failed")
		return
	}

	snapshot := make(map[string]iface, len(current))
	for _, ifc := range current {
		snapshot[ifc.Name] = ifc
	}

	m.mu.Lock()
	prev := m.seen
	m.seen = snapshot
	seeded := m.seeded
	m.seeded = true
	subs := make([]staticSub, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	if !seeded {
		return
	}

	var events []Event
	for name, ifc := range snapshot {
		old, existed := prev[name]
		if !existed || old.Up != ifc.Up {
			events = append(events, Event{
				Kind:     IfaceState,
				Ifname:   name,
				Internal: ifc.Up && !m.external[name],
			})
		}
		if existed && !addrsEqual(old.Addrs, ifc.Addrs) {
			events = append(events, Event{Kind: AddrChange, Ifname: name})
		}
	}
	for name := range prev {
		if _, still := snapshot[name]; !still {
			events = append(events, Event{Kind: IfaceState, Ifname: name, Internal: false})
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Ifname != events[j].Ifname {
			return events[i].Ifname < events[j].Ifname
		}
		return events[i].Kind < events[j].Kind
	})
	for _, ev := range events {
		for _, sub := range subs {
			sub.fn(ev)
		}
	}
}

// listSystemInterfaces reads the OS interface table.
func listSystemInterfaces() ([]iface, error) {
	sysIfs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]iface, 0, len(sysIfs))
	for _, si := range sysIfs {
		if si.Flags&net.FlagLoopback != 0 {
			continue
		}
		ifc := iface{Name: si.Name, Up: si.Flags&net.FlagUp != 0}
		addrs, err := si.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipn, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			addr, ok := netip.AddrFromSlice(ipn.IP)
			if !ok {
				continue
			}
			ifc.Addrs = append(ifc.Addrs, addr.Unmap())
		}
		sortAddrs(ifc.Addrs)
		out = append(out, ifc)
	}
	return out, nil
}

// usableIPv6 reports whether a is a global unicast IPv6 address. ULA
// space qualifies; homenets routinely number from it.
func usableIPv6(a netip.Addr) bool {
	return a.Is6() && !a.Is4In6() && a.IsGlobalUnicast()
}

func sortAddrs(addrs []netip.Addr) {
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })
}

func addrsEqual(a, b []netip.Addr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
