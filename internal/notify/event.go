package notify

// Event type tags.
const (
	TypeBP      = "bp"
	TypeIfState = "ifstate"
	TypeRPA     = "rpa"
)

// BP actions.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

// Event origins.
const (
	OriginLocal  = "local"
	OriginRemote = "remote"
)

// Interface states.
const (
	StateInternal = "int"
	StateExternal = "ext"
)

// Event is one outward notification. Only the fields relevant to its
// Type are set.
type Event struct {
	Type        string
	Action      string // bp: add|remove
	Origin      string // bp, rpa: local|remote
	Address     string // bp address, rpa new address
	PrevAddress string // rpa previously notified address
	Ifname      string // ifstate
	State       string // ifstate: int|ext
}

// BP builds a border-proxy event.
func BP(action, origin, address string) Event {
	return Event{Type: TypeBP, Action: action, Origin: origin, Address: address}
}

// IfState builds an interface-state event.
func IfState(ifname, state string) Event {
	return Event{Type: TypeIfState, Ifname: ifname, State: state}
}

// RPA builds a rendezvous-point change event.
func RPA(origin, address, prevAddress string) Event {
	return Event{Type: TypeRPA, Origin: origin, Address: address, PrevAddress: prevAddress}
}

// OriginFor returns the origin string for a locality flag.
func OriginFor(local bool) string {
	if local {
		return OriginLocal
	}
	return OriginRemote
}

// Args renders the event as the positional argument list handed to the
// callback script. The order is fixed wire format; do not reorder.
func (e Event) Args() []string {
	switch e.Type {
	case TypeBP:
		return []string{TypeBP, e.Action, e.Origin, e.Address}
	case TypeIfState:
		return []string{TypeIfState, e.Ifname, e.State}
	case TypeRPA:
		return []string{TypeRPA, e.Origin, e.Address, e.PrevAddress}
	default:
		return nil
	}
}

// Notifier delivers events to the outside observer. Failures are
// best-effort: callers log and move on, module state is authoritative
// regardless.
type Notifier interface {
	Deliver(Event) error
}

// Func adapts a function to the Notifier interface.
type Func func(Event) error

// Deliver invokes the function.
func (f Func) Deliver(ev Event) error {
	return f(ev)
}
