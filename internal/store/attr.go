package store

// NodeID is an opaque node identity assigned by the attribute database.
// The database's canonical node ordering is byte-wise comparison of
// identities; Rank exposes it.
type NodeID string

// Kind identifies an attribute type.
type Kind int

const (
	// KindUnknown is the zero Kind; the module ignores it.
	KindUnknown Kind = iota
	// KindExternalConnection marks a node with an active external
	// uplink. Only presence matters; the payload is opaque and a node
	// may carry several instances.
	KindExternalConnection
	// KindBorderProxy is a published 16-byte IPv6 address claiming the
	// border proxy role.
	KindBorderProxy
	// KindRPACandidate is a published 16-byte IPv6 address claiming
	// rendezvous point candidacy.
	KindRPACandidate
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindExternalConnection:
		return "external-connection"
	case KindBorderProxy:
		return "border-proxy"
	case KindRPACandidate:
		return "rpa-candidate"
	default:
		return "unknown"
	}
}

// Attribute is a typed byte payload owned by exactly one node. A node
// holds an ordered multiset of attributes.
type Attribute struct {
	Kind    Kind
	Payload []byte
}

// Change describes one attribute addition or removal observed on a
// node, delivered through Store.Subscribe.
type Change struct {
	Node    NodeID
	Kind    Kind
	Payload []byte
	Added   bool
}
