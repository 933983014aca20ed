package store

// Store is the boundary with the attribute database. Implementations
// must deliver subscription events strictly serialized and must not
// invoke subscribers synchronously from within a mutating call made by
// a subscriber (events queued during a callback run later, after the
// current delivery completes).
type Store interface {
	// Subscribe registers a change callback and returns its cancel
	// function. Cancel is idempotent.
	Subscribe(fn func(Change)) (cancel func())
	// Nodes enumerates all nodes currently known to the database, in
	// unspecified order.
	Nodes() []NodeID
	// OwnNode returns the local node's identity.
	OwnNode() NodeID
	// AttributesOfKind returns the payloads of all attributes of the
	// given kind owned by the given node.
	AttributesOfKind(n NodeID, k Kind) [][]byte
	// AddOwnAttribute publishes a locally-owned attribute.
	AddOwnAttribute(k Kind, payload []byte)
	// RemoveOwnAttributesOfKind retracts every locally-owned attribute
	// of the given kind. Removing an absent kind is a no-op.
	RemoveOwnAttributesOfKind(k Kind)
	// Rank is the database's canonical node ordering: negative, zero or
	// positive, zero only when a and b denote the same node.
	Rank(a, b NodeID) int
}
