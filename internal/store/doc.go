// Package store models the shared-attribute database the multicast
// module is layered on. The database itself is an external
// collaborator: it replicates typed, node-owned attributes to every
// participant and delivers an eventually-consistent per-node view.
// This package defines the contract the module consumes plus an
// in-memory implementation used by the standalone daemon and by tests.
package store
