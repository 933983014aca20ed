// Package ifmon is the boundary with the local interface/address
// collaborator: it reports interface state transitions and address
// churn, and answers the "current primary IPv6 address" query the
// publish paths need. Static is a manually driven implementation for
// tests and embedders; SystemMonitor polls the OS interface table.
package ifmon
