// Package mcast elects a network-wide multicast rendezvous point and
// advertises border proxies on top of the shared-attribute database.
//
// It handles three things:
//   - interface state notifications, forwarded to the notifier;
//   - advertising the border proxy address iff a local external
//     connection is present, debounced against churn;
//   - rendezvous point election over candidate attributes, debounced,
//     with the database's canonical node order as the sole tie-break.
//
// All recomputation is from-scratch on timer expiry, which keeps the
// module self-correcting under membership churn.
package mcast
