// Package notify carries module results to the outside observer. Each
// delivery is one structured event; the canonical consumer is an
// external callback script receiving the event as positional
// arguments. Delivery is best-effort and never feeds back into module
// state.
package notify
