package mcast

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	changes        *prometheus.CounterVec
	elections      prometheus.Counter
	bpUpdates      prometheus.Counter
	delivered      prometheus.Counter
	notifyFailures prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcastelect",
			Name:      "attribute_changes_total",
			Help:      "Attribute changes the dispatcher acted on, by kind.",
		}, []string{"kind"}),
		elections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcastelect",
			Name:      "elections_total",
			Help:      "Rendezvous point election passes run.",
		}),
		bpUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcastelect",
			Name:      "bp_updates_total",
			Help:      "Border proxy re-evaluations run.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcastelect",
			Name:      "events_delivered_total",
			Help:      "Events successfully handed to the notifier.",
		}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcastelect",
			Name:      "notify_failures_total",
			Help:      "Notifier deliveries that returned an error.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.changes, m.elections, m.bpUpdates, m.delivered, m.notifyFailures)
	}
	return m
}
