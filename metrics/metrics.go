// Package metrics exports pipe activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jacoelho/bipe"
)

// Metrics holds the Prometheus collectors shared by every observed pipe.
type Metrics struct {
	Bytes  *prometheus.CounterVec
	Ops    *prometheus.CounterVec
	Waits  *prometheus.HistogramVec
	Closes *prometheus.CounterVec
}

// New registers the pipe collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Bytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bipe_bytes_total",
				Help: "Bytes accepted by writers or delivered to readers",
			},
			[]string{"pipe", "op"},
		),
		Ops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bipe_transfers_total",
				Help: "Successful transport operations",
			},
			[]string{"pipe", "op"},
		),
		Waits: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bipe_wait_seconds",
				Help:    "Time spent blocked waiting for space or data",
				Buckets: []float64{.00001, .0001, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"pipe", "op"},
		),
		Closes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bipe_closes_total",
				Help: "Pipes closed, by the side that closed first",
			},
			[]string{"pipe", "side"},
		),
	}
}

// Observer returns a bipe.Observer recording under the given pipe label.
func (m *Metrics) Observer(pipe string) bipe.Observer {
	labels := prometheus.Labels{"pipe": pipe}
	return &observer{
		bytes:  m.Bytes.MustCurryWith(labels),
		ops:    m.Ops.MustCurryWith(labels),
		waits:  m.Waits.MustCurryWith(labels),
		closes: m.Closes.MustCurryWith(labels),
	}
}

type observer struct {
	bytes  *prometheus.CounterVec
	ops    *prometheus.CounterVec
	waits  prometheus.ObserverVec
	closes *prometheus.CounterVec
}

func (o *observer) Transferred(op bipe.Op, n int) {
	o.bytes.WithLabelValues(op.String()).Add(float64(n))
	o.ops.WithLabelValues(op.String()).Inc()
}

func (o *observer) Waited(op bipe.Op, d time.Duration) {
	o.waits.WithLabelValues(op.String()).Observe(d.Seconds())
}

func (o *observer) Closed(op bipe.Op) {
	o.closes.WithLabelValues(op.String()).Inc()
}
