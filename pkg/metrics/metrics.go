// Package metrics exposes tail events as Prometheus metrics.
//
// Metrics wraps a tailer.Observer, counting every event before forwarding
// it, and Server serves the collected metrics over HTTP.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/0xmhha/filetail/pkg/tailer"
)

// Metrics holds the tail collectors.
type Metrics struct {
	events *prometheus.CounterVec
	bytes  *prometheus.CounterVec
	faults *prometheus.CounterVec
	offset *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
// Collectors already registered by an earlier call are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filetail_events_total",
				Help: "Tail events delivered, by kind.",
			},
			[]string{"path", "kind"},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filetail_received_bytes_total",
				Help: "Bytes delivered to observers.",
			},
			[]string{"path"},
		),
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filetail_observer_faults_total",
				Help: "Observer callbacks that returned an error or panicked.",
			},
			[]string{"method"},
		),
		offset: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "filetail_stream_offset_bytes",
				Help: "Bytes delivered since the file last restarted at offset zero.",
			},
			[]string{"path"},
		),
	}

	var err error
	if m.events, err = register(reg, m.events); err != nil {
		return nil, err
	}
	if m.bytes, err = register(reg, m.bytes); err != nil {
		return nil, err
	}
	if m.faults, err = register(reg, m.faults); err != nil {
		return nil, err
	}
	if m.offset, err = register(reg, m.offset); err != nil {
		return nil, err
	}

	return m, nil
}

// register registers c, returning the existing collector if an identical
// one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("failed to register metrics: %w", err)
	}
	return c, nil
}

// Wrap returns an Observer that records metrics and forwards to next.
func (m *Metrics) Wrap(next tailer.Observer) tailer.Observer {
	return &observer{m: m, next: next}
}

// observer implements tailer.Observer.
type observer struct {
	m    *Metrics
	next tailer.Observer
}

func (o *observer) OnCreate(path string) error {
	o.m.events.WithLabelValues(path, "create").Inc()
	o.m.offset.WithLabelValues(path).Set(0)
	return o.next.OnCreate(path)
}

func (o *observer) OnDelete(path string) error {
	o.m.events.WithLabelValues(path, "delete").Inc()
	o.m.offset.WithLabelValues(path).Set(0)
	return o.next.OnDelete(path)
}

func (o *observer) OnTruncate(path string, belowThreshold bool) error {
	o.m.events.WithLabelValues(path, "truncate").Inc()
	if belowThreshold {
		o.m.offset.WithLabelValues(path).Set(0)
	}
	return o.next.OnTruncate(path, belowThreshold)
}

func (o *observer) OnReceive(path string, data []byte) error {
	n := float64(len(data))
	o.m.events.WithLabelValues(path, "receive").Inc()
	o.m.bytes.WithLabelValues(path).Add(n)
	o.m.offset.WithLabelValues(path).Add(n)
	return o.next.OnReceive(path, data)
}

func (o *observer) OnObserverFault(method string, err error) {
	o.m.faults.WithLabelValues(method).Inc()
	o.next.OnObserverFault(method, err)
}
