/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package prometheus binds apis/metrics.Sink to a real
// github.com/prometheus/client_golang registry. It only registers
// instruments and applies updates; the HTTP scrape endpoint itself is out
// of scope (an external binder can expose registry via promhttp).
package prometheus

import (
	"sync"

	apismetrics "dirpx.dev/dlogd/apis/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Sink is a prometheus-backed apis/metrics.Sink. The label dimension is
// intentionally free-form (variadic strings in Name/value pairs are not
// modeled): all of the daemon's named metrics are unlabeled counters,
// gauges, and one histogram, matching spec.md §4.8/§6 exactly.
type Sink struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

var _ apismetrics.Sink = (*Sink)(nil)

// New constructs a Sink and pre-registers every stable metric name the
// ingest core emits against a fresh prometheus.Registry.
func New() *Sink {
	s := &Sink{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}

	for _, name := range []string{
		apismetrics.MessagesReceivedTotal,
		apismetrics.MessagesWrittenTotal,
		apismetrics.MessagesDroppedTotal,
		apismetrics.TCPConnectionsTotal,
		apismetrics.TCPConnectionsRejectedTotal,
		apismetrics.UDPDatagramsReceivedTotal,
		apismetrics.BackpressureEventsTotal,
		apismetrics.FileRotationEventsTotal,
		apismetrics.FileRotationErrorsTotal,
	} {
		s.registerCounter(name)
	}

	s.registerGauge(apismetrics.TCPConnectionsActive)
	s.registerHistogram(apismetrics.FileWriteLatencySeconds,
		prometheus.DefBuckets)

	return s
}

// Registry exposes the underlying prometheus.Registry so an external
// binder (e.g. promhttp.HandlerFor) can serve it; constructing that HTTP
// handler is not this package's concern.
func (s *Sink) Registry() *prometheus.Registry { return s.registry }

func (s *Sink) registerCounter(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, []string{"label"})
	s.registry.MustRegister(cv)
	s.counters[name] = cv
}

func (s *Sink) registerGauge(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, []string{"label"})
	s.registry.MustRegister(gv)
	s.gauges[name] = gv
}

func (s *Sink) registerHistogram(name string, buckets []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Buckets: buckets}, []string{"label"})
	s.registry.MustRegister(hv)
	s.histograms[name] = hv
}

func labelOrEmpty(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return labels[0]
}

// CounterAdd implements apis/metrics.Sink.
func (s *Sink) CounterAdd(name string, delta float64, labels ...string) {
	s.mu.Lock()
	cv, ok := s.counters[name]
	s.mu.Unlock()
	if !ok {
		return
	}
	cv.WithLabelValues(labelOrEmpty(labels)).Add(delta)
}

// GaugeSet implements apis/metrics.Sink.
func (s *Sink) GaugeSet(name string, value float64, labels ...string) {
	s.mu.Lock()
	gv, ok := s.gauges[name]
	s.mu.Unlock()
	if !ok {
		return
	}
	gv.WithLabelValues(labelOrEmpty(labels)).Set(value)
}

// HistogramObserve implements apis/metrics.Sink.
func (s *Sink) HistogramObserve(name string, value float64, labels ...string) {
	s.mu.Lock()
	hv, ok := s.histograms[name]
	s.mu.Unlock()
	if !ok {
		return
	}
	hv.WithLabelValues(labelOrEmpty(labels)).Observe(value)
}
