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

// Package metrics defines the abstract counters/gauges/histogram contract
// consumed by the ingest pipeline. It performs no exporting itself; a
// concrete binding (see internal/metrics/prometheus) registers the
// updates against a real metrics backend.
package metrics

// Sink is the minimal set of operations every ingest component needs to
// report metrics. Implementations must be safe for concurrent use.
type Sink interface {
	// CounterAdd increments the named counter by delta (delta >= 0).
	CounterAdd(name string, delta float64, labels ...string)

	// GaugeSet sets the named gauge to value.
	GaugeSet(name string, value float64, labels ...string)

	// HistogramObserve records value into the named histogram.
	HistogramObserve(name string, value float64, labels ...string)
}

// Stable metric names. These are referenced by name rather than typed
// constants elsewhere in the codebase to keep apis/metrics the single
// source of truth for the wire contract between the core and any binding.
const (
	MessagesReceivedTotal      = "messages_received_total"
	MessagesWrittenTotal       = "messages_written_total"
	MessagesDroppedTotal       = "messages_dropped_total"
	TCPConnectionsTotal        = "tcp_connections_total"
	TCPConnectionsRejectedTotal = "tcp_connections_rejected_total"
	TCPConnectionsActive       = "tcp_connections_active"
	UDPDatagramsReceivedTotal  = "udp_datagrams_received_total"
	BackpressureEventsTotal    = "backpressure_events_total"
	FileWriteLatencySeconds    = "file_write_latency_seconds"
	FileRotationEventsTotal    = "file_rotation_events_total"
	FileRotationErrorsTotal    = "file_rotation_errors_total"
)

// Noop is a Sink that discards every update. Useful as a default when no
// metrics binding is configured (e.g. in unit tests).
type Noop struct{}

var _ Sink = Noop{}

func (Noop) CounterAdd(string, float64, ...string)      {}
func (Noop) GaugeSet(string, float64, ...string)        {}
func (Noop) HistogramObserve(string, float64, ...string) {}
