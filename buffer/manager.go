//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
//
// Package buffer implements the buffer manager: the facade combining the
// aggregator, serializer, and writer behind the mutex that guards all file
// formatting and I/O.
package buffer

import (
	"sync"

	"github.com/anku94/dftracer/aggregate"
	"github.com/anku94/dftracer/metadata"
	"github.com/anku94/dftracer/serialize"
	"github.com/anku94/dftracer/writer"
)

// Config holds the buffer manager's own flags: whether events are folded
// through the aggregator before ever reaching the file, and whether
// caller-supplied metadata is included on Duration/Counter events.
type Config struct {
	EnableAggregation bool
	IncludeMetadata   bool
}

// Manager is the C6 facade. It owns references to the aggregator,
// serializer, and writer, and a single mutex guarding all formatting and
// file I/O (the aggregator has its own, separate mutex; Manager never
// holds both at once — see LogDataEvent).
type Manager struct {
	cfg        Config
	pid        int32
	aggregator *aggregate.Aggregator
	serializer *serialize.Serializer
	writer     *writer.Writer

	mu sync.Mutex
}

// New returns a Manager composing the given aggregator, serializer, and
// writer under pid.
func New(cfg Config, pid int32, aggregator *aggregate.Aggregator, serializer *serialize.Serializer, w *writer.Writer) *Manager {
	return &Manager{cfg: cfg, pid: pid, aggregator: aggregator, serializer: serializer, writer: w}
}

// Initialize opens the trace file at path and writes the serializer
// header.
func (m *Manager) Initialize(path string, hostnameHash uint64) error {
	return m.writer.Initialize(path, hostnameHash, m.serializer.Header())
}

func (m *Manager) effective(md *metadata.Metadata) *metadata.Metadata {
	if !m.cfg.IncludeMetadata {
		return nil
	}
	return md
}

// LogDataEvent logs one duration-shaped event. If aggregation is enabled,
// the event is folded into the aggregator and nothing is written to the
// file yet; this path touches only the aggregator's own mutex, never
// Manager's. If aggregation is disabled, the event is formatted and
// appended immediately under Manager's mutex.
func (m *Manager) LogDataEvent(id int, name, category string, startTime, duration uint64, md *metadata.Metadata, tid uint64) {
	if m.cfg.EnableAggregation {
		m.aggregator.Aggregate(category, name, startTime, duration, md, tid)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writer.Append(m.serializer.Duration(id, name, category, m.pid, tid, startTime, duration, m.effective(md)))
}

// LogMetadataEvent logs a Metadata ("M") event. Never aggregated.
func (m *Manager) LogMetadataEvent(id int, phase string, tid uint64, attrName string, value metadata.Value, isString bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writer.Append(m.serializer.MetadataEvent(id, phase, m.pid, tid, attrName, value, isString))
}

// LogCounterEvent logs a Counter ("C") event. Never aggregated. Unlike
// LogDataEvent, the IncludeMetadata flag does not gate this path: md is
// passed through as given, matching the original's counter() semantics
// (metadata is rendered whenever it's non-nil and non-empty, regardless of
// include_metadata).
func (m *Manager) LogCounterEvent(name, category string, tid, ts uint64, md *metadata.Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writer.Append(m.serializer.Counter(name, category, m.pid, tid, ts, md))
}

// DrainClosedIntervals asks the aggregator for every interval strictly
// earlier than its current high-water mark, and renders each as a counter
// line. Called by the progress engine on its tick; the aggregator mutex is
// fully released before Manager's own mutex is acquired, so no call path
// ever holds both.
func (m *Manager) DrainClosedIntervals() {
	buckets := m.aggregator.Drain(false)
	if len(buckets) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writer.Append(m.serializer.Aggregated(m.pid, buckets))
}

// Finalize drains every remaining aggregated interval (including the
// currently open one), renders them as counter lines, flushes the writer,
// optionally writes the closing bracket, and closes the file.
func (m *Manager) Finalize(endSym bool) error {
	buckets := m.aggregator.Drain(true)
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(buckets) > 0 {
		m.writer.Append(m.serializer.Aggregated(m.pid, buckets))
	}
	return m.writer.Finalize(m.serializer.Footer(), endSym)
}
