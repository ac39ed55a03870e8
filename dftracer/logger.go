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
// Package dftracer is the public facade: it wires config, buffer manager,
// and progress engine together into one Logger, and supplies the
// StartRegion/Region instrumentation entry point that an out-of-tree
// MPI/GPU/task-runtime shim would call into, mirroring the original
// source's MPIScope RAII guard.
package dftracer

import (
	"hash/fnv"
	"io"
	"os"
	"sync/atomic"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/anku94/dftracer/aggregate"
	"github.com/anku94/dftracer/buffer"
	"github.com/anku94/dftracer/compress"
	"github.com/anku94/dftracer/config"
	"github.com/anku94/dftracer/metadata"
	"github.com/anku94/dftracer/progress"
	"github.com/anku94/dftracer/serialize"
	"github.com/anku94/dftracer/writer"
)

// Logger is the top-level entry point an instrumented process constructs
// once at startup. It owns the buffer manager and the progress engine and
// exposes the log_* operations C6 defines, plus the region helper.
type Logger struct {
	cfg     *config.Config
	manager *buffer.Manager
	engine  *progress.Engine
	pid     int32
	nextID  atomic.Int64
	runID   uuid.UUID
}

func hostnameHash(hostname string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(hostname))
	return h.Sum64()
}

// New constructs a Logger from cfg: a hostname lookup (fatal on failure),
// the aggregator, optional compressor, writer, serializer, and the buffer
// manager that composes them. It does not start the progress engine; call
// Start for that.
func New(cfg *config.Config, pid int32) (*Logger, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "dftracer: hostname lookup failed: %v", err)
	}
	hhash := hostnameHash(hostname)

	var newCompressor func(io.Writer) compress.Stream
	if cfg.Compression {
		newCompressor = func(dest io.Writer) compress.Stream { return compress.NewGzipStream(dest) }
	}

	w := writer.New(cfg.WriteBufferSize, newCompressor)
	ser := serialize.New(hhash)
	if err := w.Initialize(cfg.TracePath(hostname), hhash, ser.Header()); err != nil {
		return nil, err
	}

	agg := aggregate.New(cfg.TraceIntervalMs)
	mgr := buffer.New(buffer.Config{
		EnableAggregation: cfg.Enable,
		IncludeMetadata:   cfg.Metadata,
	}, pid, agg, ser, w)

	eng := progress.New(cfg.TraceIntervalMs, mgr, pid)

	runID := uuid.New()
	log.Infof("dftracer: starting run %s, pid %d, trace %s", runID, pid, cfg.TracePath(hostname))

	return &Logger{
		cfg:     cfg,
		manager: mgr,
		engine:  eng,
		pid:     pid,
		runID:   runID,
	}, nil
}

// Start launches the progress engine's background worker.
func (l *Logger) Start() error {
	return l.engine.Start()
}

// Finalize stops the progress engine (which itself finalizes the buffer
// manager) and blocks until shutdown completes. Safe to call more than
// once.
func (l *Logger) Finalize() error {
	return l.engine.Stop()
}

func (l *Logger) nextEventID() int {
	return int(l.nextID.Add(1))
}

// LogDataEvent logs a Duration-shaped event for tid, mirroring C6's
// log_data_event.
func (l *Logger) LogDataEvent(name, category string, startTime, duration uint64, md *metadata.Metadata, tid uint64) {
	l.manager.LogDataEvent(l.nextEventID(), name, category, startTime, duration, md, tid)
}

// LogCounterEvent logs a Counter ("C") event.
func (l *Logger) LogCounterEvent(name, category string, tid, ts uint64, md *metadata.Metadata) {
	l.manager.LogCounterEvent(name, category, tid, ts, md)
}

// LogMetadataEvent logs a Metadata ("M") event.
func (l *Logger) LogMetadataEvent(phase string, tid uint64, attrName string, value metadata.Value, isString bool) {
	l.manager.LogMetadataEvent(l.nextEventID(), phase, tid, attrName, value, isString)
}

// Region is a started-but-not-yet-ended instrumentation scope, returned by
// StartRegion. It plays the role of the original source's MPIScope: the
// caller is expected to call End exactly once.
type Region struct {
	logger    *Logger
	category  string
	name      string
	tid       uint64
	startTime uint64
	metadata  *metadata.Metadata
}

// clockNow returns the current monotonic microsecond timestamp. A package
// variable so tests can override it.
var clockNow = defaultClockNow

// StartRegion records the start time for one instrumented call and returns
// a Region. The returned Region must be ended with End, which logs the
// Duration event the way MPIScope's destructor does.
func (l *Logger) StartRegion(category, name string, tid uint64, md *metadata.Metadata) Region {
	return Region{
		logger:    l,
		category:  category,
		name:      name,
		tid:       tid,
		startTime: clockNow(),
		metadata:  md,
	}
}

// End computes the elapsed duration since StartRegion and logs a Duration
// event, merging extra into whatever metadata StartRegion was given (extra
// entries win on name conflicts, preserving Metadata's last-write-wins
// rule).
func (r Region) End(extra *metadata.Metadata) {
	md := r.metadata
	if extra != nil {
		if md == nil {
			md = metadata.New()
		}
		for _, e := range extra.Entries() {
			md.Set(e.Name, e.Kind, e.Value)
		}
	}
	end := clockNow()
	r.logger.LogDataEvent(r.name, r.category, r.startTime, end-r.startTime, md, r.tid)
}
