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
// Package progress implements the background progress engine: a single
// worker that wakes on a fixed cadence, drains closed aggregation
// intervals, samples host counters, and flushes them through the buffer
// manager.
package progress

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/anku94/dftracer/buffer"
	"github.com/anku94/dftracer/hoststats"
	"github.com/anku94/dftracer/metadata"
)

// State is a position in the engine's lifecycle.
type State int32

const (
	// Created is the state immediately after New.
	Created State = iota
	// Running is the state after a successful Start.
	Running
	// Stopping is the state from the moment Stop is called until the
	// worker goroutine has joined.
	Stopping
	// Finalized is the state once the worker has joined and the buffer
	// manager has been finalized.
	Finalized
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Finalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithStatPath overrides the /proc/stat path sampled each tick. Intended
// for tests.
func WithStatPath(path string) Option {
	return func(e *Engine) { e.statPath = path }
}

// WithMemInfoPath overrides the /proc/meminfo path sampled each tick.
// Intended for tests.
func WithMemInfoPath(path string) Option {
	return func(e *Engine) { e.memInfoPath = path }
}

// WithClock overrides the engine's source of the current time, in
// microseconds. Intended for tests.
func WithClock(now func() uint64) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the C7 background worker. It wakes every intervalMs
// milliseconds, asks the buffer manager to drain and render closed
// aggregation intervals, and samples host CPU and memory counters.
//
// Cancellation is cooperative: Stop clears an atomic flag the worker
// checks between ticks, then joins it. There is no hard timeout; a stuck
// flush blocks shutdown, per the concurrency model's explicit design.
type Engine struct {
	intervalMs  uint32
	pid         int32
	manager     *buffer.Manager
	statPath    string
	memInfoPath string
	now         func() uint64

	state   atomic.Int32
	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New returns an Engine in the Created state.
func New(intervalMs uint32, manager *buffer.Manager, pid int32, opts ...Option) *Engine {
	e := &Engine{
		intervalMs:  intervalMs,
		pid:         pid,
		manager:     manager,
		statPath:    "/proc/stat",
		memInfoPath: "/proc/meminfo",
		now:         defaultNow,
		done:        make(chan struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	e.state.Store(int32(Created))
	return e
}

func defaultNow() uint64 { return uint64(time.Now().UnixMicro()) }

// State returns the engine's current lifecycle state.
func (e *Engine) State() State { return State(e.state.Load()) }

// Start transitions Created -> Running and launches the worker goroutine.
// It is invalid from any state other than Created.
func (e *Engine) Start() error {
	if !e.state.CompareAndSwap(int32(Created), int32(Running)) {
		return status.Errorf(codes.FailedPrecondition, "progress: Start called from state %s, want %s", e.State(), Created)
	}
	e.running.Store(true)
	e.wg.Add(1)
	go e.run()
	return nil
}

func (e *Engine) run() {
	defer e.wg.Done()
	for e.running.Load() {
		e.tick()
		time.Sleep(time.Duration(e.intervalMs) * time.Millisecond)
	}
}

// tick drains closed aggregation intervals and samples host counters.
// Every failure here (a closed fd, a malformed /proc line) is logged and
// swallowed; it never aborts the worker.
func (e *Engine) tick() {
	e.manager.DrainClosedIntervals()

	ts := e.now()
	var cpuSamples []hoststats.CPUSample
	var memKVs []hoststats.KV

	var g errgroup.Group
	g.Go(func() error {
		cpuSamples = e.sampleStat()
		return nil
	})
	g.Go(func() error {
		memKVs = e.sampleMemInfo()
		return nil
	})
	_ = g.Wait() // both goroutines log and swallow their own errors

	for _, s := range cpuSamples {
		md := metadata.New()
		for _, kv := range s.Percentages() {
			md.Set(kv.Name, metadata.KindValue, metadata.Double(kv.Value))
		}
		e.manager.LogCounterEvent(s.Name, "hoststats", 0, ts, md)
	}
	if len(memKVs) > 0 {
		md := metadata.New()
		for _, kv := range memKVs {
			md.Set(kv.Name, metadata.KindValue, metadata.Double(kv.Value))
		}
		e.manager.LogCounterEvent("meminfo", "hoststats", 0, ts, md)
	}
}

func (e *Engine) sampleStat() []hoststats.CPUSample {
	f, err := os.Open(e.statPath)
	if err != nil {
		log.Infof("progress: %s unavailable, skipping CPU sample: %v", e.statPath, err)
		return nil
	}
	defer f.Close()
	samples, err := hoststats.ParseStat(f)
	if err != nil {
		log.Warningf("progress: parsing %s: %v", e.statPath, err)
		return nil
	}
	return samples
}

func (e *Engine) sampleMemInfo() []hoststats.KV {
	f, err := os.Open(e.memInfoPath)
	if err != nil {
		log.Infof("progress: %s unavailable, skipping memory sample: %v", e.memInfoPath, err)
		return nil
	}
	defer f.Close()
	kvs, err := hoststats.ParseMemInfo(f)
	if err != nil {
		log.Warningf("progress: parsing %s: %v", e.memInfoPath, err)
		return nil
	}
	return kvs
}

// Stop clears the running flag, joins the worker, and finalizes the buffer
// manager. Called from Created, there is no worker to join: the buffer
// manager is finalized and a later Start fails. It is idempotent: calling
// Stop from Stopping or Finalized is a no-op.
func (e *Engine) Stop() error {
	if !e.state.CompareAndSwap(int32(Running), int32(Stopping)) &&
		!e.state.CompareAndSwap(int32(Created), int32(Stopping)) {
		switch e.State() {
		case Stopping, Finalized:
			return nil
		default:
			return status.Errorf(codes.FailedPrecondition, "progress: Stop called from state %s", e.State())
		}
	}
	e.running.Store(false)
	e.wg.Wait()
	if err := e.manager.Finalize(true); err != nil {
		log.Warningf("progress: finalize: %v", err)
	}
	e.state.Store(int32(Finalized))
	close(e.done)
	return nil
}

// Done returns a channel closed once Stop has finished finalizing.
func (e *Engine) Done() <-chan struct{} { return e.done }
