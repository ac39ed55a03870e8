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
// Package config holds the process-wide service context that the original
// source models as a set of singletons: whether aggregation/metadata/
// compression are on, the write buffer size, the trace interval, and the
// output path. It is built once, at startup, through a functional-options
// constructor, and passed explicitly to the rest of the pipeline rather
// than read from global state.
package config

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Defaults mirror the original source's built-in constants.
const (
	DefaultWriteBufferSize = 1024 * 1024
	DefaultTraceIntervalMs = 1000
)

// Config is the service-wide context built at startup and threaded through
// the logger, buffer manager, and progress engine. It is read-only once
// constructed.
type Config struct {
	Enable          bool
	Metadata        bool
	Compression     bool
	WriteBufferSize int
	TraceIntervalMs uint32
	LogFile         string
}

// Option configures a Config at construction, the same shape as
// sched.Option in the analysis package this pipeline is descended from.
type Option func(c *Config) error

// WithEnable turns event aggregation on or off. If true, data events are
// folded into the aggregator and reach the file only as aggregated counter
// lines; if false, each data event is written directly as a Duration line.
// It does not switch the pipeline off: log_* calls always reach the
// aggregator or the writer.
func WithEnable(b bool) Option {
	return func(c *Config) error {
		c.Enable = b
		return nil
	}
}

// WithMetadata controls whether per-event metadata is included on
// Duration/Counter events.
func WithMetadata(b bool) Option {
	return func(c *Config) error {
		c.Metadata = b
		return nil
	}
}

// WithCompression turns on the in-process gzip stream between the
// writer's flush buffer and the trace file.
func WithCompression(b bool) Option {
	return func(c *Config) error {
		c.Compression = b
		return nil
	}
}

// WithWriteBufferSize sets the writer's fixed buffer size, in bytes. Must
// be positive.
func WithWriteBufferSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return status.Errorf(codes.InvalidArgument, "config: write buffer size must be positive, got %d", n)
		}
		c.WriteBufferSize = n
		return nil
	}
}

// WithTraceIntervalMs sets the progress engine's wake cadence and the
// aggregator's bucket width. Must be positive.
func WithTraceIntervalMs(ms uint32) Option {
	return func(c *Config) error {
		if ms == 0 {
			return status.Errorf(codes.InvalidArgument, "config: trace interval must be positive, got %d", ms)
		}
		c.TraceIntervalMs = ms
		return nil
	}
}

// WithLogFile sets the trace output path prefix. Required: New fails if
// this is never set (or set empty).
func WithLogFile(path string) Option {
	return func(c *Config) error {
		c.LogFile = path
		return nil
	}
}

// New builds a Config from defaults plus opts, applied in order. It fails
// if the resulting LogFile is empty, per spec: log_file is required for
// the service to start.
func New(opts ...Option) (*Config, error) {
	c := &Config{
		WriteBufferSize: DefaultWriteBufferSize,
		TraceIntervalMs: DefaultTraceIntervalMs,
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	if c.LogFile == "" {
		return nil, status.Errorf(codes.InvalidArgument, "config: log_file is required")
	}
	return c, nil
}

// Suffix returns the trace file's extension: ".pfw.gz" when compression is
// on, ".pfw" otherwise.
func (c *Config) Suffix() string {
	if c.Compression {
		return ".pfw.gz"
	}
	return ".pfw"
}

// TracePath composes the full trace file name for the given hostname:
// "<log_file>_<hostname><suffix>".
func (c *Config) TracePath(hostname string) string {
	return c.LogFile + "_" + hostname + c.Suffix()
}
