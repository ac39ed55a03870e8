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
// Package writer implements the single-file buffered writer: a fixed-size
// byte buffer with a high-water-mark flush policy, optionally draining
// through a compression stream before hitting disk.
package writer

import (
	"io"
	"os"

	log "github.com/golang/glog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/anku94/dftracer/compress"
)

// defaultMargin is the default safety margin reserved at the top of the
// buffer: once remaining capacity falls below this many bytes, Append
// synchronously flushes before copying in the new data.
const defaultMargin = 256

// Writer owns the output byte buffer and the file handle for one trace
// file. It is not internally synchronized: the buffer manager serializes
// all calls to it under its own mutex, so a single Append and any flush it
// triggers are atomic from the caller's perspective.
type Writer struct {
	buf    []byte
	pos    int
	margin int

	file          *os.File
	newCompressor func(io.Writer) compress.Stream
	compressor    compress.Stream
	hostHash      uint64
}

// New returns a Writer with a fixed bufSize-byte buffer. If newCompressor
// is non-nil, it is called once Initialize has opened the trace file, to
// wrap that same file descriptor with a compression stream; every flush
// is then routed through it instead of straight to the file. Passing nil
// disables compression.
func New(bufSize int, newCompressor func(io.Writer) compress.Stream) *Writer {
	return &Writer{
		buf:           make([]byte, bufSize),
		margin:        defaultMargin,
		newCompressor: newCompressor,
	}
}

// Initialize opens path (truncating any existing file), records
// hostnameHash for later interpolation, constructs the compressor (if
// configured) around that same file, and appends header into the buffer.
func (w *Writer) Initialize(path string, hostnameHash uint64, header []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return status.Errorf(codes.Unavailable, "writer: open %q: %v", path, err)
	}
	w.file = f
	w.hostHash = hostnameHash
	if w.newCompressor != nil {
		w.compressor = w.newCompressor(f)
	}
	w.Append(header)
	return nil
}

// HostnameHash returns the hash recorded at Initialize.
func (w *Writer) HostnameHash() uint64 { return w.hostHash }

// Append copies p into the buffer. If the remaining capacity after the
// copy would fall under the high-water margin, the buffer is flushed
// first. An event that doesn't fit in the buffer even when empty is a
// serialization overflow: the buffer is force-flushed (to preserve
// whatever was already pending) and the oversized event is dropped and
// logged, never written around the buffer.
func (w *Writer) Append(p []byte) {
	if len(p) > len(w.buf) {
		w.Flush(true)
		log.Warningf("writer: event of %d bytes exceeds buffer size %d, dropping", len(p), len(w.buf))
		return
	}
	if w.pos+len(p) > len(w.buf)-w.margin {
		w.Flush(true)
	}
	w.pos += copy(w.buf[w.pos:], p)
}

// Flush sends buf[0:pos) to the compressor (if any) or the file, then
// resets pos to 0. With force false, Flush is a no-op unless pos has
// crossed the high-water mark; with force true it always flushes,
// including an empty buffer (a no-op write).
func (w *Writer) Flush(force bool) {
	if w.pos == 0 {
		return
	}
	if !force && w.pos < len(w.buf)-w.margin {
		return
	}
	w.writeThrough(w.buf[:w.pos])
	w.pos = 0
}

func (w *Writer) writeThrough(p []byte) {
	if w.compressor != nil {
		if _, err := w.compressor.Write(p); err != nil {
			log.Warningf("writer: compression failed, dropping flush: %v", err)
		}
		return
	}
	if _, err := w.file.Write(p); err != nil {
		log.Warningf("writer: write failed, dropping flush: %v", err)
	}
}

// Finalize forces a flush, optionally appends footer (through the same
// path, so it too is compressed if compression is enabled), closes the
// compressor, and closes the file.
func (w *Writer) Finalize(footer []byte, endSym bool) error {
	w.Flush(true)
	if endSym && len(footer) > 0 {
		w.writeThrough(footer)
	}
	if w.compressor != nil {
		if err := w.compressor.Close(); err != nil {
			log.Warningf("writer: compressor close failed: %v", err)
		}
	}
	if w.file == nil {
		return nil
	}
	if err := w.file.Close(); err != nil {
		return status.Errorf(codes.Internal, "writer: close: %v", err)
	}
	return nil
}
