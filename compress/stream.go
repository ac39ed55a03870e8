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
// Package compress provides the optional streaming byte-transform stage
// between the writer's flush buffer and the trace file. A codec is
// responsible for its own framing (e.g. gzip headers/trailers); failures
// are never fatal to the caller.
package compress

import "io"

// Stream is a byte-in, byte-out streaming codec. Write transforms and
// forwards bytes to the underlying destination; Close flushes any trailing
// frame data. Close does not close the destination: its owner does that.
type Stream interface {
	io.WriteCloser
}
