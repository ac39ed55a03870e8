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

package compress

import (
	"compress/gzip"
	"io"
)

// GzipStream wraps an io.Writer destination with a streaming gzip encoder,
// the same codec the companion web server reaches for when it gzips an
// HTTP response on the fly.
type GzipStream struct {
	dest io.Writer
	zw   *gzip.Writer
}

// NewGzipStream returns a Stream that gzip-compresses everything written to
// it and forwards the compressed bytes to dest.
func NewGzipStream(dest io.Writer) *GzipStream {
	return &GzipStream{dest: dest, zw: gzip.NewWriter(dest)}
}

// Write implements Stream.
func (g *GzipStream) Write(p []byte) (int, error) {
	return g.zw.Write(p)
}

// Close flushes the gzip footer. It does not close dest; the writer owns
// the underlying file's lifecycle.
func (g *GzipStream) Close() error {
	return g.zw.Close()
}
