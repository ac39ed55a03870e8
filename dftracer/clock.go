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

package dftracer

import "time"

// clockBase anchors defaultClockNow to the Unix epoch; time.Since reads the
// monotonic clock, so later readings never go backwards.
var clockBase = time.Now()

// defaultClockNow is the real TimeResolution clock: a monotonic unsigned
// microsecond counter.
func defaultClockNow() uint64 {
	return uint64(clockBase.UnixMicro()) + uint64(time.Since(clockBase).Microseconds())
}
