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

package serialize

import (
	"testing"

	"github.com/anku94/dftracer/aggregate"
	"github.com/anku94/dftracer/aggvalue"
	"github.com/anku94/dftracer/metadata"
)

func TestDurationEventNoMetadata(t *testing.T) {
	s := New(0)
	got := string(s.Duration(1, "f", "app", 42, 7, 5, 100, nil))
	want := `{"id":1,"name":"f","cat":"app","pid":42,"tid":7,"ts":5,"dur":100,"ph":"X"}` + "\n"
	if got != want {
		t.Errorf("Duration() = %q, want %q", got, want)
	}
}

func TestCounterEventWithMetadata(t *testing.T) {
	s := New(0xABCD)
	md := metadata.New()
	md.Set("user_pct", metadata.KindValue, metadata.Double(100))
	got := string(s.Counter("cpu", "host", 1, 0, 10, md))
	want := `{"name":"cpu","cat":"host","ts":10,"ph":"C","pid":1,"tid":0,"args":{"hhash":"43981","user_pct":100.0}}` + "\n"
	if got != want {
		t.Errorf("Counter() = %q, want %q", got, want)
	}
}

func TestMetadataEventQuotedAndRaw(t *testing.T) {
	s := New(0)
	raw := string(s.MetadataEvent(1, "thread_name", 42, 7, "name", metadata.U64(3), false))
	if want := `{"id":1,"name":"thread_name","cat":"dftracer","pid":42,"tid":7,"ph":"M","args":{"hhash":"0","name":"name","value":3}}` + "\n"; raw != want {
		t.Errorf("MetadataEvent(raw) = %q, want %q", raw, want)
	}
	quoted := string(s.MetadataEvent(1, "thread_name", 42, 7, "name", metadata.String("worker"), true))
	if want := `{"id":1,"name":"thread_name","cat":"dftracer","pid":42,"tid":7,"ph":"M","args":{"hhash":"0","name":"name","value":"worker"}}` + "\n"; quoted != want {
		t.Errorf("MetadataEvent(quoted) = %q, want %q", quoted, want)
	}
}

func TestHeaderAndFooter(t *testing.T) {
	s := New(0)
	if string(s.Header()) != "[\n" {
		t.Errorf("Header() = %q, want %q", s.Header(), "[\n")
	}
	if string(s.Footer()) != "]" {
		t.Errorf("Footer() = %q, want %q", s.Footer(), "]")
	}
}

func TestStringEscaping(t *testing.T) {
	s := New(0)
	md := metadata.New()
	md.Set("path", metadata.KindValue, metadata.String(`a"b\c`))
	got := string(s.Counter("n", "c", 0, 0, 0, md))
	want := `{"name":"n","cat":"c","ts":0,"ph":"C","pid":0,"tid":0,"args":{"hhash":"0","path":"a\"b\\c"}}` + "\n"
	if got != want {
		t.Errorf("Counter() with special characters = %q, want %q", got, want)
	}
}

func TestAggregatedRendersDerivedAttributes(t *testing.T) {
	s := New(0)
	md := metadata.New()
	md.Set("k", metadata.Key, metadata.U64(1))
	key := aggregate.NewKey("io", "g", 0, 3, md)

	store := aggvalue.NewStore()
	store.Update("dur", metadata.U64(10))
	store.Update("dur", metadata.U64(20))
	store.Update("dur", metadata.U64(30))
	bucket := aggregate.Bucket{
		IntervalStart: 0,
		Entries:       []aggregate.KeyedValues{{Key: key, Values: store}},
	}
	out := string(s.Aggregated(42, []aggregate.Bucket{bucket}))
	want := `{"name":"g","cat":"io","ts":0,"ph":"C","pid":42,"tid":3,"args":{"hhash":"0","dur_count":3,"dur_sum":60,"dur_min":10,"dur_max":30}}` + "\n"
	if out != want {
		t.Errorf("Aggregated() = %q, want %q", out, want)
	}
}
