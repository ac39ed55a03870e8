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

package aggregate

import (
	"testing"

	"github.com/anku94/dftracer/metadata"
)

func TestAggregateCollapsesIntoOneBucket(t *testing.T) {
	a := New(10) // 10ms -> 10000us intervals
	durations := []uint64{10, 20, 30}
	starts := []uint64{1000, 2000, 3000}
	for i, s := range starts {
		a.Aggregate("io", "g", s, durations[i], nil, 3)
	}

	buckets := a.Drain(true)
	if len(buckets) != 1 {
		t.Fatalf("Drain(true) returned %d buckets, want 1", len(buckets))
	}
	if buckets[0].IntervalStart != 0 {
		t.Fatalf("IntervalStart = %d, want 0", buckets[0].IntervalStart)
	}
	if len(buckets[0].Entries) != 1 {
		t.Fatalf("Entries = %d, want 1", len(buckets[0].Entries))
	}
	dur, ok := buckets[0].Entries[0].Values.Attribute("dur")
	if !ok {
		t.Fatal("dur attribute missing")
	}
	if dur.Count() != 3 {
		t.Errorf("Count() = %d, want 3", dur.Count())
	}
	min, max, sum := dur.UintStats()
	if min != 10 || max != 30 || sum != 60 {
		t.Errorf("UintStats() = (%d,%d,%d), want (10,30,60)", min, max, sum)
	}
}

func TestAggregateIntervalRollover(t *testing.T) {
	a := New(10) // interval_us = 10000
	a.Aggregate("io", "g", 5000, 10, nil, 3)
	a.Aggregate("io", "g", 15000, 20, nil, 3)
	a.Aggregate("io", "g", 25000, 30, nil, 3)

	if got := a.LastInterval(); got != 20000 {
		t.Fatalf("LastInterval() = %d, want 20000", got)
	}

	buckets := a.Drain(false)
	if len(buckets) != 2 {
		t.Fatalf("Drain(false) returned %d buckets, want 2", len(buckets))
	}
	if buckets[0].IntervalStart != 0 || buckets[1].IntervalStart != 10000 {
		t.Fatalf("unexpected interval starts: %d, %d", buckets[0].IntervalStart, buckets[1].IntervalStart)
	}

	remaining := a.Drain(true)
	if len(remaining) != 1 || remaining[0].IntervalStart != 20000 {
		t.Fatalf("Drain(true) after partial drain = %+v, want [20000]", remaining)
	}
}

func TestAggregateDifferentMetadataKeyValueSplitsBucket(t *testing.T) {
	a := New(10)
	m1 := metadata.New()
	m1.Set("k", metadata.Key, metadata.U64(7))
	m2 := metadata.New()
	m2.Set("k", metadata.Key, metadata.U64(8))

	a.Aggregate("c", "n", 0, 1, m1, 1)
	a.Aggregate("c", "n", 0, 1, m2, 1)

	buckets := a.Drain(true)
	if len(buckets) != 1 {
		t.Fatalf("Drain(true) returned %d buckets, want 1", len(buckets))
	}
	if len(buckets[0].Entries) != 2 {
		t.Fatalf("Entries = %d, want 2 distinct buckets for differing MT_KEY value", len(buckets[0].Entries))
	}
}

func TestAggregateValueMetadataDoesNotSplitBucket(t *testing.T) {
	a := New(10)
	m1 := metadata.New()
	m1.Set("v", metadata.KindValue, metadata.U64(7))
	m2 := metadata.New()
	m2.Set("v", metadata.KindValue, metadata.U64(8))

	a.Aggregate("c", "n", 0, 1, m1, 1)
	a.Aggregate("c", "n", 0, 1, m2, 1)

	buckets := a.Drain(true)
	if len(buckets[0].Entries) != 1 {
		t.Fatalf("Entries = %d, want 1: MT_VALUE differences must not split the bucket", len(buckets[0].Entries))
	}
	v, ok := buckets[0].Entries[0].Values.Attribute("v")
	if !ok || v.Count() != 2 {
		t.Fatalf("attribute v = %+v, ok=%v, want count 2", v, ok)
	}
}

func TestAggregateReturnValueSignalsAdvance(t *testing.T) {
	a := New(10)
	if got := a.Aggregate("c", "n", 0, 1, nil, 0); got {
		t.Error("first call must never report an advance")
	}
	if got := a.Aggregate("c", "n", 0, 1, nil, 0); got {
		t.Error("second call in the same interval must not report an advance")
	}
	if got := a.Aggregate("c", "n", 10000, 1, nil, 0); !got {
		t.Error("call that crosses into a new interval must report an advance")
	}
}

func TestDrainMonotone(t *testing.T) {
	a := New(10)
	a.Aggregate("c", "n", 0, 1, nil, 0)
	a.Aggregate("c", "n", 30000, 1, nil, 0)

	buckets := a.Drain(false)
	last := a.LastInterval()
	for _, b := range buckets {
		if b.IntervalStart >= last {
			t.Errorf("drained interval %d not < last_interval %d", b.IntervalStart, last)
		}
	}
}
