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
	"sort"
	"sync"

	log "github.com/golang/glog"

	"github.com/anku94/dftracer/aggvalue"
	"github.com/anku94/dftracer/metadata"
)

// KeyedValues pairs one bucket entry's identity with its reduction store.
type KeyedValues struct {
	Key    Key
	Values *aggvalue.Store
}

// Bucket is one closed interval surrendered by Drain: its start time and
// every (Key, Store) entry it held.
type Bucket struct {
	IntervalStart uint64
	Entries       []KeyedValues
}

// chain is the set of entries sharing one hash bucket within an interval.
type chain []*KeyedValues

type intervalBucket struct {
	start  uint64
	chains map[uint64]chain
}

func newIntervalBucket(start uint64) *intervalBucket {
	return &intervalBucket{start: start, chains: make(map[uint64]chain)}
}

func (b *intervalBucket) getOrCreate(key Key) *aggvalue.Store {
	h := key.hash()
	for _, kv := range b.chains[h] {
		if kv.Key.Equal(key) {
			return kv.Values
		}
	}
	kv := &KeyedValues{Key: key, Values: aggvalue.NewStore()}
	b.chains[h] = append(b.chains[h], kv)
	return kv.Values
}

func (b *intervalBucket) toBucket() Bucket {
	out := Bucket{IntervalStart: b.start}
	for _, c := range b.chains {
		for _, kv := range c {
			out.Entries = append(out.Entries, *kv)
		}
	}
	return out
}

// Aggregator is the time-bucketed map of interval start to bucket entries.
// It is safe for concurrent use by any number of callers of Aggregate;
// Drain runs exclusively against them, per the aggregator mutex described
// in the concurrency model.
type Aggregator struct {
	mu sync.Mutex

	intervalUs   uint64
	buckets      map[uint64]*intervalBucket
	lastInterval uint64
	isFirst      bool
}

// New returns an Aggregator bucketing on intervals of intervalMs
// milliseconds.
func New(intervalMs uint32) *Aggregator {
	return &Aggregator{
		intervalUs: uint64(intervalMs) * 1000,
		buckets:    make(map[uint64]*intervalBucket),
		isFirst:    true,
	}
}

// Aggregate folds one event into its bucket. It computes the event's
// interval, opens that interval's bucket if absent, builds the
// (category, name, interval, tid, metadata) key, and updates the "dur"
// attribute with duration plus every MT_VALUE metadata attribute.
//
// It returns true iff this call advanced the aggregator's high-water mark
// (last_interval) and was not the very first call ever made: a hint the
// caller may use to opportunistically trigger a drain.
func (a *Aggregator) Aggregate(category, eventName string, startTime, duration uint64, md *metadata.Metadata, tid uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	wasFirst := a.isFirst
	a.isFirst = false

	interval := (startTime / a.intervalUs) * a.intervalUs
	bucket, ok := a.buckets[interval]
	if !ok {
		bucket = newIntervalBucket(interval)
		a.buckets[interval] = bucket
		log.Infof("aggregate: opened bucket for interval %d (%d open)", interval, len(a.buckets))
	}

	prevLast := a.lastInterval
	if interval > a.lastInterval {
		a.lastInterval = interval
	}

	key := NewKey(category, eventName, interval, tid, md)
	store := bucket.getOrCreate(key)
	store.Update("dur", metadata.U64(duration))
	for _, e := range md.ValueEntries() {
		store.Update(e.Name, e.Value)
	}

	return !wasFirst && prevLast != a.lastInterval
}

// Drain removes and returns bucket entries. With all set, every interval is
// surrendered, including the currently open one; otherwise only intervals
// strictly less than the current last_interval are surrendered. Buckets are
// returned in interval-ascending order. The Aggregator retains no
// reference into a surrendered bucket.
func (a *Aggregator) Drain(all bool) []Bucket {
	a.mu.Lock()
	defer a.mu.Unlock()

	log.Infof("aggregate: draining %d open intervals, all=%v", len(a.buckets), all)

	var out []Bucket
	for start, bucket := range a.buckets {
		if all || start < a.lastInterval {
			out = append(out, bucket.toBucket())
			delete(a.buckets, start)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IntervalStart < out[j].IntervalStart })
	return out
}

// LastInterval returns the highest interval start seen by Aggregate so far.
func (a *Aggregator) LastInterval() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastInterval
}
