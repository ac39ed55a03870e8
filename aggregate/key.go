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
// Package aggregate implements the time-bucketed aggregator: a map from
// interval start to a set of AggregatedKey -> aggvalue.Store entries, with
// aggregate() and drain() as its only mutating operations.
package aggregate

import (
	"sort"

	"github.com/anku94/dftracer/metadata"
)

// Key identifies one aggregation bucket entry: the (category, event name,
// interval, thread) tuple plus the MT_KEY metadata attributes captured at
// the time the entry was created. Two Keys are equal iff every field
// matches and, for every MT_KEY entry on either side, the name, dynamic
// type, and value match; the associated Metadata's MT_VALUE entries never
// affect identity.
//
// Key is not itself a valid Go map key (metadata values aren't
// comparable), so the Aggregator buckets by Key.hash() and resolves
// collisions with Key.Equal.
type Key struct {
	Category      string
	EventName     string
	IntervalStart uint64
	ThreadID      uint64

	keyAttrs []metadata.Entry
}

// NewKey builds a Key from the event's identifying fields and the MT_KEY
// subset of md. md may be nil or reused by the caller across calls: the key
// captures its content, never its identity.
func NewKey(category, eventName string, intervalStart, threadID uint64, md *metadata.Metadata) Key {
	attrs := md.KeyEntries()
	cp := make([]metadata.Entry, len(attrs))
	copy(cp, attrs)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Name < cp[j].Name })
	return Key{
		Category:      category,
		EventName:     eventName,
		IntervalStart: intervalStart,
		ThreadID:      threadID,
		keyAttrs:      cp,
	}
}

// Equal reports whether two Keys have the same identity, per the rule
// described on Key.
func (k Key) Equal(other Key) bool {
	if k.Category != other.Category || k.EventName != other.EventName ||
		k.IntervalStart != other.IntervalStart || k.ThreadID != other.ThreadID {
		return false
	}
	if len(k.keyAttrs) != len(other.keyAttrs) {
		return false
	}
	for i := range k.keyAttrs {
		a, b := k.keyAttrs[i], other.keyAttrs[i]
		if a.Name != b.Name || !a.Value.Equal(b.Value) {
			return false
		}
	}
	return true
}

// hash returns a bucket hash for k: a stable combination of the four scalar
// fields plus, for each MT_KEY entry, the name and dynamic type only
// (values are not hashed). Because equality additionally compares values,
// Keys with distinct MT_KEY values but identical names/types collide on
// hash and are disambiguated by a linear scan within the bucket.
func (k Key) hash() uint64 {
	h := fnvOffset
	h = fnvAdd(h, k.Category)
	h = fnvAdd(h, k.EventName)
	h = fnvMix(h, k.IntervalStart)
	h = fnvMix(h, k.ThreadID)
	for _, e := range k.keyAttrs {
		h = fnvAdd(h, e.Name)
		h = fnvMix(h, uint64(e.Value.Tag()))
	}
	return h
}

const (
	fnvOffset = uint64(14695981039346656037)
	fnvPrime  = uint64(1099511628211)
)

func fnvAdd(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

func fnvMix(h uint64, v uint64) uint64 {
	for i := 0; i < 8; i++ {
		h ^= v & 0xff
		h *= fnvPrime
		v >>= 8
	}
	return h
}
