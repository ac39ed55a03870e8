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
// Package aggvalue implements the type-generic aggregated value store: a
// per-attribute reduction that keeps min/max/sum/count for numeric metadata
// and count alone for everything else, dispatching on the attribute's
// dynamic type instead of runtime type inspection.
package aggvalue

import (
	log "github.com/golang/glog"

	"github.com/anku94/dftracer/metadata"
)

// Attribute is one named reduction inside a Store. Numeric attributes
// (everything but strings) track min/max/sum/count; others track count
// alone. Arithmetic stays in the attribute's own dynamic type: unsigned
// values accumulate as uint64, signed values as int64, and doubles as
// float64, with no implicit widening between them.
type Attribute struct {
	tag   metadata.Tag
	count uint64

	minU, maxU, sumU uint64
	minI, maxI, sumI int64
	minF, maxF, sumF float64
}

// Tag returns the dynamic type this attribute was first recorded with.
func (a *Attribute) Tag() metadata.Tag { return a.tag }

// Count returns the number of values folded into this attribute.
func (a *Attribute) Count() uint64 { return a.count }

// The attribute's numeric extrema and total are meaningful only when
// Tag().IsNumeric() is true; call UintStats, IntStats, or FloatStats
// depending on the tag to read the correctly typed values.

// UintStats returns (min, max, sum) for an unsigned-integer attribute
// (TagU64, TagU32, TagU16, TagHash).
func (a *Attribute) UintStats() (min, max, sum uint64) { return a.minU, a.maxU, a.sumU }

// IntStats returns (min, max, sum) for a signed-integer attribute (TagI64,
// TagI32, TagSSize, TagOff).
func (a *Attribute) IntStats() (min, max, sum int64) { return a.minI, a.maxI, a.sumI }

// FloatStats returns (min, max, sum) for a TagDouble attribute.
func (a *Attribute) FloatStats() (min, max, sum float64) { return a.minF, a.maxF, a.sumF }

// update folds v into the attribute. The first call establishes the
// attribute's dynamic type; a later call with a different tag is a usage
// error: it is logged at INFO and dropped, per the aggregator's contract.
func (a *Attribute) update(name string, v metadata.Value) {
	if a.count == 0 {
		a.tag = v.Tag()
		a.seed(v)
		a.count = 1
		return
	}
	if a.tag != v.Tag() {
		log.Infof("aggvalue: attribute %q: type conflict, first %s then %s, update dropped", name, a.tag, v.Tag())
		return
	}
	if a.tag.IsNumeric() {
		a.numberMerge(v)
	}
	a.count++
}

func (a *Attribute) seed(v metadata.Value) {
	switch v.Tag() {
	case metadata.TagString, metadata.TagBorrowedString:
		// AggregatedValue<T>: count only, no extrema.
	case metadata.TagDouble:
		a.minF, a.maxF, a.sumF = v.Float(), v.Float(), v.Float()
	case metadata.TagI64, metadata.TagI32, metadata.TagSSize, metadata.TagOff:
		a.minI, a.maxI, a.sumI = v.Int(), v.Int(), v.Int()
	default:
		a.minU, a.maxU, a.sumU = v.Uint(), v.Uint(), v.Uint()
	}
}

func (a *Attribute) numberMerge(v metadata.Value) {
	switch v.Tag() {
	case metadata.TagDouble:
		f := v.Float()
		if f < a.minF {
			a.minF = f
		}
		if f > a.maxF {
			a.maxF = f
		}
		a.sumF += f
	case metadata.TagI64, metadata.TagI32, metadata.TagSSize, metadata.TagOff:
		i := v.Int()
		if i < a.minI {
			a.minI = i
		}
		if i > a.maxI {
			a.maxI = i
		}
		a.sumI += i
	default:
		u := v.Uint()
		if u < a.minU {
			a.minU = u
		}
		if u > a.maxU {
			a.maxU = u
		}
		a.sumU += u
	}
}

// Store is the aggregated-value store for one AggregatedKey: a mapping from
// attribute name to its typed reduction. Insertion order is preserved so
// extraction can emit attributes deterministically.
type Store struct {
	names []string
	attrs map[string]*Attribute
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{attrs: make(map[string]*Attribute)}
}

// Update folds value into the reduction named key, creating it if absent.
// A dynamic-type mismatch against an existing attribute is logged and the
// update is dropped; the store is otherwise left unchanged.
func (s *Store) Update(key string, value metadata.Value) {
	a, ok := s.attrs[key]
	if !ok {
		a = &Attribute{}
		s.attrs[key] = a
		s.names = append(s.names, key)
	}
	a.update(key, value)
}

// Names returns the attribute names in insertion order.
func (s *Store) Names() []string { return s.names }

// Attribute returns the named reduction, if present.
func (s *Store) Attribute(name string) (*Attribute, bool) {
	a, ok := s.attrs[name]
	return a, ok
}
