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
// Package serialize renders trace events into the Chrome Trace Event
// "JSON Lines" text encoding: one JSON object per line, newline-terminated,
// framed by a leading "[\n" and an optional trailing "]".
package serialize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/anku94/dftracer/aggregate"
	"github.com/anku94/dftracer/aggvalue"
	"github.com/anku94/dftracer/metadata"
)

// Serializer renders events for one trace file. It is stateless beyond its
// construction-time options and safe for concurrent use; callers
// (the buffer manager) serialize calls to it themselves.
//
// The "metadata: bool" configuration flag (include per-event metadata) is
// not read here: the buffer manager, which owns that flag, decides whether
// to pass a populated or nil Metadata into Duration/Counter. Serializer
// simply renders whatever it's given.
type Serializer struct {
	hostnameHash uint64
}

// New returns a Serializer that stamps hostnameHash into every event's
// args.hhash field.
func New(hostnameHash uint64) *Serializer {
	return &Serializer{hostnameHash: hostnameHash}
}

// Header returns the two bytes written once, at file open.
func (s *Serializer) Header() []byte { return []byte("[\n") }

// Footer returns the bytes written once, at finalize(end_sym=true).
func (s *Serializer) Footer() []byte { return []byte("]") }

// line accumulates one JSON object's bytes in field-insertion order.
type line struct {
	buf      []byte
	wroteAny bool
}

func newLine() *line { return &line{buf: []byte{'{'}} }

func (l *line) comma() {
	if l.wroteAny {
		l.buf = append(l.buf, ',')
	}
	l.wroteAny = true
}

func (l *line) rawKey(key string, raw []byte) {
	l.comma()
	l.buf = append(l.buf, '"')
	l.buf = append(l.buf, key...)
	l.buf = append(l.buf, '"', ':')
	l.buf = append(l.buf, raw...)
}

func (l *line) strKey(key, value string) {
	quoted, _ := json.Marshal(value)
	l.rawKey(key, quoted)
}

func (l *line) uintKey(key string, value uint64) {
	l.rawKey(key, []byte(strconv.FormatUint(value, 10)))
}

func (l *line) intKey(key string, value int64) {
	l.rawKey(key, []byte(strconv.FormatInt(value, 10)))
}

func (l *line) floatKey(key string, value float64) {
	s := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	l.rawKey(key, []byte(s))
}

// quotedUintKey writes value as a JSON string, used for the hhash field
// (and other identifiers that the on-disk shape documents as quoted even
// though the underlying type is numeric).
func (l *line) quotedUintKey(key string, value uint64) {
	l.strKey(key, strconv.FormatUint(value, 10))
}

func (l *line) rawValueKey(key string, value metadata.Value) {
	switch value.Tag() {
	case metadata.TagDouble:
		l.floatKey(key, value.Float())
	case metadata.TagI64, metadata.TagI32, metadata.TagSSize, metadata.TagOff:
		l.intKey(key, value.Int())
	case metadata.TagString, metadata.TagBorrowedString:
		l.strKey(key, value.Str())
	default:
		l.uintKey(key, value.Uint())
	}
}

func (l *line) object(key string, build func(inner *line)) {
	l.comma()
	l.buf = append(l.buf, '"')
	l.buf = append(l.buf, key...)
	l.buf = append(l.buf, '"', ':')
	inner := newLine()
	build(inner)
	l.buf = append(l.buf, inner.buf...)
	l.buf = append(l.buf, '}')
}

func (l *line) close() []byte {
	l.buf = append(l.buf, '}', '\n')
	return l.buf
}

// writeArgs appends an args object (hhash plus every metadata attribute, in
// insertion order) iff md is non-nil and carries at least one attribute. A
// nil or empty md omits the args object entirely.
func (s *Serializer) writeArgs(out *line, md *metadata.Metadata) {
	if md.Len() == 0 {
		return
	}
	out.object("args", func(args *line) {
		args.quotedUintKey("hhash", s.hostnameHash)
		for _, e := range md.Entries() {
			args.rawValueKey(e.Name, e.Value)
		}
	})
}

// Duration renders a Duration ("X") event.
func (s *Serializer) Duration(id int, name, category string, pid int32, tid, ts, dur uint64, md *metadata.Metadata) []byte {
	out := newLine()
	out.intKey("id", int64(id))
	out.strKey("name", name)
	out.strKey("cat", category)
	out.intKey("pid", int64(pid))
	out.uintKey("tid", tid)
	out.uintKey("ts", ts)
	out.uintKey("dur", dur)
	out.strKey("ph", "X")
	s.writeArgs(out, md)
	return out.close()
}

// Counter renders a Counter ("C") event.
func (s *Serializer) Counter(name, category string, pid int32, tid, ts uint64, md *metadata.Metadata) []byte {
	out := newLine()
	out.strKey("name", name)
	out.strKey("cat", category)
	out.uintKey("ts", ts)
	out.strKey("ph", "C")
	out.intKey("pid", int64(pid))
	out.uintKey("tid", tid)
	s.writeArgs(out, md)
	return out.close()
}

// MetadataEvent renders a Metadata ("M") event. phase is the top-level event
// name (e.g. "thread_name"); attrName/value/isString populate args.name and
// args.value, the latter quoted or raw per isString.
func (s *Serializer) MetadataEvent(id int, phase string, pid int32, tid uint64, attrName string, value metadata.Value, isString bool) []byte {
	out := newLine()
	out.intKey("id", int64(id))
	out.strKey("name", phase)
	out.strKey("cat", "dftracer")
	out.intKey("pid", int64(pid))
	out.uintKey("tid", tid)
	out.strKey("ph", "M")
	out.object("args", func(args *line) {
		args.quotedUintKey("hhash", s.hostnameHash)
		args.strKey("name", attrName)
		if isString {
			args.strKey("value", value.Str())
		} else {
			args.rawValueKey("value", value)
		}
	})
	return out.close()
}

// Aggregated renders every (key, values) entry of buckets as a counter
// event, one per bucket entry, with the derived _count/_sum/_min/_max (or
// _count alone, for non-numeric attributes) metadata attached. The counter
// event's ts is the bucket's interval start; events for earlier intervals
// are emitted before events for later ones, matching buckets' order.
func (s *Serializer) Aggregated(pid int32, buckets []aggregate.Bucket) []byte {
	var out []byte
	for _, b := range buckets {
		for _, kv := range b.Entries {
			md := metadata.New()
			for _, name := range kv.Values.Names() {
				attr, ok := kv.Values.Attribute(name)
				if !ok {
					continue
				}
				if attr.Tag().IsNumeric() {
					min, max, sum := extractNumeric(attr)
					md.Set(name+"_count", metadata.KindValue, metadata.U64(attr.Count()))
					md.Set(name+"_sum", metadata.KindValue, sum)
					md.Set(name+"_min", metadata.KindValue, min)
					md.Set(name+"_max", metadata.KindValue, max)
				} else {
					md.Set(name+"_count", metadata.KindValue, metadata.U64(attr.Count()))
				}
			}
			out = append(out, s.Counter(kv.Key.EventName, kv.Key.Category, pid, kv.Key.ThreadID, b.IntervalStart, md)...)
		}
	}
	return out
}

func extractNumeric(attr *aggvalue.Attribute) (min, max, sum metadata.Value) {
	switch attr.Tag() {
	case metadata.TagDouble:
		mn, mx, sm := attr.FloatStats()
		return metadata.Double(mn), metadata.Double(mx), metadata.Double(sm)
	case metadata.TagI64, metadata.TagI32, metadata.TagSSize, metadata.TagOff:
		mn, mx, sm := attr.IntStats()
		return metadata.I64(mn), metadata.I64(mx), metadata.I64(sm)
	default:
		mn, mx, sm := attr.UintStats()
		return metadata.U64(mn), metadata.U64(mx), metadata.U64(sm)
	}
}
