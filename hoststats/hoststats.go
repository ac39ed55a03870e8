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
// Package hoststats samples host CPU and memory counters from /proc/stat
// and /proc/meminfo, the same files the progress engine polls on every
// tick.
package hoststats

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// KV is one named numeric sample, in the order it should be emitted.
type KV struct {
	Name  string
	Value float64
}

// jiffies are the ten /proc/stat CPU counters, in file order.
type jiffies struct {
	user, nice, system, idle, iowait, irq, softirq, steal, guest, guestNice uint64
}

func (j jiffies) total() uint64 {
	return j.user + j.nice + j.system + j.idle + j.iowait + j.irq + j.softirq + j.steal + j.guest + j.guestNice
}

// CPUSample is one "cpu" or "cpuN" line from /proc/stat, reduced to
// percentages of its own total jiffies.
type CPUSample struct {
	Name string
	j    jiffies
}

// Percentages returns the ten per-class percentages, in a fixed order,
// ready to become counter-event metadata. A zero total jiffy count is
// treated as 1 to avoid dividing by zero; every percentage is then 0.
func (c CPUSample) Percentages() []KV {
	total := c.j.total()
	if total == 0 {
		total = 1
	}
	pct := func(v uint64) float64 { return 100 * float64(v) / float64(total) }
	return []KV{
		{"user_pct", pct(c.j.user)},
		{"nice_pct", pct(c.j.nice)},
		{"system_pct", pct(c.j.system)},
		{"idle_pct", pct(c.j.idle)},
		{"iowait_pct", pct(c.j.iowait)},
		{"irq_pct", pct(c.j.irq)},
		{"softirq_pct", pct(c.j.softirq)},
		{"steal_pct", pct(c.j.steal)},
		{"guest_pct", pct(c.j.guest)},
		{"guest_nice_pct", pct(c.j.guestNice)},
	}
}

// ParseStat parses the "cpu" aggregate line and every "cpuN" line of a
// /proc/stat dump. Lines for other counters (intr, ctxt, btime, ...) are
// ignored.
func ParseStat(r io.Reader) ([]CPUSample, error) {
	var out []CPUSample
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || !strings.HasPrefix(fields[0], "cpu") {
			continue
		}
		nums := make([]uint64, 10)
		for i := 1; i < len(fields) && i <= 10; i++ {
			v, err := strconv.ParseUint(fields[i], 10, 64)
			if err != nil {
				continue
			}
			nums[i-1] = v
		}
		out = append(out, CPUSample{
			Name: fields[0],
			j: jiffies{
				user: nums[0], nice: nums[1], system: nums[2], idle: nums[3],
				iowait: nums[4], irq: nums[5], softirq: nums[6], steal: nums[7],
				guest: nums[8], guestNice: nums[9],
			},
		})
	}
	return out, scanner.Err()
}

// ParseMemInfo parses /proc/meminfo into a single ordered list of
// percentages: every key's value is rendered as 100*value/MemAvailable,
// except MemAvailable itself, which is emitted verbatim (its raw kB
// value). Keys seen before MemAvailable has been encountered are emitted
// as 0, since the denominator isn't known yet; the scan never looks ahead.
func ParseMemInfo(r io.Reader) ([]KV, error) {
	var out []KV
	var memAvailable float64
	seenMemAvailable := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := parseMemInfoLine(scanner.Text())
		if !ok {
			continue
		}
		if key == "MemAvailable" {
			memAvailable = value
			seenMemAvailable = true
			out = append(out, KV{key, value})
			continue
		}
		if !seenMemAvailable || memAvailable == 0 {
			out = append(out, KV{key, 0})
			continue
		}
		out = append(out, KV{key, 100 * value / memAvailable})
	}
	return out, scanner.Err()
}

func parseMemInfoLine(line string) (key string, value float64, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", 0, false
	}
	key = strings.TrimSpace(line[:idx])
	fields := strings.Fields(line[idx+1:])
	if len(fields) == 0 {
		return "", 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return "", 0, false
	}
	return key, v, true
}
