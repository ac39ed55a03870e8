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

package hoststats

import (
	"strings"
	"testing"
)

func TestParseStatAllUserIsHundredPercent(t *testing.T) {
	samples, err := ParseStat(strings.NewReader("cpu 100 0 0 0 0 0 0 0 0 0\nintr 12345\n"))
	if err != nil {
		t.Fatalf("ParseStat() error = %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	pcts := samples[0].Percentages()
	for _, kv := range pcts {
		if kv.Name == "user_pct" {
			if kv.Value != 100.0 {
				t.Errorf("user_pct = %v, want 100.0", kv.Value)
			}
			continue
		}
		if kv.Value != 0.0 {
			t.Errorf("%s = %v, want 0.0", kv.Name, kv.Value)
		}
	}
}

func TestParseStatPerCPULines(t *testing.T) {
	samples, err := ParseStat(strings.NewReader("cpu 100 0 0 0 0 0 0 0 0 0\ncpu0 50 0 0 50 0 0 0 0 0 0\ncpu1 10 0 0 90 0 0 0 0 0 0\n"))
	if err != nil {
		t.Fatalf("ParseStat() error = %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	if samples[1].Name != "cpu0" || samples[2].Name != "cpu1" {
		t.Errorf("unexpected sample names: %s, %s", samples[1].Name, samples[2].Name)
	}
}

func TestParseStatZeroTotalAvoidsDivideByZero(t *testing.T) {
	samples, err := ParseStat(strings.NewReader("cpu 0 0 0 0 0 0 0 0 0 0\n"))
	if err != nil {
		t.Fatalf("ParseStat() error = %v", err)
	}
	for _, kv := range samples[0].Percentages() {
		if kv.Value != 0.0 {
			t.Errorf("%s = %v, want 0.0 for an all-zero total", kv.Name, kv.Value)
		}
	}
}

func TestParseMemInfoPercentages(t *testing.T) {
	input := "MemTotal:       10000 kB\nMemAvailable:    5000 kB\nBuffers:         1000 kB\n"
	kvs, err := ParseMemInfo(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseMemInfo() error = %v", err)
	}
	want := map[string]float64{"MemTotal": 0, "MemAvailable": 5000, "Buffers": 20}
	if len(kvs) != 3 {
		t.Fatalf("got %d entries, want 3", len(kvs))
	}
	for _, kv := range kvs {
		if w, ok := want[kv.Name]; !ok || w != kv.Value {
			t.Errorf("%s = %v, want %v", kv.Name, kv.Value, want[kv.Name])
		}
	}
}

func TestParseMemInfoMissingMemAvailable(t *testing.T) {
	input := "MemTotal:       10000 kB\nBuffers:         1000 kB\n"
	kvs, err := ParseMemInfo(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseMemInfo() error = %v", err)
	}
	for _, kv := range kvs {
		if kv.Value != 0 {
			t.Errorf("%s = %v, want 0 when MemAvailable is absent", kv.Name, kv.Value)
		}
	}
}
