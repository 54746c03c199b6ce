package internaldefs

import (
	"slices"
	"strings"
	"testing"

	"github.com/MrEthical07/authcore"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[authcore.MetricID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate name %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "authcore_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("bad counter name %s", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	for id := authcore.MetricID(0); id < authcore.MetricValidateLatency; id++ {
		if !seen[id] {
			t.Fatalf("metric id %d has no export definition", id)
		}
	}
}

func TestCumulative(t *testing.T) {
	tests := []struct {
		name string
		raw  []uint64
		want []uint64
	}{
		{"empty", nil, []uint64{0, 0, 0, 0, 0, 0, 0, 0}},
		{"short", []uint64{1, 2, 0, 3}, []uint64{1, 3, 3, 6, 6, 6, 6, 6}},
		{"overflow bucket", []uint64{0, 0, 0, 0, 0, 0, 0, 4}, []uint64{0, 0, 0, 0, 0, 0, 0, 4}},
		{"extra ignored", []uint64{1, 1, 1, 1, 1, 1, 1, 1, 9}, []uint64{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cumulative(tt.raw)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("Cumulative(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
	if HistogramBounds[len(HistogramBounds)-1] != "+Inf" {
		t.Fatal("last bucket must be +Inf")
	}
}
