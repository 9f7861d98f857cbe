package internaldefs

import (
	"strings"
	"testing"

	"github.com/secureauthx/secureauthx"
)

func TestCounterDefsUnique(t *testing.T) {
	ids := make(map[secureauthx.MetricID]bool)
	names := make(map[string]bool)
	for _, def := range CounterDefs {
		if ids[def.ID] || names[def.Name] {
			t.Fatalf("duplicate counter definition %q", def.Name)
		}
		ids[def.ID] = true
		names[def.Name] = true
		if !strings.HasPrefix(def.Name, "secureauthx_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %q", def.Name)
		}
		if def.ID == secureauthx.MetricValidateLatency {
			t.Fatal("latency histogram must not be exported as a counter")
		}
	}
}

func TestBucketLayout(t *testing.T) {
	bounds := BucketUpperBounds()
	if len(bounds) != BucketCount-1 || bounds[0] != 0.005 || bounds[len(bounds)-1] != 0.5 {
		t.Fatalf("unexpected bounds %v", bounds)
	}
	suffixes := BucketSuffixes()
	if len(suffixes) != BucketCount || suffixes[0] != "0_005" || suffixes[BucketCount-1] != "inf" {
		t.Fatalf("unexpected suffixes %v", suffixes)
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [BucketCount]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}
