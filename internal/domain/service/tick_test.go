package service

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSnapToTick(t *testing.T) {
	cases := []struct {
		name  string
		price string
		tick  string
		want  string
	}{
		{"exact multiple", "100.50", "0.01", "100.5"},
		{"truncates down", "100.509", "0.01", "100.5"},
		{"never rounds up", "0.019", "0.01", "0.01"},
		{"coarse tick", "27123.7", "0.5", "27123.5"},
		{"sub-cent tick", "0.123456", "0.0001", "0.1234"},
		{"price below tick", "0.004", "0.01", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			price := decimal.RequireFromString(tc.price)
			tick := decimal.RequireFromString(tc.tick)

			got, ok := SnapToTick(price, tick)
			if !ok {
				t.Fatalf("SnapToTick(%s, %s) reported fallback", tc.price, tc.tick)
			}
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("SnapToTick(%s, %s) = %s, want %s", tc.price, tc.tick, got, tc.want)
			}

			// result must be an exact multiple and never exceed the input
			if _, rem := got.QuoRem(tick, 0); rem.Sign() != 0 {
				t.Errorf("snapped %s is not a multiple of %s", got, tc.tick)
			}
			if got.GreaterThan(price) {
				t.Errorf("snapped %s exceeds input %s", got, tc.price)
			}
		})
	}
}

func TestSnapToTickNonPositiveTick(t *testing.T) {
	price := decimal.RequireFromString("123.45")

	for _, tick := range []string{"0", "-0.01"} {
		got, ok := SnapToTick(price, decimal.RequireFromString(tick))
		if ok {
			t.Errorf("tick %s: expected fallback flag", tick)
		}
		if !got.Equal(price) {
			t.Errorf("tick %s: price changed to %s, want unchanged", tick, got)
		}
	}
}

func TestSnapToTickNoDrift(t *testing.T) {
	// repeated snapping of an already-aligned price must be a fixed point
	tick := decimal.RequireFromString("0.001")
	p := decimal.RequireFromString("4321.987")
	for i := 0; i < 100; i++ {
		snapped, ok := SnapToTick(p, tick)
		if !ok || !snapped.Equal(p) {
			t.Fatalf("iteration %d: %s drifted to %s", i, p, snapped)
		}
		p = snapped
	}
}
