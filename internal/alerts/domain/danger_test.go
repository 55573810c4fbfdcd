package alerts

import (
	"testing"
	"time"
)

func TestDangerScore(t *testing.T) {
	cases := []struct {
		name       string
		static     float64
		confidence float64
		occupants  int
		want       float64
	}{
		{"baseline only", 20, 0, 0, 20},
		{"confidence dominates", 10, 90, 0, 64},
		{"occupancy contributes", 10, 50, 10, 44},
		{"occupancy capped at 30", 10, 50, 500, 70},
		{"clamped high", 80, 100, 100, 100},
		{"all zero", 0, 0, 0, 0},
	}
	for _, tc := range cases {
		got := DangerScore(tc.static, tc.confidence, tc.occupants)
		if got != tc.want {
			t.Fatalf("%s: expected %.1f, got %.1f", tc.name, tc.want, got)
		}
	}
}

func TestTimeoutTiers(t *testing.T) {
	policy := DefaultTimeoutPolicy()
	cases := []struct {
		level float64
		want  time.Duration
	}{
		{100, 3 * time.Minute},
		{75, 3 * time.Minute},
		{61, 3 * time.Minute},
		{60, 5 * time.Minute},
		{31, 5 * time.Minute},
		{30, 10 * time.Minute},
		{0, 10 * time.Minute},
	}
	for _, tc := range cases {
		if got := policy.For(tc.level); got != tc.want {
			t.Fatalf("level %.0f: expected %s, got %s", tc.level, tc.want, got)
		}
	}
}
