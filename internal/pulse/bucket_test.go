package pulse

import "testing"

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		d    uint32
		want Bucket
	}{
		{0, Unclassified},
		{449, Unclassified},
		{450, Short},
		{560, Short},
		{650, Short},
		{651, Unclassified},
		{1499, Unclassified},
		{1500, Long},
		{1750, Long},
		{1751, Unclassified},
		{2000, Unclassified},
		{4999, Unclassified},
		{5000, Preamble},
		{8000, Preamble},
		{8001, Unclassified},
		{10000, Unclassified},
		{10001, Noise},
		{PulseMask, Noise},
	}

	for _, tt := range tests {
		if got := Classify(tt.d); got != tt.want {
			t.Errorf("Classify(%d) = %v, want %v", tt.d, got, tt.want)
		}
		// same input, same answer
		if again := Classify(tt.d); again != Classify(tt.d) {
			t.Errorf("Classify(%d) not stable: %v then %v", tt.d, Classify(tt.d), again)
		}
	}
}

func TestClassifyExclusive(t *testing.T) {
	th := DefaultThresholds()
	for d := uint32(0); d <= 12000; d++ {
		hits := 0
		if th.Short.Contains(d) {
			hits++
		}
		if th.Long.Contains(d) {
			hits++
		}
		if th.Preamble.Contains(d) {
			hits++
		}
		if d > th.NoiseAbove {
			hits++
		}
		if hits > 1 {
			t.Fatalf("duration %d falls in %d buckets", d, hits)
		}
		if hits == 0 && th.Classify(d) != Unclassified {
			t.Fatalf("duration %d in no range but classified %v", d, th.Classify(d))
		}
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("default thresholds invalid: %v", err)
	}

	overlap := DefaultThresholds()
	overlap.Long = Range{Min: 600, Max: 1700}
	if err := overlap.Validate(); err == nil {
		t.Error("expected overlap error")
	}

	inverted := DefaultThresholds()
	inverted.Short = Range{Min: 700, Max: 600}
	if err := inverted.Validate(); err == nil {
		t.Error("expected inverted range error")
	}

	aboveNoise := DefaultThresholds()
	aboveNoise.NoiseAbove = 7000
	if err := aboveNoise.Validate(); err == nil {
		t.Error("expected noise threshold error")
	}
}

func TestCustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.Short = Range{Min: 300, Max: 700}
	if got := th.Classify(320); got != Short {
		t.Errorf("Classify(320) = %v, want short", got)
	}
	if got := Classify(320); got != Unclassified {
		t.Errorf("default Classify(320) = %v, want unclassified", got)
	}
}
