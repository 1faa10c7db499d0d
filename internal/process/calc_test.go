package process

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestWetBulbStull(t *testing.T) {
	// Stull (2011) gives Tw ~= 13.7C for T=20C, RH=50%.
	tw, err := WetBulbStull(20, 50)
	if err != nil {
		t.Fatalf("WetBulbStull: %v", err)
	}
	if !almostEqual(tw, 13.7, 0.05) {
		t.Errorf("wet bulb at 20C/50%%: got %.4f, want ~13.7", tw)
	}

	// Wet bulb never exceeds dry bulb.
	for _, rh := range []float64{10, 30, 50, 70, 90, 100} {
		tw, err := WetBulbStull(25, rh)
		if err != nil {
			t.Fatalf("WetBulbStull(25, %g): %v", rh, err)
		}
		if tw > 25 {
			t.Errorf("wet bulb %g above dry bulb at RH=%g", tw, rh)
		}
	}
}

func TestWetBulbStullRange(t *testing.T) {
	cases := []struct {
		name   string
		temp   float64
		rh     float64
		wantOK bool
	}{
		{"humidity below zero", 20, -1, false},
		{"humidity above hundred", 20, 101, false},
		{"temp too cold", -51, 50, false},
		{"temp too hot", 61, 50, false},
		{"boundary low temp", -50, 50, true},
		{"boundary high humidity", 20, 100, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := WetBulbStull(tc.temp, tc.rh)
			if (err == nil) != tc.wantOK {
				t.Errorf("WetBulbStull(%g, %g): err=%v, wantOK=%v", tc.temp, tc.rh, err, tc.wantOK)
			}
		})
	}
}

func TestCoolingEfficiency(t *testing.T) {
	eff, err := CoolingEfficiency(28, 26.69, 22.8)
	if err != nil {
		t.Fatalf("CoolingEfficiency: %v", err)
	}
	if !almostEqual(eff, 25.1923, 0.001) {
		t.Errorf("efficiency: got %.4f, want ~25.1923", eff)
	}
}

func TestCoolingEfficiencyEdges(t *testing.T) {
	// Inverted temperatures beyond tolerance are an error.
	if _, err := CoolingEfficiency(25, 26, 20); err == nil {
		t.Error("expected error for outlet warmer than inlet")
	}

	// Delta within tolerance reads as no cooling.
	eff, err := CoolingEfficiency(26.05, 26, 20)
	if err != nil {
		t.Fatalf("within tolerance: %v", err)
	}
	if eff != 0 {
		t.Errorf("within tolerance: got %g, want 0", eff)
	}

	// Inlet at or below wet bulb means no cooling is possible.
	eff, err = CoolingEfficiency(22, 20, 22.5)
	if err != nil {
		t.Fatalf("inlet below wet bulb: %v", err)
	}
	if eff != 0 {
		t.Errorf("inlet below wet bulb: got %g, want 0", eff)
	}

	// Result is clamped to 100.
	eff, err = CoolingEfficiency(30, 24, 29)
	if err != nil {
		t.Fatalf("clamp case: %v", err)
	}
	if eff != 100 {
		t.Errorf("clamp: got %g, want 100", eff)
	}
}

func TestCoolingCapacity(t *testing.T) {
	// 60 L/min is 1 kg/s; 1 * 4.186 * 5K = 20.93 kW.
	kw, err := CoolingCapacity(60, 30, 25)
	if err != nil {
		t.Fatalf("CoolingCapacity: %v", err)
	}
	if !almostEqual(kw, 20.93, 0.0001) {
		t.Errorf("capacity: got %.4f, want 20.93", kw)
	}
}

func TestCoolingCapacityEdges(t *testing.T) {
	if _, err := CoolingCapacity(0, 30, 25); err == nil {
		t.Error("expected error for zero flow")
	}
	if _, err := CoolingCapacity(-5, 30, 25); err == nil {
		t.Error("expected error for negative flow")
	}
	if _, err := CoolingCapacity(60, 25, 26); err == nil {
		t.Error("expected error for outlet warmer than inlet")
	}

	kw, err := CoolingCapacity(60, 26.05, 26)
	if err != nil {
		t.Fatalf("within tolerance: %v", err)
	}
	if kw != 0 {
		t.Errorf("within tolerance: got %g, want 0", kw)
	}
}

func TestApproachAndRange(t *testing.T) {
	if got := ApproachTemp(26.69, 22.8); !almostEqual(got, 3.89, 1e-9) {
		t.Errorf("approach: got %g, want 3.89", got)
	}
	if got := CoolingRange(28, 26.69); !almostEqual(got, 1.31, 1e-9) {
		t.Errorf("range: got %g, want 1.31", got)
	}
}

func TestAssessQuality(t *testing.T) {
	cases := []struct {
		name                      string
		tIn, tOut, flow, humidity float64
		want                      Quality
	}{
		{"strong delta good flow mid humidity", 30, 28, 5, 50, QualityExcellent},
		{"moderate delta low flow", 27, 26.3, 0.5, 50, QualityGood},
		{"small delta tiny flow edge humidity", 26.3, 26.1, 0.2, 15, QualityFair},
		{"flat temps no flow dry air", 26, 26, 0.05, 5, QualityPoor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AssessQuality(tc.tIn, tc.tOut, tc.flow, tc.humidity)
			if got != tc.want {
				t.Errorf("AssessQuality(%g, %g, %g, %g): got %q, want %q",
					tc.tIn, tc.tOut, tc.flow, tc.humidity, got, tc.want)
			}
		})
	}
}
