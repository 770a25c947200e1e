package reconcile

import (
	"errors"
	"math"
	"testing"
)

func TestValidateThreeWay_Agreement(t *testing.T) {
	reading, err := ValidateThreeWay(5000, 5000, 5000, ThreeWayTolerancePercent)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if reading.MaxDiscrepancy != 0 {
		t.Fatalf("expected zero max discrepancy, got %v", reading.MaxDiscrepancy)
	}
	if reading.Verdict != VerdictPass {
		t.Fatalf("expected PASS, got %s", reading.Verdict)
	}
}

func TestValidateThreeWay_SpreadBeyondTolerance(t *testing.T) {
	// 3.5 L spread over ~5000 L is roughly 0.07%, past the 0.03% tolerance.
	reading, err := ValidateThreeWay(5000.00, 5001.50, 4998.00, ThreeWayTolerancePercent)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	wantMechElec := math.Abs(5000.0-5001.5) / ((5000.0 + 5001.5) / 2) * 100
	wantMechDip := math.Abs(5000.0-4998.0) / ((5000.0 + 4998.0) / 2) * 100
	wantElecDip := math.Abs(5001.5-4998.0) / ((5001.5 + 4998.0) / 2) * 100
	if math.Abs(reading.DiscMechElec-wantMechElec) > 1e-12 {
		t.Fatalf("mech/elec: expected %v, got %v", wantMechElec, reading.DiscMechElec)
	}
	if math.Abs(reading.DiscMechDip-wantMechDip) > 1e-12 {
		t.Fatalf("mech/dip: expected %v, got %v", wantMechDip, reading.DiscMechDip)
	}
	if math.Abs(reading.DiscElecDip-wantElecDip) > 1e-12 {
		t.Fatalf("elec/dip: expected %v, got %v", wantElecDip, reading.DiscElecDip)
	}
	if reading.MaxDiscrepancy != wantElecDip {
		t.Fatalf("expected max discrepancy %v, got %v", wantElecDip, reading.MaxDiscrepancy)
	}
	if reading.Verdict != VerdictFail {
		t.Fatalf("expected FAIL at %v%%, got %s", reading.MaxDiscrepancy, reading.Verdict)
	}
}

func TestValidateThreeWay_AtToleranceBoundaryPasses(t *testing.T) {
	reading, err := ValidateThreeWay(1000, 1000, 1000, 0.03)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if reading.MaxDiscrepancy > reading.TolerancePercent {
		t.Fatalf("expected discrepancy within tolerance")
	}
	if reading.Verdict != VerdictPass {
		t.Fatalf("expected PASS at boundary, got %s", reading.Verdict)
	}
}

func TestValidateThreeWay_AllZeroReadings(t *testing.T) {
	reading, err := ValidateThreeWay(0, 0, 0, ThreeWayTolerancePercent)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if reading.MaxDiscrepancy != 0 || reading.Verdict != VerdictPass {
		t.Fatalf("expected zero discrepancy PASS for all-zero readings, got %v %s", reading.MaxDiscrepancy, reading.Verdict)
	}
}

func TestValidateThreeWay_RejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name                       string
		mechanical, electronic, dip float64
	}{
		{"negative mechanical", -1, 100, 100},
		{"nan electronic", 100, math.NaN(), 100},
		{"infinite dip", 100, 100, math.Inf(1)},
	}
	for _, tc := range cases {
		if _, err := ValidateThreeWay(tc.mechanical, tc.electronic, tc.dip, ThreeWayTolerancePercent); !errors.Is(err, ErrInvalidReading) {
			t.Fatalf("%s: expected ErrInvalidReading, got %v", tc.name, err)
		}
	}
}

func TestValidateThreeWay_DefaultTolerance(t *testing.T) {
	reading, err := ValidateThreeWay(100, 100, 100, 0)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if reading.TolerancePercent != ThreeWayTolerancePercent {
		t.Fatalf("expected default tolerance %v, got %v", ThreeWayTolerancePercent, reading.TolerancePercent)
	}
}
