package calibration

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func testPoints() []Point {
	return []Point{
		{DepthCm: 0, Liters: 0},
		{DepthCm: 50, Liters: 4000},
		{DepthCm: 100, Liters: 10000},
		{DepthCm: 150, Liters: 16000},
	}
}

func TestTableLiters_ExactAndInterpolated(t *testing.T) {
	table, err := NewTable(testPoints())
	if err != nil {
		t.Fatalf("new table: %v", err)
	}

	cases := []struct {
		depth float64
		want  float64
	}{
		{0, 0},
		{50, 4000},
		{25, 2000},
		{75, 7000},
		{150, 16000},
	}
	for _, tc := range cases {
		got, err := table.Liters(tc.depth)
		if err != nil {
			t.Fatalf("liters(%v): %v", tc.depth, err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("liters(%v): expected %v, got %v", tc.depth, tc.want, got)
		}
	}
}

func TestTableLiters_OutOfRange(t *testing.T) {
	table, err := NewTable(testPoints())
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	if _, err := table.Liters(151); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := table.Liters(-1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestNewTable_RejectsNonMonotonic(t *testing.T) {
	points := []Point{{DepthCm: 0, Liters: 100}, {DepthCm: 50, Liters: 90}}
	if _, err := NewTable(points); !errors.Is(err, ErrNonMonotonic) {
		t.Fatalf("expected ErrNonMonotonic, got %v", err)
	}
}

func TestSetLiters_UnknownTank(t *testing.T) {
	set, err := NewSet(map[string][]Point{"tank-1": testPoints()})
	if err != nil {
		t.Fatalf("new set: %v", err)
	}
	if _, err := set.Liters("tank-9", 10); !errors.Is(err, ErrUnknownTank) {
		t.Fatalf("expected ErrUnknownTank, got %v", err)
	}
}

func TestLoadSet(t *testing.T) {
	content := `tank-1:
  - {depth_cm: 0, liters: 0}
  - {depth_cm: 100, liters: 10000}
tank-2:
  - {depth_cm: 0, liters: 0}
  - {depth_cm: 80, liters: 6000}
`
	path := filepath.Join(t.TempDir(), "tables.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	set, err := LoadSet(path)
	if err != nil {
		t.Fatalf("load set: %v", err)
	}
	got, err := set.Liters("tank-1", 50)
	if err != nil {
		t.Fatalf("liters: %v", err)
	}
	if got != 5000 {
		t.Fatalf("expected 5000 liters at 50cm, got %v", got)
	}
}
