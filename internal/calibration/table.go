// Package calibration converts manual dip readings (depth in centimeters)
// into liters using per-tank strapping tables.
package calibration

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

var (
	// ErrTooFewPoints is returned when a table has fewer than two points.
	ErrTooFewPoints = errors.New("calibration: table needs at least two points")
	// ErrNonMonotonic is returned when depths or volumes do not strictly increase.
	ErrNonMonotonic = errors.New("calibration: points must strictly increase")
	// ErrOutOfRange is returned when a depth falls outside the table.
	ErrOutOfRange = errors.New("calibration: depth outside table range")
	// ErrUnknownTank is returned when no table exists for a tank.
	ErrUnknownTank = errors.New("calibration: unknown tank")
)

// Point is one row of a strapping table.
type Point struct {
	DepthCm float64 `yaml:"depth_cm"`
	Liters  float64 `yaml:"liters"`
}

// Table is the strapping table for one tank. Lookups interpolate linearly
// between adjacent points.
type Table struct {
	points []Point
}

// NewTable builds a table from points, sorting them by depth.
func NewTable(points []Point) (*Table, error) {
	if len(points) < 2 {
		return nil, ErrTooFewPoints
	}
	sorted := append([]Point(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DepthCm < sorted[j].DepthCm })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].DepthCm <= sorted[i-1].DepthCm || sorted[i].Liters <= sorted[i-1].Liters {
			return nil, ErrNonMonotonic
		}
	}
	return &Table{points: sorted}, nil
}

// Liters converts a dip depth to liters.
func (t *Table) Liters(depthCm float64) (float64, error) {
	if t == nil || len(t.points) < 2 {
		return 0, ErrTooFewPoints
	}
	first := t.points[0]
	last := t.points[len(t.points)-1]
	if depthCm < first.DepthCm || depthCm > last.DepthCm {
		return 0, fmt.Errorf("%w: %.1f cm", ErrOutOfRange, depthCm)
	}
	for i := 1; i < len(t.points); i++ {
		upper := t.points[i]
		if depthCm > upper.DepthCm {
			continue
		}
		lower := t.points[i-1]
		fraction := (depthCm - lower.DepthCm) / (upper.DepthCm - lower.DepthCm)
		return lower.Liters + fraction*(upper.Liters-lower.Liters), nil
	}
	return last.Liters, nil
}

// Set holds the strapping tables for every tank at a station.
type Set struct {
	tables map[string]*Table
}

// NewSet builds a set from per-tank point lists.
func NewSet(tanks map[string][]Point) (*Set, error) {
	set := &Set{tables: make(map[string]*Table, len(tanks))}
	for tankID, points := range tanks {
		table, err := NewTable(points)
		if err != nil {
			return nil, fmt.Errorf("tank %s: %w", tankID, err)
		}
		set.tables[tankID] = table
	}
	return set, nil
}

// Liters converts a dip depth for a specific tank.
func (s *Set) Liters(tankID string, depthCm float64) (float64, error) {
	if s == nil {
		return 0, ErrUnknownTank
	}
	table, ok := s.tables[tankID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTank, tankID)
	}
	return table.Liters(depthCm)
}

// LoadSet reads strapping tables from a YAML file keyed by tank id.
func LoadSet(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tanks map[string][]Point
	if err := yaml.Unmarshal(data, &tanks); err != nil {
		return nil, err
	}
	return NewSet(tanks)
}
