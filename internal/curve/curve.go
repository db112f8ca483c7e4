// Package curve compiles sparse user-configured fan curve anchors into
// a dense lookup table covering every representable temperature.
package curve

import (
	"math"
	"sort"

	"codeberg.org/isvind/gpufanctl/internal/errors"
	"codeberg.org/isvind/gpufanctl/internal/state"
)

const (
	// MaxDuty is the highest commandable fan duty in percent.
	MaxDuty = 100
	// MinAnchors is the smallest anchor set that defines a usable curve.
	MinAnchors = 3

	tableSize = 256
)

// Anchor is a user-specified (temperature, duty) pair.
type Anchor struct {
	Temperature uint8
	Duty        uint8
}

// Table maps every integer temperature 0-255 to a duty percent.
// Weakly monotonic by construction; immutable after Compile.
type Table [tableSize]uint8

// Compile turns anchors into a total lookup table. Temperatures below
// the lowest anchor take its duty, likewise above the highest anchor.
// Between anchors the duty is linearly interpolated, rounding up so
// the curve never under-delivers cooling.
func Compile(anchors []Anchor) (*Table, error) {
	errFactory := errors.New()

	if len(anchors) < MinAnchors {
		return nil, errFactory.WithMessage(errors.ErrInvalidCurve,
			"Fan curve must have at least 3 points")
	}

	points := make([]Anchor, len(anchors))
	copy(points, anchors)
	sort.Slice(points, func(i, j int) bool {
		return points[i].Temperature < points[j].Temperature
	})

	for i := 0; i < len(points)-1; i++ {
		if points[i].Temperature == points[i+1].Temperature {
			return nil, errFactory.WithMessage(errors.ErrInvalidCurve,
				"Fan curve contains two points at the same temperature")
		}
		if points[i].Duty > points[i+1].Duty {
			return nil, errFactory.WithMessage(errors.ErrInvalidCurve,
				"Fan duty must not decrease with temperature")
		}
	}
	for _, p := range points {
		if p.Duty > MaxDuty {
			return nil, errFactory.WithMessage(errors.ErrInvalidCurve,
				"Fan duty cannot be higher than 100%")
		}
	}

	var table Table

	first := points[0]
	for temp := 0; temp < int(first.Temperature); temp++ {
		table[temp] = first.Duty
	}

	for i := 0; i < len(points)-1; i++ {
		lo, hi := points[i], points[i+1]
		table[lo.Temperature] = lo.Duty

		m := (float64(hi.Duty) - float64(lo.Duty)) /
			(float64(hi.Temperature) - float64(lo.Temperature))
		b := float64(lo.Duty) - m*float64(lo.Temperature)

		for temp := int(lo.Temperature) + 1; temp < int(hi.Temperature); temp++ {
			table[temp] = uint8(math.Ceil(m*float64(temp) + b))
		}
	}

	last := points[len(points)-1]
	for temp := int(last.Temperature); temp < tableSize; temp++ {
		table[temp] = last.Duty
	}

	if err := table.validate(); err != nil {
		return nil, err
	}

	return &table, nil
}

// validate re-walks the finished table. Violations here cannot be
// produced by valid input; they signal a compiler bug.
func (t *Table) validate() error {
	errFactory := errors.New()

	for temp := 0; temp < tableSize; temp++ {
		if t[temp] > MaxDuty {
			return errFactory.WithData(errors.ErrCurveInvariant, temp)
		}
		if temp > 0 && t[temp-1] > t[temp] {
			return errFactory.WithData(errors.ErrCurveInvariant, temp)
		}
	}

	return nil
}

// Lookup returns the duty for a temperature. Total over the domain,
// so it cannot fail.
func (t *Table) Lookup(temp uint8) uint8 {
	return t[temp]
}

// Points returns the full table as ordered (temperature, duty) pairs
// for the wire snapshot.
func (t *Table) Points() []state.CurvePoint {
	points := make([]state.CurvePoint, tableSize)
	for temp := 0; temp < tableSize; temp++ {
		points[temp] = state.CurvePoint{Temperature: uint8(temp), Duty: t[temp]}
	}

	return points
}
