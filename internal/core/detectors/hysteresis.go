package detectors

import "fmt"

// Direction says which side of the on threshold raises an alert.
type Direction int

const (
	// Above raises when the signal climbs past the on threshold.
	Above Direction = iota
	// Below raises when the signal drops past the on threshold.
	Below
)

// Threshold is a two-level hysteresis gate. The alert turns on when the
// signal crosses the on threshold and turns off only after it crosses
// back past the off threshold, so values oscillating between the two
// levels do not flap the alert.
type Threshold struct {
	dir Direction
	on  float64
	off float64
}

// NewThreshold validates the pair at construction. For Above the on
// threshold must exceed the off threshold, for Below it must be lower.
func NewThreshold(dir Direction, on, off float64) (Threshold, error) {
	switch dir {
	case Above:
		if on <= off {
			return Threshold{}, fmt.Errorf("alert-on threshold %g must be above alert-off threshold %g", on, off)
		}
	case Below:
		if on >= off {
			return Threshold{}, fmt.Errorf("alert-on threshold %g must be below alert-off threshold %g", on, off)
		}
	default:
		return Threshold{}, fmt.Errorf("unknown threshold direction %d", dir)
	}
	return Threshold{dir: dir, on: on, off: off}, nil
}

// Next evaluates one observation. Comparisons are exclusive: a value
// sitting exactly on a threshold never crosses it.
func (t Threshold) Next(active bool, v float64) bool {
	switch t.dir {
	case Above:
		if active {
			return !(v < t.off)
		}
		return v > t.on
	case Below:
		if active {
			return !(v > t.off)
		}
		return v < t.on
	}
	return active
}
