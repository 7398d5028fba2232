// Package uictl defines read-only controls that UI components render from.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Dial is a control that can read some value.
type Dial[N Number] interface {
	Read() N
}

// CappedDial is a Dial with a maximum cap value.
type CappedDial[N Number] interface {
	Dial[N]
	Cap() (num, max N)
}

// Levels is a control that reads a window of sample levels.
type Levels[N Number] interface {
	Read() []N
}

// Fraction returns num/max of d clamped to [0,1], or 0 while max is not
// positive.
func Fraction[N Number](d CappedDial[N]) float64 {
	num, capVal := d.Cap()
	if capVal <= 0 {
		return 0
	}

	return min(max(float64(num)/float64(capVal), 0), 1)
}
