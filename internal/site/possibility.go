package site

import (
	"fmt"
	"math"
)

// Possibility is an evaluation result: the value at Site. Value is NaN until
// computed.
type Possibility struct {
	Site  Vector  `json:"site"`
	Value float64 `json:"value"`
}

// NoPossibility is the not-yet-computed result.
func NoPossibility() Possibility {
	return Possibility{Value: math.NaN()}
}

// Computed reports whether Value holds a result.
func (p Possibility) Computed() bool {
	return p.Value >= 0
}

func (p Possibility) String() string {
	return fmt.Sprintf("p = %f @ %v", p.Value, []float64(p.Site))
}
