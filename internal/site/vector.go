package site

import "gonum.org/v1/gonum/floats"

// Vector is a point in the site space, one component per configured
// dimension. Operations never modify their operands.
type Vector []float64

func (v Vector) Clone() Vector {
	return append(Vector(nil), v...)
}

func (v Vector) Add(w Vector) Vector {
	return floats.AddTo(make(Vector, len(v)), v, w)
}

func (v Vector) Sub(w Vector) Vector {
	return floats.SubTo(make(Vector, len(v)), v, w)
}

func (v Vector) Scale(c float64) Vector {
	return floats.ScaleTo(make(Vector, len(v)), c, v)
}

// Div divides every component by c. It is not Scale(1/c): the rounding
// differs.
func (v Vector) Div(c float64) Vector {
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = x / c
	}
	return out
}

// IsNaN reports whether any component is NaN.
func (v Vector) IsNaN() bool {
	return floats.HasNaN(v)
}

// Min is the element-wise minimum. A NaN in b never replaces a.
func Min(a, b Vector) Vector {
	out := make(Vector, len(a))
	for i := range a {
		out[i] = lesser(a[i], b[i])
	}
	return out
}

// Max is the element-wise maximum. A NaN in b never replaces a.
func Max(a, b Vector) Vector {
	out := make(Vector, len(a))
	for i := range a {
		out[i] = greater(a[i], b[i])
	}
	return out
}

// lesser and greater keep the left operand unless the right one compares
// strictly beyond it, unlike math.Min/math.Max which propagate NaN.
func lesser(a, b float64) float64 {
	if b < a {
		return b
	}
	return a
}

func greater(a, b float64) float64 {
	if a < b {
		return b
	}
	return a
}

// Center returns (a+b)/2.
func Center(a, b Vector) Vector {
	return a.Add(b).Scale(0.5)
}
