package site

// Range is an axis-aligned box in the site space. Min <= Max is not
// enforced; Intersect can produce inverted ranges and callers decide what
// that means.
type Range struct {
	Min Vector `json:"min"`
	Max Vector `json:"max"`
}

// Intersect narrows to the common region of a and b per dimension.
func Intersect(a, b Range) Range {
	return Range{Min: Max(a.Min, b.Min), Max: Min(a.Max, b.Max)}
}

// Union widens to the bounding box of a and b per dimension.
func Union(a, b Range) Range {
	return Range{Min: Min(a.Min, b.Min), Max: Max(a.Max, b.Max)}
}

func (r Range) Center() Vector {
	return Center(r.Min, r.Max)
}

// Contains reports whether p lies within the bounds of at least one
// dimension. The dimensions are OR-combined, so a point outside the box on
// every axis but one still counts as contained. Community possibility only
// short-circuits to zero when this returns false; switching to an all-axes
// test changes which sites every community treats as infeasible.
func (r Range) Contains(p Vector) bool {
	for i := range r.Min {
		if p[i] >= r.Min[i] && p[i] <= r.Max[i] {
			return true
		}
	}
	return false
}

// Inverted reports whether any dimension has Min > Max, i.e. the range is
// empty.
func (r Range) Inverted() bool {
	for i := range r.Min {
		if r.Min[i] > r.Max[i] {
			return true
		}
	}
	return false
}

func (r Range) Clone() Range {
	return Range{Min: r.Min.Clone(), Max: r.Max.Clone()}
}
