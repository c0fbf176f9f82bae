package niche

import (
	"fmt"
	"math"

	"bern/internal/site"
)

// Trapezoid is the fuzzy membership of x in the niche given by the pessimum
// bounds pMin/pMax and the optimum plateau oMin/oMax.
func Trapezoid(x, pMin, oMin, oMax, pMax float64) float64 {
	switch {
	case x < pMin || x > pMax:
		return 0
	case x < oMin:
		return (x - pMin) / (oMin - pMin)
	case x > oMax:
		return (pMax - x) / (pMax - oMax)
	default:
		return 1
	}
}

// Taxon is a species (or other taxon) with a trapezoidal niche per
// dimension. Taxa are shared by reference between communities and are
// read-only once loaded.
type Taxon struct {
	ID   int
	Name string
	// Pess bounds the conditions the taxon survives in at all.
	Pess site.Range
	// Opt bounds the plateau where the possibility is 1. It is expected to
	// lie within Pess.
	Opt site.Range

	dims *site.Dimensions
}

// NewTaxon validates the four niche vectors against dims.
func NewTaxon(dims *site.Dimensions, id int, name string, pessMin, optMin, optMax, pessMax []float64) (*Taxon, error) {
	vectors := make([]site.Vector, 4)
	for i, values := range [][]float64{pessMin, optMin, optMax, pessMax} {
		v, err := dims.NewVector(values...)
		if err != nil {
			return nil, fmt.Errorf("taxon %d: %w", id, err)
		}
		vectors[i] = v
	}
	return &Taxon{
		ID:   id,
		Name: name,
		Pess: site.Range{Min: vectors[0], Max: vectors[3]},
		Opt:  site.Range{Min: vectors[1], Max: vectors[2]},
		dims: dims,
	}, nil
}

// Possibility follows Liebig's law of the minimum: the least favourable
// dimension decides.
func (t *Taxon) Possibility(s site.Vector) float64 {
	minValue := 1.0
	for i := 0; i < t.dims.Len(); i++ {
		p := Trapezoid(s[i], t.Pess.Min[i], t.Opt.Min[i], t.Opt.Max[i], t.Pess.Max[i])
		minValue = math.Min(p, minValue)
	}
	return minValue
}

func (t *Taxon) String() string {
	return fmt.Sprintf("%s (%d)", t.Name, t.ID)
}
