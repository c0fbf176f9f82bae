package site

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Dimension describes one environmental factor of the site space.
type Dimension struct {
	Name     string  `json:"name" yaml:"name"`
	LongName string  `json:"long_name" yaml:"long_name"`
	ID       int     `json:"id" yaml:"-"`
	Min      float64 `json:"min" yaml:"min"`
	Max      float64 `json:"max" yaml:"max"`
}

// Tolerance is the comparison and search resolution of the dimension.
func (d Dimension) Tolerance() float64 {
	return 1e-12 * (d.Max - d.Min)
}

// Dimensions is the immutable, ordered set of factors every Vector and Range
// is shaped by. Build it once and share the pointer.
type Dimensions struct {
	defs []Dimension
}

// NewDimensions copies defs and assigns ids in order.
func NewDimensions(defs []Dimension) (*Dimensions, error) {
	if len(defs) == 0 {
		return nil, errors.New("at least one dimension is required")
	}
	seen := make(map[string]struct{}, len(defs))
	out := make([]Dimension, len(defs))
	for i, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, fmt.Errorf("dimension %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate dimension %q", name)
		}
		seen[name] = struct{}{}
		def.Name = name
		def.ID = i
		out[i] = def
	}
	return &Dimensions{defs: out}, nil
}

// Len is the vector length of the site space.
func (d *Dimensions) Len() int {
	return len(d.defs)
}

// At returns the i-th dimension definition.
func (d *Dimensions) At(i int) Dimension {
	return d.defs[i]
}

// All returns a copy of the definitions.
func (d *Dimensions) All() []Dimension {
	return append([]Dimension(nil), d.defs...)
}

// Find returns the index of the named dimension.
func (d *Dimensions) Find(name string) (int, error) {
	for i, def := range d.defs {
		if def.Name == name {
			return i, nil
		}
	}
	return -1, &UnknownDimensionError{Name: name, Known: d.String()}
}

// Value returns the component of v along the named dimension.
func (d *Dimensions) Value(v Vector, name string) (float64, error) {
	i, err := d.Find(name)
	if err != nil {
		return math.NaN(), err
	}
	return v[i], nil
}

// String lists the dimension names as "[a,b,c]".
func (d *Dimensions) String() string {
	names := make([]string, len(d.defs))
	for i, def := range d.defs {
		names[i] = def.Name
	}
	return "[" + strings.Join(names, ",") + "]"
}

// Empty returns a vector with every component set to NaN.
func (d *Dimensions) Empty() Vector {
	v := make(Vector, len(d.defs))
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

// NewVector copies values into a Vector; the length must match exactly.
func (d *Dimensions) NewVector(values ...float64) (Vector, error) {
	if len(values) != len(d.defs) {
		return nil, &DimensionMismatchError{Got: len(values), Want: len(d.defs)}
	}
	return append(Vector(nil), values...), nil
}

// ParseVector reads one number per field, ignoring surrounding whitespace.
func (d *Dimensions) ParseVector(fields []string) (Vector, error) {
	if len(fields) != len(d.defs) {
		return nil, &DimensionMismatchError{Got: len(fields), Want: len(d.defs)}
	}
	v := make(Vector, len(fields))
	for i, field := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.defs[i].Name, err)
		}
		v[i] = x
	}
	return v, nil
}

// Accuracy holds each dimension's tolerance; it is the base step of the
// optimum search.
func (d *Dimensions) Accuracy() Vector {
	v := make(Vector, len(d.defs))
	for i, def := range d.defs {
		v[i] = def.Tolerance()
	}
	return v
}

// Equal compares a and b component-wise within each dimension's tolerance.
func (d *Dimensions) Equal(a, b Vector) bool {
	for i, def := range d.defs {
		if math.Abs(a[i]-b[i]) > def.Tolerance() {
			return false
		}
	}
	return true
}

// Format renders v as "name: value" pairs separated by tabs.
func (d *Dimensions) Format(v Vector) string {
	var b strings.Builder
	for i, def := range d.defs {
		if i > 0 {
			b.WriteByte('\t')
		}
		b.WriteString(def.Name)
		b.WriteString(": ")
		b.WriteString(strconv.FormatFloat(v[i], 'g', 4, 64))
	}
	return b.String()
}

// Holder keeps the process-level dimension set. The first Load wins; later
// loads are refused with a logged ConfigurationError and leave it untouched.
type Holder struct {
	mu     sync.Mutex
	dims   *Dimensions
	logger *zap.Logger
}

func NewHolder(logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{logger: logger}
}

// Load installs defs unless a set is already present. It returns the active
// set and whether this call installed it.
func (h *Holder) Load(defs []Dimension) (*Dimensions, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dims != nil {
		h.logger.Warn("dimension load aborted",
			zap.Error(&ConfigurationError{Loaded: h.dims.String()}),
		)
		return h.dims, false, nil
	}
	dims, err := NewDimensions(defs)
	if err != nil {
		return nil, false, err
	}
	h.dims = dims
	return dims, true, nil
}

// Current returns the loaded set, if any.
func (h *Holder) Current() (*Dimensions, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dims, h.dims != nil
}
