package niche

import (
	"math"
	"sync"

	"bern/internal/site"
)

// Gamma weights the conjunctive against the disjunctive reading in the
// algebraic gamma operator. Expert calibrated.
const Gamma = 0.2

// Community is a named group of taxa. It holds references, never copies;
// the taxa are owned elsewhere and outlive the community.
//
// Taxa must not change once Possibility or Optimum has been called.
type Community struct {
	ID    int
	Name  string
	Taxa  []*Taxon
	Extra map[string]string

	dims *site.Dimensions

	mu       sync.Mutex
	optimum  site.Possibility
	searches int
}

func NewCommunity(dims *site.Dimensions, id int, name string) *Community {
	return &Community{
		ID:      id,
		Name:    name,
		Extra:   make(map[string]string),
		dims:    dims,
		optimum: site.NoPossibility(),
	}
}

// Add appends a taxon and returns the new member count.
func (c *Community) Add(t *Taxon) int {
	c.Taxa = append(c.Taxa, t)
	return len(c.Taxa)
}

// ReplaceTaxon swaps every member with t's id for t and drops the cached
// optimum when one was swapped. Like Add it belongs to the load phase.
func (c *Community) ReplaceTaxon(t *Taxon) bool {
	swapped := false
	for i, member := range c.Taxa {
		if member.ID == t.ID {
			c.Taxa[i] = t
			swapped = true
		}
	}
	if swapped {
		c.mu.Lock()
		c.optimum = site.NoPossibility()
		c.mu.Unlock()
	}
	return swapped
}

func (c *Community) Len() int {
	return len(c.Taxa)
}

func (c *Community) noSpecies() error {
	return &NoSpeciesError{CommunityID: c.ID, Name: c.Name}
}

// Envelope is the union of all member pessimum ranges.
func (c *Community) Envelope() (site.Range, error) {
	if len(c.Taxa) == 0 {
		return site.Range{}, c.noSpecies()
	}
	envelope := c.Taxa[0].Pess
	for _, t := range c.Taxa {
		envelope = site.Union(envelope, t.Pess)
	}
	return envelope, nil
}

// Center narrows the envelope by every member's optimum range and returns
// the middle of what remains. When the optimum ranges do not overlap the
// range is inverted, but its middle is still a usable first guess.
func (c *Community) Center() (site.Vector, error) {
	inner, err := c.Envelope()
	if err != nil {
		return nil, err
	}
	for _, t := range c.Taxa {
		inner = site.Intersect(inner, t.Opt)
	}
	return inner.Center(), nil
}

// Possibility combines the member possibilities at s with the algebraic
// gamma operator. It is 0 wherever the envelope does not contain s.
func (c *Community) Possibility(s site.Vector) (float64, error) {
	envelope, err := c.Envelope()
	if err != nil {
		return math.NaN(), err
	}
	if !envelope.Contains(s) {
		return 0, nil
	}

	a, b := 1.0, 1.0
	for _, t := range c.Taxa {
		p := t.Possibility(s)
		a *= p
		b *= 1 - p
	}
	return math.Pow(a, Gamma) * math.Pow(1-b, 1-Gamma), nil
}

// Optimum returns the community's optimal site conditions, searching on
// first use and caching the result afterwards. Errors are not cached.
func (c *Community) Optimum() (site.Possibility, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.optimum.Computed() {
		return c.optimum, nil
	}
	start, err := c.Center()
	if err != nil {
		return site.NoPossibility(), err
	}
	result, err := Search(c, start, c.dims.Accuracy())
	if err != nil {
		return site.NoPossibility(), err
	}
	c.searches++
	c.optimum = result.Possibility
	return c.optimum, nil
}

// OptimumKnown reports the cached optimum without computing it.
func (c *Community) OptimumKnown() (site.Possibility, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.optimum, c.optimum.Computed()
}

// SetOptimum installs a previously computed optimum, e.g. one restored from
// storage. It is ignored when an optimum is already cached.
func (c *Community) SetOptimum(p site.Possibility) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.optimum.Computed() && p.Computed() {
		c.optimum = site.Possibility{Site: p.Site.Clone(), Value: p.Value}
	}
}

// Dimensions is the site space the community lives in.
func (c *Community) Dimensions() *site.Dimensions {
	return c.dims
}
