package database

import (
	"sort"

	"bern/internal/metrics"
	"bern/internal/site"
)

// Ranked is one entry of a feasibility query.
type Ranked struct {
	ID    int
	Name  string
	Value float64
}

// rank keeps entries with a positive value, highest first, ties by id.
func rank(entries []Ranked) []Ranked {
	out := entries[:0]
	for _, e := range entries {
		if e.Value > 0 {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FeasibleTaxa lists the taxa that can live at s.
func (db *Database) FeasibleTaxa(s site.Vector) ([]Ranked, error) {
	if err := db.checkSite(s); err != nil {
		return nil, err
	}
	taxa := db.Taxa()
	metrics.Evaluations.WithLabelValues("taxon").Add(float64(len(taxa)))
	entries := make([]Ranked, 0, len(taxa))
	for _, t := range taxa {
		entries = append(entries, Ranked{ID: t.ID, Name: t.Name, Value: t.Possibility(s)})
	}
	return rank(entries), nil
}

// BestTaxon is the taxon with the highest possibility at s; ok is false when
// no taxon can live there.
func (db *Database) BestTaxon(s site.Vector) (Ranked, bool, error) {
	feasible, err := db.FeasibleTaxa(s)
	if err != nil || len(feasible) == 0 {
		return Ranked{}, false, err
	}
	return feasible[0], true, nil
}

// FeasibleCommunities lists the communities that can establish at s.
// Communities without species never are.
func (db *Database) FeasibleCommunities(s site.Vector) ([]Ranked, error) {
	if err := db.checkSite(s); err != nil {
		return nil, err
	}
	comms := db.Communities()
	entries := make([]Ranked, 0, len(comms))
	for _, c := range comms {
		p, err := c.Possibility(s)
		if err != nil {
			continue
		}
		entries = append(entries, Ranked{ID: c.ID, Name: c.Name, Value: p})
	}
	return rank(entries), nil
}

// BestCommunity is the community with the highest possibility at s.
func (db *Database) BestCommunity(s site.Vector) (Ranked, bool, error) {
	feasible, err := db.FeasibleCommunities(s)
	if err != nil || len(feasible) == 0 {
		return Ranked{}, false, err
	}
	return feasible[0], true, nil
}

// CommunityOptimum returns the cached or freshly searched optimum of one
// community.
func (db *Database) CommunityOptimum(id int) (site.Possibility, bool, error) {
	c, ok := db.Community(id)
	if !ok {
		return site.NoPossibility(), false, nil
	}
	p, err := c.Optimum()
	if err != nil {
		return site.NoPossibility(), true, err
	}
	return p, true, nil
}
