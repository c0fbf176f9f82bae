package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bern/internal/model"
	"bern/internal/niche"
	"bern/internal/site"
	"bern/internal/storage"
)

// Save replaces the content of store with the database, including every
// optimum computed so far. Links are taken from the current members of each
// community, so a replaced community or taxon is saved as it is now.
func (db *Database) Save(ctx context.Context, store storage.Store) error {
	snap := db.Snapshot()
	if err := store.Replace(ctx, snap); err != nil {
		return fmt.Errorf("save database: %w", err)
	}
	db.logger.Debug("database saved",
		zap.Int("taxa", len(snap.Taxa)),
		zap.Int("communities", len(snap.Communities)),
		zap.Int("links", len(snap.Links)),
		zap.Int("optima", len(snap.Optima)),
	)
	return nil
}

// Snapshot is the persisted form of the database.
func (db *Database) Snapshot() model.Snapshot {
	snap := model.Snapshot{Dimensions: DimensionSet(db.dims)}
	for _, t := range db.Taxa() {
		snap.Taxa = append(snap.Taxa, taxonRecord(t))
	}

	for _, c := range db.Communities() {
		rec := model.CommunityRecord{VersionedRecord: storage.Versioned(), ID: c.ID, Name: c.Name}
		if len(c.Extra) > 0 {
			rec.Extra = make(map[string]string, len(c.Extra))
			for k, v := range c.Extra {
				rec.Extra[k] = v
			}
		}
		snap.Communities = append(snap.Communities, rec)
		for _, t := range c.Taxa {
			snap.Links = append(snap.Links, model.LinkRecord{CommunityID: c.ID, TaxonID: t.ID, Steady: true})
		}

		p, ok := c.OptimumKnown()
		if !ok {
			continue
		}
		db.mu.RLock()
		runID := db.runs[c.ID]
		db.mu.RUnlock()
		snap.Optima = append(snap.Optima, model.OptimumRecord{
			VersionedRecord: storage.Versioned(),
			CommunityID:     c.ID,
			RunID:           runID,
			Site:            p.Site.Clone(),
			Value:           p.Value,
		})
	}
	return snap
}

// Restore rebuilds a database from store. When cfg carries dimensions they
// must match the stored ones; otherwise the stored set is used.
func Restore(ctx context.Context, store storage.Store, cfg Config) (*Database, error) {
	set, ok, err := store.GetDimensions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dimensions: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("store holds no dimensions")
	}
	stored := DimensionDefs(set)
	if cfg.Dimensions == nil {
		dims, err := site.NewDimensions(stored)
		if err != nil {
			return nil, err
		}
		cfg.Dimensions = dims
	}

	db, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.checkDimensions(stored); err != nil {
		return nil, err
	}

	taxa, err := store.ListTaxa(ctx)
	if err != nil {
		return nil, fmt.Errorf("list taxa: %w", err)
	}
	for _, rec := range taxa {
		if _, err := db.AddTaxon(rec); err != nil {
			return nil, err
		}
	}
	communities, err := store.ListCommunities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	for _, rec := range communities {
		db.AddCommunity(rec)
	}
	links, err := store.ListLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	db.LinkAll(links)

	optima, err := store.ListOptima(ctx)
	if err != nil {
		return nil, fmt.Errorf("list optima: %w", err)
	}
	for _, rec := range optima {
		c, ok := db.Community(rec.CommunityID)
		if !ok || len(rec.Site) != db.dims.Len() {
			db.logger.Warn("stored optimum dropped", zap.Int("community", rec.CommunityID))
			continue
		}
		c.SetOptimum(site.Possibility{Site: site.Vector(rec.Site), Value: rec.Value})
		db.mu.Lock()
		db.runs[rec.CommunityID] = rec.RunID
		db.mu.Unlock()
	}
	return db, nil
}

// DimensionSet converts dims into its persisted form.
func DimensionSet(dims *site.Dimensions) model.DimensionSet {
	set := model.DimensionSet{VersionedRecord: storage.Versioned()}
	for _, d := range dims.All() {
		set.Dimensions = append(set.Dimensions, model.DimensionRecord{
			Name:     d.Name,
			LongName: d.LongName,
			Min:      d.Min,
			Max:      d.Max,
		})
	}
	return set
}

// DimensionDefs converts a persisted set back into definitions.
func DimensionDefs(set model.DimensionSet) []site.Dimension {
	defs := make([]site.Dimension, 0, len(set.Dimensions))
	for i, d := range set.Dimensions {
		defs = append(defs, site.Dimension{Name: d.Name, LongName: d.LongName, ID: i, Min: d.Min, Max: d.Max})
	}
	return defs
}

func taxonRecord(t *niche.Taxon) model.TaxonRecord {
	return model.TaxonRecord{
		VersionedRecord: storage.Versioned(),
		ID:              t.ID,
		Name:            t.Name,
		PessMin:         t.Pess.Min.Clone(),
		OptMin:          t.Opt.Min.Clone(),
		OptMax:          t.Opt.Max.Clone(),
		PessMax:         t.Pess.Max.Clone(),
	}
}
