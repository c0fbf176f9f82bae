package storage

import (
	"context"
	"fmt"

	"bern/internal/model"
)

// Store defines persistence operations for a loaded BERN database: the site
// space, taxa, communities, their links and computed optima.
type Store interface {
	Init(ctx context.Context) error
	Reset(ctx context.Context) error
	SaveDimensions(ctx context.Context, set model.DimensionSet) error
	GetDimensions(ctx context.Context) (model.DimensionSet, bool, error)
	SaveTaxon(ctx context.Context, taxon model.TaxonRecord) error
	ListTaxa(ctx context.Context) ([]model.TaxonRecord, error)
	SaveCommunity(ctx context.Context, community model.CommunityRecord) error
	ListCommunities(ctx context.Context) ([]model.CommunityRecord, error)
	SaveLinks(ctx context.Context, links []model.LinkRecord) error
	ListLinks(ctx context.Context) ([]model.LinkRecord, error)
	SaveOptimum(ctx context.Context, optimum model.OptimumRecord) error
	GetOptimum(ctx context.Context, communityID int) (model.OptimumRecord, bool, error)
	ListOptima(ctx context.Context) ([]model.OptimumRecord, error)
	// Replace swaps the whole content for snap. On error the previous
	// content is left in place.
	Replace(ctx context.Context, snap model.Snapshot) error
}

// snapshotWriter is the write half of a Store.
type snapshotWriter interface {
	Reset(ctx context.Context) error
	SaveDimensions(ctx context.Context, set model.DimensionSet) error
	SaveTaxon(ctx context.Context, taxon model.TaxonRecord) error
	SaveCommunity(ctx context.Context, community model.CommunityRecord) error
	SaveLinks(ctx context.Context, links []model.LinkRecord) error
	SaveOptimum(ctx context.Context, optimum model.OptimumRecord) error
}

func writeSnapshot(ctx context.Context, w snapshotWriter, snap model.Snapshot) error {
	if err := w.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := w.SaveDimensions(ctx, snap.Dimensions); err != nil {
		return fmt.Errorf("save dimensions: %w", err)
	}
	for _, taxon := range snap.Taxa {
		if err := w.SaveTaxon(ctx, taxon); err != nil {
			return fmt.Errorf("save taxon %d: %w", taxon.ID, err)
		}
	}
	for _, community := range snap.Communities {
		if err := w.SaveCommunity(ctx, community); err != nil {
			return fmt.Errorf("save community %d: %w", community.ID, err)
		}
	}
	if err := w.SaveLinks(ctx, snap.Links); err != nil {
		return fmt.Errorf("save links: %w", err)
	}
	for _, optimum := range snap.Optima {
		if err := w.SaveOptimum(ctx, optimum); err != nil {
			return fmt.Errorf("save optimum %d: %w", optimum.CommunityID, err)
		}
	}
	return nil
}
