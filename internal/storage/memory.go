package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"bern/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	dimensions  *model.DimensionSet
	taxa        map[int]model.TaxonRecord
	communities map[int]model.CommunityRecord
	links       []model.LinkRecord
	optima      map[int]model.OptimumRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.reset()
	s.initialized = true
	return nil
}

func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	s.initialized = true
	return nil
}

func (s *MemoryStore) reset() {
	s.dimensions = nil
	s.taxa = make(map[int]model.TaxonRecord)
	s.communities = make(map[int]model.CommunityRecord)
	s.links = nil
	s.optima = make(map[int]model.OptimumRecord)
}

func (s *MemoryStore) SaveDimensions(_ context.Context, set model.DimensionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	copied := set
	copied.Dimensions = append([]model.DimensionRecord(nil), set.Dimensions...)
	s.dimensions = &copied
	return nil
}

func (s *MemoryStore) GetDimensions(_ context.Context) (model.DimensionSet, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimensions == nil {
		return model.DimensionSet{}, false, nil
	}
	copied := *s.dimensions
	copied.Dimensions = append([]model.DimensionRecord(nil), s.dimensions.Dimensions...)
	return copied, true, nil
}

func (s *MemoryStore) SaveTaxon(_ context.Context, taxon model.TaxonRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.taxa[taxon.ID] = taxon
	return nil
}

func (s *MemoryStore) ListTaxa(_ context.Context) ([]model.TaxonRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TaxonRecord, 0, len(s.taxa))
	for _, taxon := range s.taxa {
		out = append(out, taxon)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SaveCommunity(_ context.Context, community model.CommunityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.communities[community.ID] = community
	return nil
}

func (s *MemoryStore) ListCommunities(_ context.Context) ([]model.CommunityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CommunityRecord, 0, len(s.communities))
	for _, community := range s.communities {
		out = append(out, community)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveLinks replaces the stored link table.
func (s *MemoryStore) SaveLinks(_ context.Context, links []model.LinkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.links = append([]model.LinkRecord(nil), links...)
	return nil
}

func (s *MemoryStore) ListLinks(_ context.Context) ([]model.LinkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.LinkRecord(nil), s.links...), nil
}

func (s *MemoryStore) SaveOptimum(_ context.Context, optimum model.OptimumRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	if _, err := EncodeOptimum(optimum); err != nil {
		return err
	}
	optimum.Site = append([]float64(nil), optimum.Site...)
	s.optima[optimum.CommunityID] = optimum
	return nil
}

func (s *MemoryStore) GetOptimum(_ context.Context, communityID int) (model.OptimumRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	optimum, ok := s.optima[communityID]
	return optimum, ok, nil
}

func (s *MemoryStore) ListOptima(_ context.Context) ([]model.OptimumRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.OptimumRecord, 0, len(s.optima))
	for _, optimum := range s.optima {
		out = append(out, optimum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommunityID < out[j].CommunityID })
	return out, nil
}

// Replace writes snap into a scratch store first, so a rejected record
// leaves the current content untouched.
func (s *MemoryStore) Replace(ctx context.Context, snap model.Snapshot) error {
	next := NewMemoryStore()
	if err := next.Init(ctx); err != nil {
		return err
	}
	if err := writeSnapshot(ctx, next, snap); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.dimensions = next.dimensions
	s.taxa = next.taxa
	s.communities = next.communities
	s.links = next.links
	s.optima = next.optima
	return nil
}
