package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bern/internal/batch"
	"bern/internal/ingest"
	"bern/internal/model"
	"bern/internal/niche"
	"bern/internal/site"
)

type Config struct {
	Dimensions *site.Dimensions
	Logger     *zap.Logger
	// Workers bounds the batch evaluators; 0 means one per CPU.
	Workers int
}

// Database is an arena: it owns every Taxon and Community and hands out
// pointers that stay valid for its lifetime. Communities reference taxa held
// here, so taxa are never removed.
type Database struct {
	dims   *site.Dimensions
	logger *zap.Logger
	eval   *batch.Evaluator

	mu          sync.RWMutex
	taxa        map[int]*niche.Taxon
	communities map[int]*niche.Community
	sites       []model.SiteState
	// runs maps community ids to the CalculateOptima run that found them.
	runs map[int]string
}

func New(cfg Config) (*Database, error) {
	if cfg.Dimensions == nil {
		return nil, fmt.Errorf("database requires dimensions")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Database{
		dims:        cfg.Dimensions,
		logger:      logger,
		eval:        batch.New(cfg.Workers, logger),
		taxa:        make(map[int]*niche.Taxon),
		communities: make(map[int]*niche.Community),
		runs:        make(map[int]string),
	}, nil
}

func (db *Database) Dimensions() *site.Dimensions {
	return db.dims
}

// ImportSummary counts what Import added.
type ImportSummary struct {
	Taxa        int
	Communities int
	Links       int
	Sites       int
}

// Import adds every table of data. The dimensions of data must match the
// database's dimensions by name and order.
func (db *Database) Import(data ingest.Dataset) (ImportSummary, error) {
	if err := db.checkDimensions(data.Dimensions); err != nil {
		return ImportSummary{}, err
	}
	for _, rec := range data.Taxa {
		if _, err := db.AddTaxon(rec); err != nil {
			return ImportSummary{}, err
		}
	}
	for _, rec := range data.Communities {
		db.AddCommunity(rec)
	}
	linked := db.LinkAll(data.Links)
	for _, state := range data.Sites {
		if err := db.AddSiteState(state); err != nil {
			return ImportSummary{}, err
		}
	}

	summary := ImportSummary{
		Taxa:        len(data.Taxa),
		Communities: len(data.Communities),
		Links:       linked,
		Sites:       len(data.Sites),
	}
	db.logger.Info("data imported",
		zap.Int("taxa", summary.Taxa),
		zap.Int("communities", summary.Communities),
		zap.Int("links", summary.Links),
		zap.Int("sites", summary.Sites),
	)
	return summary, nil
}

func (db *Database) checkDimensions(defs []site.Dimension) error {
	if len(defs) == 0 {
		return nil
	}
	if len(defs) != db.dims.Len() {
		return &site.DimensionMismatchError{Got: len(defs), Want: db.dims.Len()}
	}
	for i, def := range defs {
		if def.Name != db.dims.At(i).Name {
			return fmt.Errorf("dimension %d is %s, database uses %s", i, def.Name, db.dims.At(i).Name)
		}
	}
	return nil
}

// AddTaxon creates a taxon from rec. A taxon with the same id is replaced,
// also in every community linked to it; those communities lose their cached
// optimum.
func (db *Database) AddTaxon(rec model.TaxonRecord) (*niche.Taxon, error) {
	taxon, err := niche.NewTaxon(db.dims, rec.ID, rec.Name, rec.PessMin, rec.OptMin, rec.OptMax, rec.PessMax)
	if err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, replaced := db.taxa[taxon.ID]; replaced {
		for id, c := range db.communities {
			if c.ReplaceTaxon(taxon) {
				delete(db.runs, id)
			}
		}
	}
	db.taxa[taxon.ID] = taxon
	return taxon, nil
}

// AddCommunity creates an empty community from rec, replacing any community
// with the same id.
func (db *Database) AddCommunity(rec model.CommunityRecord) *niche.Community {
	community := niche.NewCommunity(db.dims, rec.ID, rec.Name)
	for k, v := range rec.Extra {
		community.Extra[k] = v
	}
	db.mu.Lock()
	db.communities[community.ID] = community
	delete(db.runs, community.ID)
	db.mu.Unlock()
	return community
}

// Link adds a taxon to a community. Unknown ids are ignored and reported as
// false.
func (db *Database) Link(communityID, taxonID int) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.link(model.LinkRecord{CommunityID: communityID, TaxonID: taxonID, Steady: true})
}

// LinkAll applies every steady link and returns how many were made. Rows
// naming an unknown community or taxon are not counted.
func (db *Database) LinkAll(links []model.LinkRecord) int {
	db.mu.Lock()
	defer db.mu.Unlock()

	linked := 0
	for _, l := range links {
		if l.Steady && db.link(l) {
			linked++
		}
	}
	return linked
}

func (db *Database) link(l model.LinkRecord) bool {
	community, ok := db.communities[l.CommunityID]
	if !ok {
		return false
	}
	taxon, ok := db.taxa[l.TaxonID]
	if !ok {
		return false
	}
	community.Add(taxon)
	return true
}

func (db *Database) AddSiteState(state model.SiteState) error {
	if len(state.Conditions) != db.dims.Len() {
		return fmt.Errorf("site %d: %w", state.ID, &site.DimensionMismatchError{Got: len(state.Conditions), Want: db.dims.Len()})
	}
	state.Conditions = append([]float64(nil), state.Conditions...)
	db.mu.Lock()
	db.sites = append(db.sites, state)
	db.mu.Unlock()
	return nil
}

func (db *Database) SiteStates() []model.SiteState {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]model.SiteState(nil), db.sites...)
}

func (db *Database) Taxon(id int) (*niche.Taxon, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, ok := db.taxa[id]
	return t, ok
}

func (db *Database) Community(id int) (*niche.Community, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.communities[id]
	return c, ok
}

func (db *Database) TaxonCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.taxa)
}

func (db *Database) CommunityCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.communities)
}

func (db *Database) TaxonIDs() []int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return sortedKeys(db.taxa)
}

func (db *Database) CommunityIDs() []int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return sortedKeys(db.communities)
}

// Taxa returns all taxa in id order.
func (db *Database) Taxa() []*niche.Taxon {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*niche.Taxon, 0, len(db.taxa))
	for _, id := range sortedKeys(db.taxa) {
		out = append(out, db.taxa[id])
	}
	return out
}

// Communities returns all communities in id order.
func (db *Database) Communities() []*niche.Community {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*niche.Community, 0, len(db.communities))
	for _, id := range sortedKeys(db.communities) {
		out = append(out, db.communities[id])
	}
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CalculateOptima searches the optimum of every community in parallel. The
// returned run id tags the optima found by this call.
func (db *Database) CalculateOptima(ctx context.Context) (string, batch.OptimaReport, error) {
	comms := db.Communities()
	pending := make([]*niche.Community, 0, len(comms))
	for _, c := range comms {
		if _, ok := c.OptimumKnown(); !ok {
			pending = append(pending, c)
		}
	}

	runID := uuid.NewString()
	report, err := db.eval.CalculateOptima(ctx, pending)
	if err != nil {
		return "", batch.OptimaReport{}, err
	}

	db.mu.Lock()
	for _, c := range pending {
		if _, failed := report.Failed[c.ID]; !failed {
			db.runs[c.ID] = runID
		}
	}
	db.mu.Unlock()

	db.logger.Info("optima calculated",
		zap.String("run_id", runID),
		zap.Int("computed", report.Computed),
		zap.Int("cached", len(comms)-len(pending)),
		zap.Int("skipped", len(report.Failed)),
		zap.Duration("duration", report.Duration),
	)
	return runID, report, nil
}

// Possibilities evaluates every community at s in id order.
func (db *Database) Possibilities(ctx context.Context, s site.Vector) ([]float64, error) {
	if err := db.checkSite(s); err != nil {
		return nil, err
	}
	return db.eval.Possibility(ctx, db.Communities(), s)
}

// PossibilityMatrix evaluates every community at every site; the result is
// site-major with communities in id order.
func (db *Database) PossibilityMatrix(ctx context.Context, sites []site.Vector) ([]float64, error) {
	for _, s := range sites {
		if err := db.checkSite(s); err != nil {
			return nil, err
		}
	}
	return db.eval.PossibilityMatrix(ctx, db.Communities(), sites)
}

// MaxPossibility is the highest community possibility at s.
func (db *Database) MaxPossibility(ctx context.Context, s site.Vector) (float64, error) {
	if err := db.checkSite(s); err != nil {
		return 0, err
	}
	return db.eval.MaxPossibility(ctx, db.Communities(), s)
}

func (db *Database) checkSite(s site.Vector) error {
	if len(s) != db.dims.Len() {
		return &site.DimensionMismatchError{Got: len(s), Want: db.dims.Len()}
	}
	return nil
}
