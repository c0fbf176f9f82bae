package bern

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"bern/internal/batch"
	"bern/internal/database"
	"bern/internal/ingest"
	"bern/internal/model"
	"bern/internal/site"
	"bern/internal/storage"
)

const defaultDBPath = "bern.db"

var (
	ErrUnknownTaxon     = errors.New("unknown taxon")
	ErrUnknownCommunity = errors.New("unknown community")
	// ErrNotLoaded is returned by queries before any dimensions are loaded.
	ErrNotLoaded = errors.New("no dimensions loaded")
)

type (
	Dimension   = site.Dimension
	Vector      = site.Vector
	Possibility = site.Possibility
	Paths       = ingest.Paths
	Ranked      = database.Ranked
	Summary     = database.ImportSummary
	OptimaRun   = batch.OptimaReport
)

type Options struct {
	StoreKind string
	DBPath    string
	Workers   int
	Logger    *zap.Logger
}

type Client struct {
	store   storage.Store
	holder  *site.Holder
	logger  *zap.Logger
	workers int

	mu sync.RWMutex
	db *database.Database
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:   store,
		holder:  site.NewHolder(logger),
		logger:  logger,
		workers: opts.Workers,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// LoadDimensions configures the site space. Only the first call takes
// effect; later calls log a warning and return the loaded set.
func (c *Client) LoadDimensions(defs []Dimension) (*site.Dimensions, error) {
	dims, _, err := c.holder.Load(defs)
	if err != nil {
		return nil, err
	}
	if _, err := c.ensureDatabase(dims); err != nil {
		return nil, err
	}
	return dims, nil
}

func (c *Client) ensureDatabase(dims *site.Dimensions) (*database.Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}
	db, err := database.New(database.Config{Dimensions: dims, Logger: c.logger, Workers: c.workers})
	if err != nil {
		return nil, err
	}
	c.db = db
	return db, nil
}

func (c *Client) database() (*database.Database, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, ErrNotLoaded
	}
	return c.db, nil
}

// Dimensions is the loaded site space.
func (c *Client) Dimensions() (*site.Dimensions, error) {
	dims, ok := c.holder.Current()
	if !ok {
		return nil, ErrNotLoaded
	}
	return dims, nil
}

// LoadFromTSV reads the tables named by paths. The dimension table, or the
// inline definitions when paths has none, configures the site space on first
// use.
func (c *Client) LoadFromTSV(paths Paths, inline []Dimension) (Summary, error) {
	data, err := ingest.Load(paths, inline)
	if err != nil {
		return Summary{}, err
	}
	if _, err := c.LoadDimensions(data.Dimensions); err != nil {
		return Summary{}, err
	}
	db, err := c.database()
	if err != nil {
		return Summary{}, err
	}
	return db.Import(data)
}

// LoadSiteStates reads the site table of paths into the loaded data and
// returns how many states it added.
func (c *Client) LoadSiteStates(paths Paths) (int, error) {
	db, err := c.database()
	if err != nil {
		return 0, err
	}
	states, err := ingest.LoadSiteStates(paths, db.Dimensions().Len())
	if err != nil {
		return 0, err
	}
	for _, state := range states {
		if err := db.AddSiteState(state); err != nil {
			return 0, err
		}
	}
	return len(states), nil
}

// Save persists everything loaded or computed so far to the configured store.
func (c *Client) Save(ctx context.Context) error {
	db, err := c.database()
	if err != nil {
		return err
	}
	return db.Save(ctx, c.store)
}

// Restore replaces the in-memory data with the content of the store.
func (c *Client) Restore(ctx context.Context) error {
	set, ok, err := c.store.GetDimensions(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("restore: %w", ErrNotLoaded)
	}
	dims, _, err := c.holder.Load(database.DimensionDefs(set))
	if err != nil {
		return err
	}
	db, err := database.Restore(ctx, c.store, database.Config{Dimensions: dims, Logger: c.logger, Workers: c.workers})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.db = db
	c.mu.Unlock()
	return nil
}

// AddTaxon adds or replaces a taxon and returns the number of taxa.
func (c *Client) AddTaxon(id int, name string, pessMin, optMin, optMax, pessMax []float64) (int, error) {
	db, err := c.database()
	if err != nil {
		return 0, err
	}
	if _, err := db.AddTaxon(model.TaxonRecord{
		ID: id, Name: name, PessMin: pessMin, OptMin: optMin, OptMax: optMax, PessMax: pessMax,
	}); err != nil {
		return 0, err
	}
	return db.TaxonCount(), nil
}

// AddCommunity adds or replaces an empty community and returns the number of
// communities. extra holds free attributes such as land use.
func (c *Client) AddCommunity(id int, name string, extra map[string]string) (int, error) {
	db, err := c.database()
	if err != nil {
		return 0, err
	}
	db.AddCommunity(model.CommunityRecord{ID: id, Name: name, Extra: extra})
	return db.CommunityCount(), nil
}

// AddTaxonToCommunity links a taxon and returns the community's new size.
func (c *Client) AddTaxonToCommunity(communityID, taxonID int) (int, error) {
	db, err := c.database()
	if err != nil {
		return 0, err
	}
	comm, ok := db.Community(communityID)
	if !ok {
		return 0, fmt.Errorf("community %d: %w", communityID, ErrUnknownCommunity)
	}
	if !db.Link(communityID, taxonID) {
		return 0, fmt.Errorf("taxon %d: %w", taxonID, ErrUnknownTaxon)
	}
	return comm.Len(), nil
}

func (c *Client) TaxonName(id int) (string, error) {
	db, err := c.database()
	if err != nil {
		return "", err
	}
	t, ok := db.Taxon(id)
	if !ok {
		return "", fmt.Errorf("taxon %d: %w", id, ErrUnknownTaxon)
	}
	return t.Name, nil
}

func (c *Client) TaxonCount() int {
	db, err := c.database()
	if err != nil {
		return 0
	}
	return db.TaxonCount()
}

func (c *Client) CommunityCount() int {
	db, err := c.database()
	if err != nil {
		return 0
	}
	return db.CommunityCount()
}

// TaxonPossibility is the membership of site s in the niche of one taxon.
func (c *Client) TaxonPossibility(id int, s Vector) (float64, error) {
	db, err := c.database()
	if err != nil {
		return 0, err
	}
	t, ok := db.Taxon(id)
	if !ok {
		return 0, fmt.Errorf("taxon %d: %w", id, ErrUnknownTaxon)
	}
	if err := checkLength(db, s); err != nil {
		return 0, err
	}
	return t.Possibility(s), nil
}

// CommunityPossibility is the possibility of one community at s.
func (c *Client) CommunityPossibility(id int, s Vector) (float64, error) {
	db, err := c.database()
	if err != nil {
		return 0, err
	}
	comm, ok := db.Community(id)
	if !ok {
		return 0, fmt.Errorf("community %d: %w", id, ErrUnknownCommunity)
	}
	if err := checkLength(db, s); err != nil {
		return 0, err
	}
	return comm.Possibility(s)
}

// CommunityOptimum returns the optimal site conditions of one community,
// searching them on first request.
func (c *Client) CommunityOptimum(id int) (Possibility, error) {
	db, err := c.database()
	if err != nil {
		return site.NoPossibility(), err
	}
	p, ok, err := db.CommunityOptimum(id)
	if !ok {
		return site.NoPossibility(), fmt.Errorf("community %d: %w", id, ErrUnknownCommunity)
	}
	return p, err
}

func (c *Client) FeasibleTaxa(s Vector) ([]Ranked, error) {
	db, err := c.database()
	if err != nil {
		return nil, err
	}
	return db.FeasibleTaxa(s)
}

// BestTaxon returns the taxon with the highest possibility at s; ok is false
// when no taxon can live there.
func (c *Client) BestTaxon(s Vector) (Ranked, bool, error) {
	db, err := c.database()
	if err != nil {
		return Ranked{}, false, err
	}
	return db.BestTaxon(s)
}

func (c *Client) FeasibleCommunities(s Vector) ([]Ranked, error) {
	db, err := c.database()
	if err != nil {
		return nil, err
	}
	return db.FeasibleCommunities(s)
}

func (c *Client) BestCommunity(s Vector) (Ranked, bool, error) {
	db, err := c.database()
	if err != nil {
		return Ranked{}, false, err
	}
	return db.BestCommunity(s)
}

// CommunityIDs lists the community ids in the column order of the batch
// results.
func (c *Client) CommunityIDs() []int {
	db, err := c.database()
	if err != nil {
		return nil
	}
	return db.CommunityIDs()
}

// Possibilities evaluates every community at s. Communities without
// species yield NaN.
func (c *Client) Possibilities(ctx context.Context, s Vector) ([]float64, error) {
	db, err := c.database()
	if err != nil {
		return nil, err
	}
	return db.Possibilities(ctx, s)
}

// PossibilityMatrix evaluates every community at every site; the cell of
// site i and community j is at i*CommunityCount()+j.
func (c *Client) PossibilityMatrix(ctx context.Context, sites []Vector) ([]float64, error) {
	db, err := c.database()
	if err != nil {
		return nil, err
	}
	return db.PossibilityMatrix(ctx, sites)
}

func (c *Client) MaxPossibility(ctx context.Context, s Vector) (float64, error) {
	db, err := c.database()
	if err != nil {
		return 0, err
	}
	return db.MaxPossibility(ctx, s)
}

// CalculateOptima searches all missing community optima in parallel.
func (c *Client) CalculateOptima(ctx context.Context) (string, OptimaRun, error) {
	db, err := c.database()
	if err != nil {
		return "", OptimaRun{}, err
	}
	return db.CalculateOptima(ctx)
}

// SiteStates returns the site states loaded from the site table.
func (c *Client) SiteStates() []model.SiteState {
	db, err := c.database()
	if err != nil {
		return nil
	}
	return db.SiteStates()
}

// Community exposes one community for reporting.
func (c *Client) Community(id int) (CommunityInfo, error) {
	db, err := c.database()
	if err != nil {
		return CommunityInfo{}, err
	}
	comm, ok := db.Community(id)
	if !ok {
		return CommunityInfo{}, fmt.Errorf("community %d: %w", id, ErrUnknownCommunity)
	}
	info := CommunityInfo{ID: comm.ID, Name: comm.Name}
	for _, t := range comm.Taxa {
		info.Taxa = append(info.Taxa, TaxonInfo{ID: t.ID, Name: t.Name, Pess: t.Pess.Clone(), Opt: t.Opt.Clone()})
	}
	envelope, err := comm.Envelope()
	if err != nil {
		return info, err
	}
	info.Envelope = envelope
	center, err := comm.Center()
	if err != nil {
		return info, err
	}
	info.Center = center
	return info, nil
}

type TaxonInfo struct {
	ID   int
	Name string
	Pess site.Range
	Opt  site.Range
}

type CommunityInfo struct {
	ID       int
	Name     string
	Taxa     []TaxonInfo
	Envelope site.Range
	Center   Vector
}

func checkLength(db *database.Database, s Vector) error {
	if want := db.Dimensions().Len(); len(s) != want {
		return &site.DimensionMismatchError{Got: len(s), Want: want}
	}
	return nil
}
