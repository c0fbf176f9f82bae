//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"bern/internal/model"

	_ "modernc.org/sqlite"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return resetTables(ctx, db)
}

func resetTables(ctx context.Context, ex execer) error {
	_, err := ex.ExecContext(ctx, `
		DELETE FROM dimensions;
		DELETE FROM taxa;
		DELETE FROM communities;
		DELETE FROM links;
		DELETE FROM optima;
	`)
	return err
}

func (s *SQLiteStore) SaveDimensions(ctx context.Context, set model.DimensionSet) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return saveDimensions(ctx, db, set)
}

func saveDimensions(ctx context.Context, ex execer, set model.DimensionSet) error {
	payload, err := EncodeDimensions(set)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO dimensions (id, schema_version, codec_version, payload)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, set.SchemaVersion, set.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetDimensions(ctx context.Context) (model.DimensionSet, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.DimensionSet{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM dimensions WHERE id = 1`).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DimensionSet{}, false, nil
		}
		return model.DimensionSet{}, false, err
	}

	set, err := DecodeDimensions(payload)
	if err != nil {
		return model.DimensionSet{}, false, fmt.Errorf("decode dimensions: %w", err)
	}
	return set, true, nil
}

func (s *SQLiteStore) SaveTaxon(ctx context.Context, taxon model.TaxonRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return saveTaxon(ctx, db, taxon)
}

func saveTaxon(ctx context.Context, ex execer, taxon model.TaxonRecord) error {
	payload, err := EncodeTaxon(taxon)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO taxa (id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, taxon.ID, taxon.SchemaVersion, taxon.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) ListTaxa(ctx context.Context) ([]model.TaxonRecord, error) {
	var out []model.TaxonRecord
	err := s.scanPayloads(ctx, `SELECT id, payload FROM taxa ORDER BY id`, func(id int, payload []byte) error {
		taxon, err := DecodeTaxon(payload)
		if err != nil {
			return fmt.Errorf("decode taxon %d: %w", id, err)
		}
		out = append(out, taxon)
		return nil
	})
	return out, err
}

func (s *SQLiteStore) SaveCommunity(ctx context.Context, community model.CommunityRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return saveCommunity(ctx, db, community)
}

func saveCommunity(ctx context.Context, ex execer, community model.CommunityRecord) error {
	payload, err := EncodeCommunity(community)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO communities (id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, community.ID, community.SchemaVersion, community.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) ListCommunities(ctx context.Context) ([]model.CommunityRecord, error) {
	var out []model.CommunityRecord
	err := s.scanPayloads(ctx, `SELECT id, payload FROM communities ORDER BY id`, func(id int, payload []byte) error {
		community, err := DecodeCommunity(payload)
		if err != nil {
			return fmt.Errorf("decode community %d: %w", id, err)
		}
		out = append(out, community)
		return nil
	})
	return out, err
}

func (s *SQLiteStore) SaveLinks(ctx context.Context, links []model.LinkRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return saveLinks(ctx, db, links)
}

func saveLinks(ctx context.Context, ex execer, links []model.LinkRecord) error {
	payload, err := EncodeLinks(links)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO links (id, payload)
		VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload
	`, payload)
	return err
}

func (s *SQLiteStore) ListLinks(ctx context.Context) ([]model.LinkRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM links WHERE id = 1`).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	links, err := DecodeLinks(payload)
	if err != nil {
		return nil, fmt.Errorf("decode links: %w", err)
	}
	return links, nil
}

func (s *SQLiteStore) SaveOptimum(ctx context.Context, optimum model.OptimumRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return saveOptimum(ctx, db, optimum)
}

func saveOptimum(ctx context.Context, ex execer, optimum model.OptimumRecord) error {
	payload, err := EncodeOptimum(optimum)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO optima (community_id, run_id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(community_id) DO UPDATE SET
			run_id = excluded.run_id,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, optimum.CommunityID, optimum.RunID, optimum.SchemaVersion, optimum.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetOptimum(ctx context.Context, communityID int) (model.OptimumRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.OptimumRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM optima WHERE community_id = ?`, communityID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OptimumRecord{}, false, nil
		}
		return model.OptimumRecord{}, false, err
	}

	optimum, err := DecodeOptimum(payload)
	if err != nil {
		return model.OptimumRecord{}, false, fmt.Errorf("decode optimum %d: %w", communityID, err)
	}
	return optimum, true, nil
}

func (s *SQLiteStore) ListOptima(ctx context.Context) ([]model.OptimumRecord, error) {
	var out []model.OptimumRecord
	err := s.scanPayloads(ctx, `SELECT community_id, payload FROM optima ORDER BY community_id`, func(id int, payload []byte) error {
		optimum, err := DecodeOptimum(payload)
		if err != nil {
			return fmt.Errorf("decode optimum %d: %w", id, err)
		}
		out = append(out, optimum)
		return nil
	})
	return out, err
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func (s *SQLiteStore) scanPayloads(ctx context.Context, query string, fn func(id int, payload []byte) error) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id      int
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return err
		}
		if err := fn(id, payload); err != nil {
			return err
		}
	}
	return rows.Err()
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS dimensions (
			id INTEGER PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS taxa (
			id INTEGER PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS communities (
			id INTEGER PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS links (
			id INTEGER PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS optima (
			community_id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}

// Replace rewrites every table inside one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, snap model.Snapshot) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := writeSnapshot(ctx, sqliteTx{tx: tx}, snap); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// sqliteTx runs the table writes of Replace on one transaction.
type sqliteTx struct {
	tx *sql.Tx
}

func (t sqliteTx) Reset(ctx context.Context) error {
	return resetTables(ctx, t.tx)
}

func (t sqliteTx) SaveDimensions(ctx context.Context, set model.DimensionSet) error {
	return saveDimensions(ctx, t.tx, set)
}

func (t sqliteTx) SaveTaxon(ctx context.Context, taxon model.TaxonRecord) error {
	return saveTaxon(ctx, t.tx, taxon)
}

func (t sqliteTx) SaveCommunity(ctx context.Context, community model.CommunityRecord) error {
	return saveCommunity(ctx, t.tx, community)
}

func (t sqliteTx) SaveLinks(ctx context.Context, links []model.LinkRecord) error {
	return saveLinks(ctx, t.tx, links)
}

func (t sqliteTx) SaveOptimum(ctx context.Context, optimum model.OptimumRecord) error {
	return saveOptimum(ctx, t.tx, optimum)
}
