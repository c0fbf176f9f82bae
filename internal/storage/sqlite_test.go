//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bern/internal/model"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "bern.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	dims := model.DimensionSet{
		VersionedRecord: Versioned(),
		Dimensions: []model.DimensionRecord{
			{Name: "GWT", LongName: "groundwater table", Min: 0, Max: 200},
			{Name: "pH", Min: 2, Max: 9},
		},
	}
	if err := store.SaveDimensions(ctx, dims); err != nil {
		t.Fatalf("save dimensions: %v", err)
	}
	loadedDims, ok, err := store.GetDimensions(ctx)
	if err != nil || !ok {
		t.Fatalf("get dimensions: ok=%t err=%v", ok, err)
	}
	if diff := cmp.Diff(dims, loadedDims); diff != "" {
		t.Fatalf("dimensions mismatch (-want +got):\n%s", diff)
	}

	taxon := model.TaxonRecord{
		VersionedRecord: Versioned(),
		ID:              5,
		Name:            "Carex nigra",
		PessMin:         []float64{0, 3},
		OptMin:          []float64{10, 4},
		OptMax:          []float64{40, 5},
		PessMax:         []float64{80, 6},
	}
	if err := store.SaveTaxon(ctx, taxon); err != nil {
		t.Fatalf("save taxon: %v", err)
	}
	taxa, err := store.ListTaxa(ctx)
	if err != nil {
		t.Fatalf("list taxa: %v", err)
	}
	if diff := cmp.Diff([]model.TaxonRecord{taxon}, taxa); diff != "" {
		t.Fatalf("taxa mismatch (-want +got):\n%s", diff)
	}

	links := []model.LinkRecord{{CommunityID: 1, TaxonID: 5, Steady: true}}
	if err := store.SaveLinks(ctx, links); err != nil {
		t.Fatalf("save links: %v", err)
	}
	loadedLinks, err := store.ListLinks(ctx)
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if diff := cmp.Diff(links, loadedLinks); diff != "" {
		t.Fatalf("links mismatch (-want +got):\n%s", diff)
	}

	optimum := model.OptimumRecord{VersionedRecord: Versioned(), CommunityID: 1, RunID: "r", Site: []float64{25, 4.5}, Value: 1}
	if err := store.SaveOptimum(ctx, optimum); err != nil {
		t.Fatalf("save optimum: %v", err)
	}
	loaded, ok, err := store.GetOptimum(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("get optimum: ok=%t err=%v", ok, err)
	}
	if diff := cmp.Diff(optimum, loaded); diff != "" {
		t.Fatalf("optimum mismatch (-want +got):\n%s", diff)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok, _ := store.GetDimensions(ctx); ok {
		t.Fatal("expected dimensions cleared by reset")
	}
}

func TestNewStoreSQLite(t *testing.T) {
	store, err := NewStore(SQLiteStoreKind, filepath.Join(t.TempDir(), "bern.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSQLiteStoreReplaceRollsBack(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "bern.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	checkReplaceKeepsContentOnError(t, store)
}
