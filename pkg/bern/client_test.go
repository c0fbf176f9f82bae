package bern

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testPaths() Paths {
	return Paths{
		Dir:         filepath.Join("..", "..", "testdata", "tsv"),
		Dimensions:  "dimensions.tsv",
		Taxa:        "taxa.tsv",
		Communities: "communities.tsv",
		Links:       "links.tsv",
		Sites:       "sites.tsv",
	}
}

func newLoadedClient(t *testing.T, opts Options) *Client {
	t.Helper()
	client, err := New(opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	summary, err := client.LoadFromTSV(testPaths(), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if summary.Taxa != 3 || summary.Communities != 3 || summary.Links != 4 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	return client
}

func TestClientQueriesBeforeLoad(t *testing.T) {
	client, err := New(Options{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Dimensions(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if _, err := client.AddTaxon(1, "x", nil, nil, nil, nil); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if client.TaxonCount() != 0 || client.CommunityCount() != 0 {
		t.Fatal("expected empty counts")
	}
}

func TestClientBuildsDataByHand(t *testing.T) {
	client, err := New(Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.LoadDimensions([]Dimension{{Name: "x", Min: 0, Max: 10}}); err != nil {
		t.Fatalf("dimensions: %v", err)
	}

	n, err := client.AddTaxon(1, "reed", []float64{0}, []float64{3}, []float64{7}, []float64{10})
	if err != nil || n != 1 {
		t.Fatalf("add taxon: n=%d err=%v", n, err)
	}
	if _, err := client.AddTaxon(2, "short", []float64{0, 1}, []float64{3}, []float64{7}, []float64{10}); err == nil {
		t.Fatal("expected dimension mismatch")
	}
	n, err = client.AddCommunity(5, "reed bed", map[string]string{"landuse": "1"})
	if err != nil || n != 1 {
		t.Fatalf("add community: n=%d err=%v", n, err)
	}
	n, err = client.AddTaxonToCommunity(5, 1)
	if err != nil || n != 1 {
		t.Fatalf("link: n=%d err=%v", n, err)
	}
	if _, err := client.AddTaxonToCommunity(6, 1); !errors.Is(err, ErrUnknownCommunity) {
		t.Fatalf("expected unknown community, got %v", err)
	}
	if _, err := client.AddTaxonToCommunity(5, 9); !errors.Is(err, ErrUnknownTaxon) {
		t.Fatalf("expected unknown taxon, got %v", err)
	}

	got, err := client.TaxonPossibility(1, Vector{1})
	if err != nil {
		t.Fatalf("taxon possibility: %v", err)
	}
	if math.Abs(got-1.0/3.0) > 1e-12 {
		t.Fatalf("unexpected taxon possibility: %f", got)
	}
	if _, err := client.TaxonPossibility(9, Vector{1}); !errors.Is(err, ErrUnknownTaxon) {
		t.Fatalf("expected unknown taxon, got %v", err)
	}

	got, err = client.CommunityPossibility(5, Vector{5})
	if err != nil || got != 1 {
		t.Fatalf("community possibility: got=%f err=%v", got, err)
	}
	name, err := client.TaxonName(1)
	if err != nil || name != "reed" {
		t.Fatalf("taxon name: %q %v", name, err)
	}
}

func TestClientLoadFromTSVAndQuery(t *testing.T) {
	client := newLoadedClient(t, Options{Workers: 2})

	best, ok, err := client.BestCommunity(Vector{20, 4.5})
	if err != nil || !ok || best.ID != 10 {
		t.Fatalf("best community: %+v ok=%t err=%v", best, ok, err)
	}
	taxa, err := client.FeasibleTaxa(Vector{20, 4.5})
	if err != nil || len(taxa) != 2 {
		t.Fatalf("feasible taxa: %+v err=%v", taxa, err)
	}
	if _, ok, _ := client.BestTaxon(Vector{199, 2.1}); ok {
		t.Fatal("expected no taxon at the extreme corner")
	}

	info, err := client.Community(10)
	if err != nil {
		t.Fatalf("community: %v", err)
	}
	if len(info.Taxa) != 2 || info.Center[0] != 30 {
		t.Fatalf("unexpected community info: %+v", info)
	}
	if _, err := client.Community(30); err == nil {
		t.Fatal("expected no species error for empty community")
	}

	values, err := client.Possibilities(context.Background(), Vector{20, 4.5})
	if err != nil {
		t.Fatalf("possibilities: %v", err)
	}
	if len(values) != client.CommunityCount() || !math.IsNaN(values[2]) {
		t.Fatalf("unexpected possibilities: %v", values)
	}
	top, err := client.MaxPossibility(context.Background(), Vector{20, 4.5})
	if err != nil || top != 1 {
		t.Fatalf("max possibility: %f %v", top, err)
	}
}

func TestClientReloadIsLoggedNoOp(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	client := newLoadedClient(t, Options{Logger: zap.New(core)})

	dims, err := client.LoadDimensions([]Dimension{{Name: "other", Max: 1}})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if dims.Len() != 2 || dims.At(0).Name != "GWT" {
		t.Fatalf("dimensions changed on reload: %s", dims)
	}
	if logs.FilterMessage("dimension load aborted").Len() != 1 {
		t.Fatalf("expected one reload warning, got %v", logs.All())
	}
}

func TestClientOptimaSaveAndRestore(t *testing.T) {
	ctx := context.Background()
	client := newLoadedClient(t, Options{})

	runID, report, err := client.CalculateOptima(ctx)
	if err != nil {
		t.Fatalf("calculate optima: %v", err)
	}
	if runID == "" || report.Computed != 2 || len(report.Failed) != 1 {
		t.Fatalf("unexpected optima run %q: %+v", runID, report)
	}
	opt, err := client.CommunityOptimum(10)
	if err != nil || opt.Value != 1 {
		t.Fatalf("community optimum: %+v %v", opt, err)
	}
	if _, err := client.CommunityOptimum(404); !errors.Is(err, ErrUnknownCommunity) {
		t.Fatalf("expected unknown community, got %v", err)
	}
	if err := client.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := client.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	restored, err := client.CommunityOptimum(10)
	if err != nil {
		t.Fatalf("restored optimum: %v", err)
	}
	if restored.Value != opt.Value || restored.Site[0] != opt.Site[0] || restored.Site[1] != opt.Site[1] {
		t.Fatalf("restored optimum differs: %+v vs %+v", restored, opt)
	}
	if client.TaxonCount() != 3 {
		t.Fatalf("unexpected taxon count after restore: %d", client.TaxonCount())
	}
}

func TestClientPossibilityMatrix(t *testing.T) {
	client := newLoadedClient(t, Options{})
	var sites []Vector
	for _, s := range client.SiteStates() {
		sites = append(sites, Vector(s.Conditions))
	}
	matrix, err := client.PossibilityMatrix(context.Background(), sites)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	ids := client.CommunityIDs()
	if len(matrix) != len(sites)*len(ids) {
		t.Fatalf("unexpected matrix size %d", len(matrix))
	}
	for i, s := range sites {
		for j, id := range ids {
			want, err := client.CommunityPossibility(id, s)
			got := matrix[i*len(ids)+j]
			if err != nil {
				if !math.IsNaN(got) {
					t.Fatalf("site %d community %d: expected NaN, got %f", i, id, got)
				}
				continue
			}
			if got != want {
				t.Fatalf("site %d community %d: got %f want %f", i, id, got, want)
			}
		}
	}
}
