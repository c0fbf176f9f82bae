package ingest

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bern/internal/site"
)

func dataPaths() Paths {
	return Paths{
		Dir:         filepath.Join("..", "..", "testdata", "tsv"),
		Dimensions:  "dimensions.tsv",
		Taxa:        "taxa.tsv",
		Communities: "communities.tsv",
		Links:       "links.tsv",
		Sites:       "sites.tsv",
	}
}

func TestLoadReadsEveryTable(t *testing.T) {
	data, err := Load(dataPaths(), nil)
	require.NoError(t, err)

	require.Len(t, data.Dimensions, 2)
	assert.Equal(t, "GWT", data.Dimensions[0].Name)
	assert.Equal(t, "groundwater table [cm]", data.Dimensions[0].LongName)
	assert.Equal(t, 200.0, data.Dimensions[0].Max)
	assert.Equal(t, 1, data.Dimensions[1].ID)

	require.Len(t, data.Taxa, 3, "negative ids are skipped")
	assert.Equal(t, "Molinia caerulea", data.Taxa[1].Name)
	assert.Equal(t, []float64{0, 3}, data.Taxa[1].PessMin)
	assert.Equal(t, []float64{20, 4}, data.Taxa[1].OptMin)
	assert.Equal(t, []float64{60, 5.5}, data.Taxa[1].OptMax)
	assert.Equal(t, []float64{120, 7}, data.Taxa[1].PessMax)

	require.Len(t, data.Communities, 3)
	assert.Equal(t, "Arrhenatheretum elatioris", data.Communities[1].Name)

	require.Len(t, data.Links, 6)
	assert.False(t, data.Links[4].Steady)

	require.Len(t, data.Sites, 3)
	assert.Equal(t, []float64{150, 7.5}, data.Sites[1].Conditions)
}

func TestLoadFallsBackToInlineDimensions(t *testing.T) {
	paths := dataPaths()
	paths.Dimensions = ""
	paths.Sites = ""
	inline := []site.Dimension{{Name: "GWT", Max: 200}, {Name: "pH", Min: 2, Max: 9}}

	data, err := Load(paths, inline)
	require.NoError(t, err)
	assert.Len(t, data.Dimensions, 2)
	assert.Len(t, data.Taxa, 3)

	_, err = Load(Paths{}, nil)
	require.Error(t, err)
}

func TestLoadReportsMissingFile(t *testing.T) {
	paths := dataPaths()
	paths.Taxa = "missing.tsv"
	_, err := Load(paths, nil)
	if err == nil || !strings.Contains(err.Error(), "missing.tsv") {
		t.Fatalf("expected error naming missing file, got %v", err)
	}
}

func TestReadTaxaReportsRowNumber(t *testing.T) {
	input := "#id\tname\tvalues\n1\tgood\t0 1 2 3\n\n2\tbad\t0 x 2 3\n"
	_, err := ReadTaxa(strings.NewReader(input), 1)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "taxon row 4") {
		t.Fatalf("expected row number in error, got %v", err)
	}
}

func TestReadTaxaRejectsShortVectors(t *testing.T) {
	input := "1\tshort\t0 1 2 3 4 5\n"
	_, err := ReadTaxa(strings.NewReader(input), 2)
	var mismatch *site.DimensionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
	if mismatch.Got != 6 || mismatch.Want != 8 {
		t.Fatalf("unexpected mismatch counts: %+v", mismatch)
	}
}

func TestReadTaxaRejectsLongVectors(t *testing.T) {
	input := "1\tlong\t0 1 2 3 4 5 6 7 8\n"
	_, err := ReadTaxa(strings.NewReader(input), 2)
	var mismatch *site.DimensionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
	if mismatch.Got != 9 || mismatch.Want != 8 {
		t.Fatalf("unexpected mismatch counts: %+v", mismatch)
	}
}

func TestReadLinksAcceptsSpaceSeparatedRows(t *testing.T) {
	links, err := ReadLinks(strings.NewReader("# c t s\n1 2 1\n3 4 0\n"))
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.True(t, links[0].Steady)
	assert.Equal(t, 4, links[1].TaxonID)
	assert.False(t, links[1].Steady)

	_, err = ReadLinks(strings.NewReader("1 2\n"))
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestReadSiteStatesChecksLength(t *testing.T) {
	_, err := ReadSiteStates(strings.NewReader("1\tplot\t1 2 3\n"), 2)
	var mismatch *site.DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 3, mismatch.Got)
}

func TestLoadSiteStatesOnly(t *testing.T) {
	states, err := LoadSiteStates(dataPaths(), 2)
	require.NoError(t, err)
	require.Len(t, states, 3)
	assert.Equal(t, "acid bog", states[2].Name)

	states, err = LoadSiteStates(Paths{}, 2)
	require.NoError(t, err)
	assert.Empty(t, states)
}
