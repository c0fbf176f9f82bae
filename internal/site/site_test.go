package site

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testDimensions(t *testing.T) *Dimensions {
	t.Helper()
	dims, err := NewDimensions([]Dimension{
		{Name: "BS", LongName: "base saturation", Min: 0, Max: 100},
		{Name: "CN", LongName: "C/N ratio", Min: 0, Max: 50},
	})
	if err != nil {
		t.Fatalf("new dimensions: %v", err)
	}
	return dims
}

func TestNewDimensionsAssignsIDsAndRejectsDuplicates(t *testing.T) {
	dims := testDimensions(t)
	if dims.Len() != 2 || dims.At(1).ID != 1 {
		t.Fatalf("unexpected dimensions: %+v", dims.All())
	}
	if got := dims.String(); got != "[BS,CN]" {
		t.Fatalf("unexpected string: %s", got)
	}
	if _, err := NewDimensions([]Dimension{{Name: "a"}, {Name: "a"}}); err == nil {
		t.Fatal("expected duplicate dimension error")
	}
	if _, err := NewDimensions(nil); err == nil {
		t.Fatal("expected empty dimensions error")
	}
}

func TestNewVectorLengthMismatch(t *testing.T) {
	dims := testDimensions(t)
	_, err := dims.NewVector(1, 2, 3)
	var mismatch *DimensionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
	if mismatch.Got != 3 || mismatch.Want != 2 {
		t.Fatalf("unexpected mismatch: %+v", mismatch)
	}
	if _, err := dims.NewVector(1); err == nil {
		t.Fatal("expected too few values error")
	}
	v, err := dims.NewVector(1, 2)
	require.NoError(t, err)
	require.Equal(t, Vector{1, 2}, v)
}

func TestEmptyVectorIsNaN(t *testing.T) {
	dims := testDimensions(t)
	v := dims.Empty()
	if len(v) != 2 || !math.IsNaN(v[0]) || !math.IsNaN(v[1]) || !v.IsNaN() {
		t.Fatalf("expected NaN vector, got %v", v)
	}
}

func TestFindUnknownDimension(t *testing.T) {
	dims := testDimensions(t)
	if i, err := dims.Find("CN"); err != nil || i != 1 {
		t.Fatalf("find CN: i=%d err=%v", i, err)
	}
	_, err := dims.Find("pH")
	var unknown *UnknownDimensionError
	if !errors.As(err, &unknown) || unknown.Name != "pH" {
		t.Fatalf("expected unknown dimension error, got %v", err)
	}
	got, err := dims.Value(Vector{3, 4}, "CN")
	if err != nil || got != 4 {
		t.Fatalf("value CN: got=%f err=%v", got, err)
	}
}

func TestVectorArithmetic(t *testing.T) {
	a := Vector{1, 4}
	b := Vector{3, 2}

	cases := []struct {
		name string
		got  Vector
		want Vector
	}{
		{"add", a.Add(b), Vector{4, 6}},
		{"sub", a.Sub(b), Vector{-2, 2}},
		{"scale", a.Scale(2), Vector{2, 8}},
		{"div", a.Div(2), Vector{0.5, 2}},
		{"min", Min(a, b), Vector{1, 2}},
		{"max", Max(a, b), Vector{3, 4}},
		{"center", Center(a, b), Vector{2, 3}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, tc.got); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", tc.name, diff)
		}
	}
	if a[0] != 1 || b[0] != 3 {
		t.Fatal("operands must not be modified")
	}
}

func TestEqualUsesDimensionTolerance(t *testing.T) {
	dims := testDimensions(t)
	a := Vector{10, 10}
	if !dims.Equal(a, Vector{10 + 5e-11, 10}) {
		t.Fatal("expected equality within tolerance")
	}
	if dims.Equal(a, Vector{10 + 1e-9, 10}) {
		t.Fatal("expected inequality outside tolerance")
	}
	acc := dims.Accuracy()
	if math.Abs(acc[0]-1e-10) > 1e-24 || math.Abs(acc[1]-5e-11) > 1e-24 {
		t.Fatalf("unexpected accuracy vector: %v", acc)
	}
}

func TestRangeIntersectUnion(t *testing.T) {
	a := Range{Min: Vector{0, 0}, Max: Vector{10, 10}}
	b := Range{Min: Vector{5, 12}, Max: Vector{15, 20}}

	inter := Intersect(a, b)
	if diff := cmp.Diff(Range{Min: Vector{5, 12}, Max: Vector{10, 10}}, inter); diff != "" {
		t.Fatalf("intersect mismatch (-want +got):\n%s", diff)
	}
	if !inter.Inverted() {
		t.Fatal("expected disjoint second dimension to invert the intersection")
	}
	union := Union(a, b)
	if diff := cmp.Diff(Range{Min: Vector{0, 0}, Max: Vector{15, 20}}, union); diff != "" {
		t.Fatalf("union mismatch (-want +got):\n%s", diff)
	}
	if union.Inverted() {
		t.Fatal("union must not be inverted")
	}
	if diff := cmp.Diff(Vector{7.5, 10}, union.Center()); diff != "" {
		t.Fatalf("center mismatch (-want +got):\n%s", diff)
	}
}

func TestRangeContainsCombinesDimensionsWithOr(t *testing.T) {
	r := Range{Min: Vector{0, 0}, Max: Vector{10, 10}}
	if !r.Contains(Vector{5, 5}) {
		t.Fatal("expected inner point to be contained")
	}
	if !r.Contains(Vector{5, 50}) {
		t.Fatal("expected point inside one dimension to be contained")
	}
	if !r.Contains(Vector{10, -1}) {
		t.Fatal("expected inclusive upper bound on first dimension")
	}
	if r.Contains(Vector{-1, 11}) {
		t.Fatal("expected point outside every dimension to be excluded")
	}
}

func TestHolderRefusesReload(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	holder := NewHolder(zap.New(core))

	if _, ok := holder.Current(); ok {
		t.Fatal("expected empty holder")
	}
	first, loaded, err := holder.Load([]Dimension{{Name: "BS", Min: 0, Max: 100}})
	require.NoError(t, err)
	require.True(t, loaded)

	second, loaded, err := holder.Load([]Dimension{{Name: "pH", Min: 3, Max: 9}, {Name: "CN", Min: 0, Max: 1}})
	require.NoError(t, err)
	require.False(t, loaded)
	require.Same(t, first, second)
	require.Equal(t, "[BS]", second.String())
	require.Equal(t, 1, logs.FilterMessage("dimension load aborted").Len())
}

func TestParseVectorAndFormat(t *testing.T) {
	dims := testDimensions(t)
	v, err := dims.ParseVector([]string{" 4.5", "12 "})
	require.NoError(t, err)
	require.Equal(t, Vector{4.5, 12}, v)
	require.Equal(t, "BS: 4.5\tCN: 12", dims.Format(v))

	_, err = dims.ParseVector([]string{"x", "1"})
	require.Error(t, err)
}

func TestPossibilityComputed(t *testing.T) {
	if NoPossibility().Computed() {
		t.Fatal("NaN possibility must not count as computed")
	}
	if !(Possibility{Site: Vector{1}, Value: 0}).Computed() {
		t.Fatal("zero possibility is a computed result")
	}
}

func TestWetnessIndex(t *testing.T) {
	cases := []struct {
		afc, gwt, want float64
	}{
		{afc: 0, gwt: 0, want: 1},
		{afc: 30, gwt: 3, want: 0.4},
		{afc: 15, gwt: 3, want: 0.2},
		{afc: 60, gwt: 0.75, want: 0.5},
		{afc: -5, gwt: 2, want: 0},
	}
	for _, tc := range cases {
		if got := WetnessIndex(tc.afc, tc.gwt); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("wetness(%f,%f): got=%f want=%f", tc.afc, tc.gwt, got, tc.want)
		}
	}
}
