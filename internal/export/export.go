package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"bern/internal/site"
)

// Optimum is one community optimum as written to JSON.
type Optimum struct {
	CommunityID int         `json:"community_id"`
	Name        string      `json:"name"`
	RunID       string      `json:"run_id,omitempty"`
	Value       float64     `json:"value"`
	Conditions  []Condition `json:"conditions"`
}

// Condition is the value of one dimension, kept in dimension order.
type Condition struct {
	Dimension string  `json:"dimension"`
	Value     float64 `json:"value"`
}

// NewOptimum labels the site of p with the dimension names of dims.
func NewOptimum(dims *site.Dimensions, communityID int, name, runID string, p site.Possibility) (Optimum, error) {
	if len(p.Site) != dims.Len() {
		return Optimum{}, &site.DimensionMismatchError{Got: len(p.Site), Want: dims.Len()}
	}
	out := Optimum{CommunityID: communityID, Name: name, RunID: runID, Value: p.Value}
	for i, x := range p.Site {
		out.Conditions = append(out.Conditions, Condition{Dimension: dims.At(i).Name, Value: x})
	}
	return out, nil
}

// WriteOptimaJSON writes optima as an indented JSON array. Uncomputed optima
// cannot be represented and are rejected.
func WriteOptimaJSON(w io.Writer, optima []Optimum) error {
	for _, o := range optima {
		if math.IsNaN(o.Value) {
			return fmt.Errorf("optimum of community %d is not computed", o.CommunityID)
		}
	}
	if optima == nil {
		optima = []Optimum{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(optima)
}

// WritePossibilityMatrixCSV writes a site-major matrix with one row per site
// and one column per community. NaN cells are left empty.
func WritePossibilityMatrixCSV(w io.Writer, siteNames []string, communityIDs []int, matrix []float64) error {
	if len(matrix) != len(siteNames)*len(communityIDs) {
		return fmt.Errorf("matrix has %d cells, want %d sites x %d communities", len(matrix), len(siteNames), len(communityIDs))
	}

	writer := csv.NewWriter(w)
	header := make([]string, 0, len(communityIDs)+1)
	header = append(header, "site")
	for _, id := range communityIDs {
		header = append(header, strconv.Itoa(id))
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	nc := len(communityIDs)
	for s, name := range siteNames {
		row := make([]string, 0, nc+1)
		row = append(row, name)
		for _, v := range matrix[s*nc : (s+1)*nc] {
			if math.IsNaN(v) {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteFile creates path and passes it to write.
func WriteFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}
