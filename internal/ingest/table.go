package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMissingColumns is wrapped by row errors when a row is too short.
var ErrMissingColumns = errors.New("missing columns")

// newTableReader treats lines starting with '#' as comments, column headers
// included. Names may contain spaces, so the leading columns are split on
// tabs and trailing numbers on any whitespace.
func newTableReader(in io.Reader) *csv.Reader {
	reader := csv.NewReader(in)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader
}

// eachRow calls fn for every non blank record with its line number.
func eachRow(in io.Reader, table string, fn func(line int, record []string) error) error {
	reader := newTableReader(in)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s row: %w", table, err)
		}
		if blankRecord(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		if err := fn(line, record); err != nil {
			return fmt.Errorf("%s row %d: %w", table, line, err)
		}
	}
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// numbers splits the trailing columns of a record into float values.
func numbers(fields []string) ([]float64, error) {
	var out []float64
	for _, token := range strings.Fields(strings.Join(fields, " ")) {
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseID(field string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return 0, fmt.Errorf("parse id: %w", err)
	}
	return id, nil
}
