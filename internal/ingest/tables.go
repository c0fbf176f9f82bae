package ingest

import (
	"fmt"
	"io"
	"strings"

	"bern/internal/model"
	"bern/internal/site"
)

// ReadDimensions reads "name \t long name \t min max" rows in file order.
func ReadDimensions(in io.Reader) ([]site.Dimension, error) {
	var out []site.Dimension
	err := eachRow(in, "dimension", func(_ int, record []string) error {
		if len(record) < 3 {
			return fmt.Errorf("%w: got %d", ErrMissingColumns, len(record))
		}
		bounds, err := numbers(record[2:])
		if err != nil {
			return err
		}
		if len(bounds) < 2 {
			return fmt.Errorf("%w: min and max required", ErrMissingColumns)
		}
		out = append(out, site.Dimension{
			Name:     strings.TrimSpace(record[0]),
			LongName: strings.TrimSpace(record[1]),
			ID:       len(out),
			Min:      bounds[0],
			Max:      bounds[1],
		})
		return nil
	})
	return out, err
}

// ReadTaxa reads "id \t name \t pessMin optMin optMax pessMax" rows where
// each of the four blocks holds one value per dimension. Rows with a
// negative id are skipped.
func ReadTaxa(in io.Reader, dimensions int) ([]model.TaxonRecord, error) {
	var out []model.TaxonRecord
	err := eachRow(in, "taxon", func(_ int, record []string) error {
		if len(record) < 3 {
			return fmt.Errorf("%w: got %d", ErrMissingColumns, len(record))
		}
		id, err := parseID(record[0])
		if err != nil {
			return err
		}
		if id < 0 {
			return nil
		}
		values, err := numbers(record[2:])
		if err != nil {
			return err
		}
		if len(values) != 4*dimensions {
			return &site.DimensionMismatchError{Got: len(values), Want: 4 * dimensions}
		}
		d := dimensions
		out = append(out, model.TaxonRecord{
			ID:      id,
			Name:    strings.TrimSpace(record[1]),
			PessMin: values[0:d],
			OptMin:  values[d : 2*d],
			OptMax:  values[2*d : 3*d],
			PessMax: values[3*d : 4*d],
		})
		return nil
	})
	return out, err
}

// ReadCommunities reads "id \t name" rows; further columns are ignored.
func ReadCommunities(in io.Reader) ([]model.CommunityRecord, error) {
	var out []model.CommunityRecord
	err := eachRow(in, "community", func(_ int, record []string) error {
		if len(record) < 2 {
			return fmt.Errorf("%w: got %d", ErrMissingColumns, len(record))
		}
		id, err := parseID(record[0])
		if err != nil {
			return err
		}
		out = append(out, model.CommunityRecord{ID: id, Name: strings.TrimSpace(record[1])})
		return nil
	})
	return out, err
}

// ReadLinks reads "communityID taxonID steady" rows. All rows are returned;
// Steady is false where the flag is 0.
func ReadLinks(in io.Reader) ([]model.LinkRecord, error) {
	var out []model.LinkRecord
	err := eachRow(in, "link", func(_ int, record []string) error {
		values, err := numbers(record)
		if err != nil {
			return err
		}
		if len(values) < 3 {
			return fmt.Errorf("%w: community, taxon and steady flag required", ErrMissingColumns)
		}
		out = append(out, model.LinkRecord{
			CommunityID: int(values[0]),
			TaxonID:     int(values[1]),
			Steady:      values[2] != 0,
		})
		return nil
	})
	return out, err
}

// ReadSiteStates reads "id \t name \t values" rows with one value per
// dimension.
func ReadSiteStates(in io.Reader, dimensions int) ([]model.SiteState, error) {
	var out []model.SiteState
	err := eachRow(in, "site", func(_ int, record []string) error {
		if len(record) < 3 {
			return fmt.Errorf("%w: got %d", ErrMissingColumns, len(record))
		}
		id, err := parseID(record[0])
		if err != nil {
			return err
		}
		values, err := numbers(record[2:])
		if err != nil {
			return err
		}
		if len(values) != dimensions {
			return &site.DimensionMismatchError{Got: len(values), Want: dimensions}
		}
		out = append(out, model.SiteState{ID: id, Name: strings.TrimSpace(record[1]), Conditions: values})
		return nil
	})
	return out, err
}
