package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"bern/internal/model"
	"bern/internal/site"
)

// Paths names the tables of one data set. Relative paths are resolved
// against Dir when it is set. Empty paths are skipped.
type Paths struct {
	Dir         string `yaml:"dir" env:"BERN_DATA_DIR"`
	Dimensions  string `yaml:"dimensions"`
	Taxa        string `yaml:"taxa"`
	Communities string `yaml:"communities"`
	Links       string `yaml:"links"`
	Sites       string `yaml:"sites"`
}

func (p Paths) resolve(name string) string {
	if name == "" || p.Dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.Dir, name)
}

// Dataset is everything read from one set of tables.
type Dataset struct {
	Dimensions  []site.Dimension
	Taxa        []model.TaxonRecord
	Communities []model.CommunityRecord
	Links       []model.LinkRecord
	Sites       []model.SiteState
}

// Load reads the tables named by paths. When paths has no dimension table
// the inline definitions are used; one of both is required.
func Load(paths Paths, inline []site.Dimension) (Dataset, error) {
	var data Dataset
	if paths.Dimensions != "" {
		dims, err := readFile(paths.resolve(paths.Dimensions), ReadDimensions)
		if err != nil {
			return Dataset{}, err
		}
		data.Dimensions = dims
	} else {
		data.Dimensions = append([]site.Dimension(nil), inline...)
	}
	if len(data.Dimensions) == 0 {
		return Dataset{}, errors.New("no dimensions: set a dimension table or inline dimensions")
	}
	d := len(data.Dimensions)

	var err error
	if paths.Taxa != "" {
		data.Taxa, err = readFile(paths.resolve(paths.Taxa), func(in io.Reader) ([]model.TaxonRecord, error) {
			return ReadTaxa(in, d)
		})
		if err != nil {
			return Dataset{}, err
		}
	}
	if paths.Communities != "" {
		data.Communities, err = readFile(paths.resolve(paths.Communities), ReadCommunities)
		if err != nil {
			return Dataset{}, err
		}
	}
	if paths.Links != "" {
		data.Links, err = readFile(paths.resolve(paths.Links), ReadLinks)
		if err != nil {
			return Dataset{}, err
		}
	}
	if paths.Sites != "" {
		data.Sites, err = readFile(paths.resolve(paths.Sites), func(in io.Reader) ([]model.SiteState, error) {
			return ReadSiteStates(in, d)
		})
		if err != nil {
			return Dataset{}, err
		}
	}
	return data, nil
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	out, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// LoadSiteStates reads only the site table of paths, e.g. to evaluate sites
// against data restored from a store.
func LoadSiteStates(paths Paths, dimensions int) ([]model.SiteState, error) {
	if paths.Sites == "" {
		return nil, nil
	}
	return readFile(paths.resolve(paths.Sites), func(in io.Reader) ([]model.SiteState, error) {
		return ReadSiteStates(in, dimensions)
	})
}
