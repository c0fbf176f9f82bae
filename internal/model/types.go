package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type DimensionRecord struct {
	Name     string  `json:"name"`
	LongName string  `json:"long_name"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// DimensionSet is the persisted site space definition.
type DimensionSet struct {
	VersionedRecord
	Dimensions []DimensionRecord `json:"dimensions"`
}

type TaxonRecord struct {
	VersionedRecord
	ID      int       `json:"id"`
	Name    string    `json:"name"`
	PessMin []float64 `json:"pess_min"`
	OptMin  []float64 `json:"opt_min"`
	OptMax  []float64 `json:"opt_max"`
	PessMax []float64 `json:"pess_max"`
}

type CommunityRecord struct {
	VersionedRecord
	ID    int               `json:"id"`
	Name  string            `json:"name"`
	Extra map[string]string `json:"extra,omitempty"`
}

// LinkRecord assigns a taxon to a community. Only steady links are applied.
type LinkRecord struct {
	CommunityID int  `json:"community_id"`
	TaxonID     int  `json:"taxon_id"`
	Steady      bool `json:"steady"`
}

type OptimumRecord struct {
	VersionedRecord
	CommunityID int       `json:"community_id"`
	RunID       string    `json:"run_id"`
	Site        []float64 `json:"site"`
	Value       float64   `json:"value"`
}

// SiteState is a named set of site conditions, e.g. a plot or one year of a
// plot's time series.
type SiteState struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Conditions []float64 `json:"conditions"`
}

// Snapshot is the complete persisted content of one database.
type Snapshot struct {
	Dimensions  DimensionSet
	Taxa        []TaxonRecord
	Communities []CommunityRecord
	Links       []LinkRecord
	Optima      []OptimumRecord
}
