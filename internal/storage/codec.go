package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"bern/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned is the version stamp new records are written with.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeDimensions(set model.DimensionSet) ([]byte, error) {
	return json.Marshal(set)
}

func DecodeDimensions(data []byte) (model.DimensionSet, error) {
	var set model.DimensionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return model.DimensionSet{}, err
	}
	if err := checkVersion(set.VersionedRecord); err != nil {
		return model.DimensionSet{}, err
	}
	return set, nil
}

func EncodeTaxon(t model.TaxonRecord) ([]byte, error) {
	return json.Marshal(t)
}

func DecodeTaxon(data []byte) (model.TaxonRecord, error) {
	var taxon model.TaxonRecord
	if err := json.Unmarshal(data, &taxon); err != nil {
		return model.TaxonRecord{}, err
	}
	if err := checkVersion(taxon.VersionedRecord); err != nil {
		return model.TaxonRecord{}, err
	}
	return taxon, nil
}

func EncodeCommunity(c model.CommunityRecord) ([]byte, error) {
	return json.Marshal(c)
}

func DecodeCommunity(data []byte) (model.CommunityRecord, error) {
	var community model.CommunityRecord
	if err := json.Unmarshal(data, &community); err != nil {
		return model.CommunityRecord{}, err
	}
	if err := checkVersion(community.VersionedRecord); err != nil {
		return model.CommunityRecord{}, err
	}
	return community, nil
}

func EncodeLinks(links []model.LinkRecord) ([]byte, error) {
	return json.Marshal(links)
}

func DecodeLinks(data []byte) ([]model.LinkRecord, error) {
	var links []model.LinkRecord
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// EncodeOptimum refuses uncomputed optima: JSON has no NaN.
func EncodeOptimum(o model.OptimumRecord) ([]byte, error) {
	if math.IsNaN(o.Value) {
		return nil, fmt.Errorf("optimum of community %d is not computed", o.CommunityID)
	}
	return json.Marshal(o)
}

func DecodeOptimum(data []byte) (model.OptimumRecord, error) {
	var optimum model.OptimumRecord
	if err := json.Unmarshal(data, &optimum); err != nil {
		return model.OptimumRecord{}, err
	}
	if err := checkVersion(optimum.VersionedRecord); err != nil {
		return model.OptimumRecord{}, err
	}
	return optimum, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
