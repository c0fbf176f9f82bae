package niche

import (
	"errors"
	"fmt"
)

// ErrNoSpecies matches every NoSpeciesError via errors.Is.
var ErrNoSpecies = errors.New("community has no species")

// NoSpeciesError is returned when an envelope, possibility or optimum is
// requested from a community without member taxa.
type NoSpeciesError struct {
	CommunityID int
	Name        string
}

func (e *NoSpeciesError) Error() string {
	return fmt.Sprintf("%d: %s has no species", e.CommunityID, e.Name)
}

func (e *NoSpeciesError) Is(target error) bool {
	return target == ErrNoSpecies
}
