package site

import "fmt"

// DimensionMismatchError reports a value sequence of the wrong length.
type DimensionMismatchError struct {
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	if e.Got < e.Want {
		return fmt.Sprintf("too few values for a site vector: got %d, want %d", e.Got, e.Want)
	}
	return fmt.Sprintf("too many values for a site vector: got %d, want %d", e.Got, e.Want)
}

// UnknownDimensionError reports a lookup of a name that is not configured.
type UnknownDimensionError struct {
	Name  string
	Known string
}

func (e *UnknownDimensionError) Error() string {
	return fmt.Sprintf("%s is not a variable of %s", e.Name, e.Known)
}

// ConfigurationError reports an attempt to replace an already loaded
// dimension set. It is logged, never returned.
type ConfigurationError struct {
	Loaded string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("site dimensions already populated with %s", e.Loaded)
}
