// Package region maps human-readable region names to provider
// administrative codes and back, backed by a reference dataset seeded once
// at startup.
package region

import "errors"

// Region errors.
var (
	ErrRegionNotFound = errors.New("region not found")
)

// Region is one row of the reference dataset.
type Region struct {
	// Name is the human-readable region name, unique within the table.
	Name string

	// Adcode is the provider administrative code used for weather queries.
	Adcode string

	// Citycode is the provider city code, empty for some rows.
	Citycode string
}
