package region

import "context"

// Repository provides access to the region reference table. Reads are safe
// for concurrent use; writes happen only during seeding or an explicit
// reset-and-reimport.
type Repository interface {
	// GetByName retrieves a region by exact name match.
	GetByName(ctx context.Context, name string) (*Region, error)

	// GetByCode retrieves a region by administrative code.
	GetByCode(ctx context.Context, adcode string) (*Region, error)

	// Search returns all regions whose name contains the substring, in
	// dataset order.
	Search(ctx context.Context, substring string) ([]Region, error)

	// Insert adds a region row.
	Insert(ctx context.Context, r Region) error

	// Count returns the number of rows in the table.
	Count(ctx context.Context) (int, error)

	// Reset removes all rows. Used by reset-and-reimport.
	Reset(ctx context.Context) error
}
