package region

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// countryAdcode marks the row representing the country itself. It is not a
// queryable region and is always skipped during seeding.
const countryAdcode = "100000"

// SeedResult summarizes one seeding pass over the reference dataset.
type SeedResult struct {
	Inserted  int
	Skipped   int
	Malformed int
}

// Seeder loads the bundled reference dataset into a Repository. Seeding is
// idempotent: rows whose name already exists are skipped.
type Seeder struct {
	repo   Repository
	logger zerolog.Logger
}

// NewSeeder creates a seeder writing to the given repository.
func NewSeeder(repo Repository, logger zerolog.Logger) *Seeder {
	return &Seeder{repo: repo, logger: logger}
}

// Seed reads the delimited dataset from r and inserts missing rows. The
// first line is a header and is skipped. Rows with fewer than 2 fields are
// counted as malformed and skipped.
func (s *Seeder) Seed(ctx context.Context, r io.Reader) (SeedResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // dataset rows vary between 2 and 3 fields

	var result SeedResult
	header := true

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("reading dataset: %w", err)
		}

		if header {
			header = false
			continue
		}

		if len(record) < 2 {
			result.Malformed++
			continue
		}

		row := Region{Name: record[0], Adcode: record[1]}
		if len(record) > 2 {
			row.Citycode = record[2]
		}

		if row.Adcode == countryAdcode {
			result.Skipped++
			continue
		}

		if _, err := s.repo.GetByName(ctx, row.Name); err == nil {
			result.Skipped++
			continue
		} else if !errors.Is(err, ErrRegionNotFound) {
			return result, err
		}

		if err := s.repo.Insert(ctx, row); err != nil {
			return result, err
		}
		result.Inserted++
	}

	s.logger.Info().
		Int("inserted", result.Inserted).
		Int("skipped", result.Skipped).
		Int("malformed", result.Malformed).
		Msg("region dataset seeded")

	return result, nil
}

// Reimport resets the table and seeds it again from r.
func (s *Seeder) Reimport(ctx context.Context, r io.Reader) (SeedResult, error) {
	if err := s.repo.Reset(ctx); err != nil {
		return SeedResult{}, fmt.Errorf("resetting region table: %w", err)
	}
	return s.Seed(ctx, r)
}
