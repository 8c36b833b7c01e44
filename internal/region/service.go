package region

import (
	"context"
	"strings"
)

// Service provides name↔code lookups and fuzzy search over the region
// reference table.
type Service struct {
	repo Repository
}

// NewService creates a region lookup service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CodeForName resolves a region name to its administrative code by exact
// match. A miss returns ErrRegionNotFound; there is no fuzzy fallback.
func (s *Service) CodeForName(ctx context.Context, name string) (string, error) {
	r, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return "", err
	}
	return r.Adcode, nil
}

// NameForCode resolves an administrative code back to its region name.
func (s *Service) NameForCode(ctx context.Context, adcode string) (string, error) {
	r, err := s.repo.GetByCode(ctx, adcode)
	if err != nil {
		return "", err
	}
	return r.Name, nil
}

// Search returns regions matching the query substring, prefix matches
// first, then contains matches, stable within each group, duplicates
// excluded.
func (s *Service) Search(ctx context.Context, query string) ([]Region, error) {
	candidates, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(candidates))
	var prefix, contains []Region

	for _, r := range candidates {
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true

		if strings.HasPrefix(r.Name, query) {
			prefix = append(prefix, r)
		} else {
			contains = append(contains, r)
		}
	}

	return append(prefix, contains...), nil
}
