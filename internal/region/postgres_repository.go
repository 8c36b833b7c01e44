package region

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
//
// Expected schema:
//
//	CREATE TABLE regions (
//	    id       BIGSERIAL PRIMARY KEY,
//	    name     TEXT NOT NULL UNIQUE,
//	    adcode   TEXT NOT NULL,
//	    citycode TEXT NOT NULL DEFAULT ''
//	);
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL region repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetByName retrieves a region by exact name match.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*Region, error) {
	query := `SELECT name, adcode, citycode FROM regions WHERE name = $1`
	return r.scanRegion(ctx, query, name)
}

// GetByCode retrieves a region by administrative code.
func (r *PostgresRepository) GetByCode(ctx context.Context, adcode string) (*Region, error) {
	query := `SELECT name, adcode, citycode FROM regions WHERE adcode = $1 ORDER BY id LIMIT 1`
	return r.scanRegion(ctx, query, adcode)
}

func (r *PostgresRepository) scanRegion(ctx context.Context, query string, args ...interface{}) (*Region, error) {
	var region Region

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&region.Name,
		&region.Adcode,
		&region.Citycode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRegionNotFound
		}
		return nil, err
	}

	return &region, nil
}

// Search returns regions whose name contains the substring, in dataset order.
func (r *PostgresRepository) Search(ctx context.Context, substring string) ([]Region, error) {
	query := `
		SELECT name, adcode, citycode
		FROM regions
		WHERE name LIKE '%' || $1 || '%'
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, substring)
	if err != nil {
		return nil, fmt.Errorf("searching regions: %w", err)
	}
	defer rows.Close()

	var matches []Region
	for rows.Next() {
		var region Region
		if err := rows.Scan(&region.Name, &region.Adcode, &region.Citycode); err != nil {
			return nil, err
		}
		matches = append(matches, region)
	}

	return matches, rows.Err()
}

// Insert adds a region row.
func (r *PostgresRepository) Insert(ctx context.Context, row Region) error {
	query := `INSERT INTO regions (name, adcode, citycode) VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, row.Name, row.Adcode, row.Citycode)
	if err != nil {
		return fmt.Errorf("inserting region: %w", err)
	}

	return nil
}

// Count returns the number of rows in the table.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM regions`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Reset removes all rows.
func (r *PostgresRepository) Reset(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `TRUNCATE regions`)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
