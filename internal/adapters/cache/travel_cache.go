package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"delivery-ops-service/internal/platform/obs"
	"delivery-ops-service/internal/ports"
)

const travelCacheSchema = `
CREATE TABLE IF NOT EXISTS travel_cache (
	origin TEXT NOT NULL,
	destination TEXT NOT NULL,
	duration_seconds REAL NOT NULL,
	distance_meters REAL NOT NULL,
	PRIMARY KEY (origin, destination)
);
`

// SQLiteTravelCache is a SQLite-backed cache of origin -> destination travel
// results. Keys are point strings produced by the caller.
type SQLiteTravelCache struct {
	DB  *sql.DB
	log *slog.Logger
}

// NewSQLiteTravelCache creates the cache table if needed.
func NewSQLiteTravelCache(ctx context.Context, db *sql.DB, log *slog.Logger) (*SQLiteTravelCache, error) {
	if db == nil {
		return nil, errors.New("travel cache: db is nil")
	}
	if _, err := db.ExecContext(ctx, travelCacheSchema); err != nil {
		return nil, fmt.Errorf("travel cache: create schema: %w", err)
	}
	return &SQLiteTravelCache{DB: db, log: log}, nil
}

// GetMany fetches cached results for one origin and many destinations.
func (s *SQLiteTravelCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.TravelResult, err error) {
	defer obs.Time(ctx, s.log, "travel.cache.GetMany")(&err)

	if origin == "" {
		return nil, errors.New("get travel cache: origin must not be empty")
	}

	seen := map[string]struct{}{}
	args := make([]any, 0, 1+len(destinations))
	args = append(args, origin)
	ph := make([]string, 0, len(destinations))
	for _, d := range destinations {
		d = strings.TrimSpace(d)
		if d == "" || d == origin {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		args = append(args, d)
		ph = append(ph, "?")
	}

	if len(ph) == 0 {
		return map[string]ports.TravelResult{}, nil
	}

	// Only the placeholder list is interpolated; values stay parameterized.
	q := fmt.Sprintf(`
	SELECT destination, duration_seconds, distance_meters
	FROM travel_cache
	WHERE origin = ? AND destination IN (%s);
	`, strings.Join(ph, ","))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get travel cache: query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ports.TravelResult, len(ph))
	for rows.Next() {
		var dest string
		var r ports.TravelResult
		if err := rows.Scan(&dest, &r.DurationSeconds, &r.DistanceMeters); err != nil {
			return nil, fmt.Errorf("get travel cache: scan: %w", err)
		}
		out[dest] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get travel cache: rows: %w", err)
	}

	return out, nil
}

// PutMany stores results for a single origin in one transaction.
func (s *SQLiteTravelCache) PutMany(ctx context.Context, origin string, results map[string]ports.TravelResult) (err error) {
	defer obs.Time(ctx, s.log, "travel.cache.PutMany")(&err)

	if origin == "" {
		return errors.New("put travel cache: origin must not be empty")
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put travel cache: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO travel_cache (origin, destination, duration_seconds, distance_meters)
	VALUES (?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("put travel cache: prepare: %w", err)
	}
	defer stmt.Close()

	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New("put travel cache: empty destination key")
		}
		if _, err := stmt.ExecContext(ctx, origin, dest, r.DurationSeconds, r.DistanceMeters); err != nil {
			return fmt.Errorf("put travel cache dest=%q: %w", dest, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put travel cache: commit: %w", err)
	}
	return nil
}
