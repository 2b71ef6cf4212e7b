// Package store persists indicator tables in PostgreSQL so analysis can run
// from an imported database instead of the source files.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/lib/pq"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS indicator_values (
	id        BIGSERIAL PRIMARY KEY,
	indicator TEXT NOT NULL,
	state     TEXT NOT NULL,
	year      INTEGER NOT NULL,
	value     DOUBLE PRECISION,
	source    TEXT NOT NULL DEFAULT '',
	UNIQUE (indicator, state, year)
)`

const upsertValue = `
INSERT INTO indicator_values (indicator, state, year, value, source)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (indicator, state, year)
DO UPDATE SET value = EXCLUDED.value, source = EXCLUDED.source`

const selectValues = `
SELECT indicator, state, year, value, source
FROM indicator_values
WHERE indicator = ANY($1)
ORDER BY indicator, state, year`

// Store reads and writes indicator values.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, apperrors.NewStorageError("error opening database", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("error connecting to database", err)
	}
	return New(db, logger), nil
}

// New wraps an open database handle.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: infrastructure.WithComponent(logger, "store")}
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Migrate creates the indicator_values table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperrors.NewStorageError("failed to create indicator_values", err)
	}
	return nil
}

// SaveTables upserts every record of every table in one transaction and
// returns the number of rows written.
func (s *Store) SaveTables(ctx context.Context, tables []*domain.IndicatorTable) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertValue)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to prepare upsert", err)
	}
	defer stmt.Close()

	written := 0
	for _, t := range tables {
		for _, rec := range t.Records() {
			if _, err := stmt.ExecContext(ctx, t.Name(), rec.State, rec.Year, toNull(rec.Value), t.Source()); err != nil {
				return 0, apperrors.NewStorageError(fmt.Sprintf("failed to upsert %s %s", t.Name(), rec.Key), err)
			}
			written++
		}
		s.logger.InfoContext(ctx, "indicator saved",
			slog.String("indicator", t.Name()),
			slog.Int("records", t.Len()))
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.NewStorageError("failed to commit", err)
	}
	return written, nil
}

// LoadTables reads the named indicators. Every name must have at least one
// stored row.
func (s *Store) LoadTables(ctx context.Context, names []string) ([]*domain.IndicatorTable, error) {
	rows, err := s.db.QueryContext(ctx, selectValues, pq.Array(names))
	if err != nil {
		return nil, apperrors.NewStorageError("failed to query indicator values", err)
	}
	defer rows.Close()

	records := make(map[string][]domain.IndicatorRecord)
	sources := make(map[string]string)
	for rows.Next() {
		var (
			name, state, source string
			year                int
			value               sql.NullFloat64
		)
		if err := rows.Scan(&name, &state, &year, &value, &source); err != nil {
			return nil, apperrors.NewStorageError("failed to scan indicator value", err)
		}
		records[name] = append(records[name], domain.IndicatorRecord{
			Key:   domain.Key{State: state, Year: year},
			Value: fromNull(value),
		})
		sources[name] = source
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to read indicator values", err)
	}

	tables := make([]*domain.IndicatorTable, 0, len(names))
	for _, name := range names {
		recs, ok := records[name]
		if !ok {
			return nil, apperrors.NewNotFoundError("indicator " + name)
		}
		t, err := domain.NewIndicatorTable(name, sources[name], recs)
		if err != nil {
			return nil, apperrors.NewStorageError("stored indicator "+name, err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// Indicators lists the stored indicator names.
func (s *Store) Indicators(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT indicator FROM indicator_values`)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list indicators", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.NewStorageError("failed to scan indicator", err)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, rows.Err()
}

// toNull stores missing values as SQL NULL.
func toNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
