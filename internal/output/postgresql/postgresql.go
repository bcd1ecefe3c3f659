package postgresql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // Register the pgx database/sql driver

	"github.com/manifest-network/stxgen/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	insertRecordQuery = `INSERT INTO stacks_records (id, created_at, kind, blob)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING`

	latestRecordQuery = `SELECT id, created_at, kind, blob::text
FROM stacks_records
ORDER BY id DESC
LIMIT 1`

	missingRecordIdsQuery = `SELECT s.id
FROM generate_series(1, (SELECT COALESCE(MAX(id), 0) FROM stacks_records)) AS s(id)
LEFT JOIN stacks_records r ON r.id = s.id
WHERE r.id IS NULL
ORDER BY s.id`
)

// PostgresOutputHandler stores records in the stacks_records table.
type PostgresOutputHandler struct {
	db *sql.DB
}

// NewPostgresOutputHandler connects to connString and applies pending migrations.
func NewPostgresOutputHandler(ctx context.Context, connString string) (*PostgresOutputHandler, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return NewPostgresOutputHandlerFromDB(db), nil
}

// NewPostgresOutputHandlerFromDB wraps an already migrated database.
func NewPostgresOutputHandlerFromDB(db *sql.DB) *PostgresOutputHandler {
	return &PostgresOutputHandler{db: db}
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err == nil {
		slog.Debug("Database schema ready", "version", version, "dirty", dirty)
	}
	return nil
}

// WriteRecord inserts a record, ignoring ids that are already stored.
func (h *PostgresOutputHandler) WriteRecord(ctx context.Context, record *models.Record) error {
	var blob any
	if record.Blob != nil {
		blob = *record.Blob
	}

	_, err := h.db.ExecContext(ctx, insertRecordQuery,
		int64(record.ID), record.CreatedAt, string(record.Kind), blob)
	if err != nil {
		return fmt.Errorf("failed to insert record %d: %w", record.ID, err)
	}
	return nil
}

// GetLatestRecord returns the record with the highest id, or nil when the
// table is empty. The blob is returned exactly as it was written.
func (h *PostgresOutputHandler) GetLatestRecord(ctx context.Context) (*models.Record, error) {
	var (
		id        int64
		createdAt string
		kind      string
		blob      sql.NullString
	)

	err := h.db.QueryRowContext(ctx, latestRecordQuery).Scan(&id, &createdAt, &kind, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest record: %w", err)
	}

	recordKind, err := models.ParseRecordKind(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latest record: %w", err)
	}

	record := &models.Record{
		ID:        uint64(id),
		CreatedAt: createdAt,
		Kind:      recordKind,
	}
	if blob.Valid {
		record.Blob = &blob.String
	}
	return record, nil
}

// GetMissingRecordIds returns the ids between 1 and the latest stored id that
// have no record.
func (h *PostgresOutputHandler) GetMissingRecordIds(ctx context.Context) ([]uint64, error) {
	rows, err := h.db.QueryContext(ctx, missingRecordIdsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query missing record ids: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan missing record id: %w", err)
		}
		ids = append(ids, uint64(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate missing record ids: %w", err)
	}
	return ids, nil
}

// Close closes the database connection pool.
func (h *PostgresOutputHandler) Close() error {
	return h.db.Close()
}
