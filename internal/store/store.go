package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"xrdisplay/internal/config"
)

// DatabaseName is the SQLite file created under the state directory.
const DatabaseName = "overrides.db"

// ErrNotFound is returned when an override id does not exist.
var ErrNotFound = errors.New("override not found")

// Override is one EDID override loaded into the kernel.
type Override struct {
	ID         int64
	RunID      string
	Vendor     string
	Model      string
	CardIndex  int
	Connector  string
	Token      uuid.UUID
	EDID       []byte
	AppliedAt  time.Time
	ReleasedAt *time.Time
}

// Active reports whether the override has not been released.
func (o Override) Active() bool {
	return o.ReleasedAt == nil
}

// Store manages override history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the override database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.StatePath(DatabaseName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordApplied inserts an active override row and returns it with its id.
func (s *Store) RecordApplied(ctx context.Context, o Override) (*Override, error) {
	if strings.TrimSpace(o.Connector) == "" {
		return nil, errors.New("record override: connector is required")
	}
	if len(o.EDID) == 0 {
		return nil, errors.New("record override: edid is required")
	}
	if o.AppliedAt.IsZero() {
		o.AppliedAt = time.Now().UTC()
	}
	o.ReleasedAt = nil

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO overrides (
            run_id, vendor, model, card_index, connector, token, edid, applied_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID,
		o.Vendor,
		o.Model,
		o.CardIndex,
		o.Connector,
		o.Token.String(),
		o.EDID,
		o.AppliedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert override: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("fetch override id: %w", err)
	}
	o.ID = id
	return &o, nil
}

// MarkReleased stamps the override as released. Releasing twice is a no-op.
func (s *Store) MarkReleased(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE overrides SET released_at = COALESCE(released_at, ?) WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("release override %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release override %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("release override %d: %w", id, ErrNotFound)
	}
	return nil
}

// Get returns the override with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*Override, error) {
	row := s.db.QueryRowContext(ctx, selectOverrides+` WHERE id = ?`, id)
	o, err := scanOverride(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get override %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get override %d: %w", id, err)
	}
	return o, nil
}

// Active returns every unreleased override, oldest first.
func (s *Store) Active(ctx context.Context) ([]*Override, error) {
	return s.query(ctx, selectOverrides+` WHERE released_at IS NULL ORDER BY id`)
}

// List returns the newest overrides first. A non-positive limit returns all rows.
func (s *Store) List(ctx context.Context, limit int) ([]*Override, error) {
	if limit <= 0 {
		return s.query(ctx, selectOverrides+` ORDER BY id DESC`)
	}
	return s.query(ctx, selectOverrides+` ORDER BY id DESC LIMIT ?`, limit)
}

// PruneReleased deletes released rows applied before cutoff.
func (s *Store) PruneReleased(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM overrides WHERE released_at IS NOT NULL AND applied_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune overrides: %w", err)
	}
	return res.RowsAffected()
}

const selectOverrides = `SELECT id, run_id, vendor, model, card_index, connector, token, edid, applied_at, released_at FROM overrides`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Override, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query overrides: %w", err)
	}
	defer rows.Close()

	var out []*Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}
	return out, nil
}

func scanOverride(row rowScanner) (*Override, error) {
	var (
		o        Override
		token    string
		applied  string
		released sql.NullString
	)
	if err := row.Scan(&o.ID, &o.RunID, &o.Vendor, &o.Model, &o.CardIndex, &o.Connector, &token, &o.EDID, &applied, &released); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("parse token for override %d: %w", o.ID, err)
	}
	o.Token = parsed
	if o.AppliedAt, err = parseTime(applied); err != nil {
		return nil, fmt.Errorf("parse applied_at for override %d: %w", o.ID, err)
	}
	if released.Valid && released.String != "" {
		ts, err := parseTime(released.String)
		if err != nil {
			return nil, fmt.Errorf("parse released_at for override %d: %w", o.ID, err)
		}
		o.ReleasedAt = &ts
	}
	return &o, nil
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
