// Package sqlite stores drafts, records being authored, in a SQLite database
// so an annotation can span several CLI invocations or server sessions.
//
// Records are stored as their JSON document. Values read back are raw JSON
// shapes (json.Number, []any); callers rebuild them through the schema.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/arbml/masader-form/pkg/types"
)

// Backend is the draft store.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB
	path     string
}

// NewBackend returns a detached store. Call Attach before use.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens, creating if needed, the draft database in config.DataDir.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	path := filepath.Join(config.DataDir, dbFile)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	// One connection keeps writes serialized.
	db.SetMaxOpenConns(1)
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	b.db = db
	b.path = path
	b.attached = true
	return nil
}

// Detach closes the database. It is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	b.attached = false
	return err
}

// Path returns the database file path while attached.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Create stores a new draft and returns it.
func (b *Backend) Create(mode string, rec *types.Record) (*types.Draft, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating id: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	now := time.Now().UTC()
	d := &types.Draft{DraftID: id.String(), Mode: mode, Record: rec, CreatedAt: now, UpdatedAt: now}
	_, err = b.db.Exec(
		`INSERT INTO drafts (draft_id, mode, name, record, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.DraftID, d.Mode, d.Name(), string(data), formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("inserting draft: %w", err)
	}
	return d, nil
}

// Get returns the draft with id.
func (b *Backend) Get(id string) (*types.Draft, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	row := b.db.QueryRow(
		`SELECT draft_id, mode, record, created_at, updated_at FROM drafts WHERE draft_id = ?`, id)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrDraftNotFound, id)
	}
	return d, err
}

// Update replaces the record of draft id.
func (b *Backend) Update(id string, rec *types.Record) (*types.Draft, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	now := time.Now().UTC()
	name := rec.String(types.NameField)
	res, err := b.db.Exec(
		`UPDATE drafts SET name = ?, record = ?, updated_at = ? WHERE draft_id = ?`,
		name, string(data), formatTime(now), id)
	if err != nil {
		return nil, fmt.Errorf("updating draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrDraftNotFound, id)
	}

	row := b.db.QueryRow(
		`SELECT draft_id, mode, record, created_at, updated_at FROM drafts WHERE draft_id = ?`, id)
	d, err := scanDraft(row)
	if err != nil {
		return nil, err
	}
	d.Record = rec
	return d, nil
}

// List returns all drafts, most recently updated first.
func (b *Backend) List() ([]*types.Draft, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	rows, err := b.db.Query(
		`SELECT draft_id, mode, record, created_at, updated_at FROM drafts ORDER BY updated_at DESC, draft_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}
	defer rows.Close()

	var out []*types.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Delete removes draft id.
func (b *Backend) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	res, err := b.db.Exec(`DELETE FROM drafts WHERE draft_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", types.ErrDraftNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(s scanner) (*types.Draft, error) {
	var (
		d                types.Draft
		record           string
		created, updated string
	)
	if err := s.Scan(&d.DraftID, &d.Mode, &record, &created, &updated); err != nil {
		return nil, err
	}
	d.Record = types.NewRecord()
	if err := json.Unmarshal([]byte(record), d.Record); err != nil {
		return nil, fmt.Errorf("decoding draft %s: %w", d.DraftID, err)
	}
	var err error
	if d.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &d, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", types.ErrInvalidID, id)
	}
	return nil
}

// timeLayout is fixed width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}
