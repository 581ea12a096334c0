package host

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

// WorldStore is the SQLite-backed world storage for the CLI harness. It
// implements EntityStore, SettingsStore and LibraryResolver over three
// tables: entities, settings and library_entries.
type WorldStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewWorldStore opens (or creates) the world database at path.
func NewWorldStore(path string) (*WorldStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal_mode: %w", err)
	}

	s := &WorldStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *WorldStore) Close() error {
	return s.db.Close()
}

func (s *WorldStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id   TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS library_entries (
		name     TEXT NOT NULL,
		library  TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		data     TEXT NOT NULL,
		PRIMARY KEY (library, name)
	);

	CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);
	CREATE INDEX IF NOT EXISTS idx_library_name ON library_entries(name COLLATE NOCASE);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// --- EntityStore ---

func (s *WorldStore) Create(ctx context.Context, kind string, data types.Entity) (*types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity := data
	entity.Kind = kind
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	blob, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize entity: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (id, kind, name, data) VALUES (?, ?, ?, ?)`,
		entity.ID, entity.Kind, entity.Name, string(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to insert entity: %w", err)
	}
	out := entity
	return &out, nil
}

func (s *WorldStore) Update(ctx context.Context, id string, patch types.EntityPatch) (*types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, err := s.getLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, &types.NotFoundError{Ref: id}
	}
	applyPatch(entity, patch)

	blob, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize entity: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE entities SET kind = ?, name = ?, data = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		entity.Kind, entity.Name, string(blob), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update entity: %w", err)
	}
	return entity, nil
}

func (s *WorldStore) Get(ctx context.Context, id string) (*types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, id)
}

func (s *WorldStore) getLocked(ctx context.Context, id string) (*types.Entity, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM entities WHERE id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	var entity types.Entity
	if err := json.Unmarshal([]byte(blob), &entity); err != nil {
		return nil, fmt.Errorf("failed to decode entity: %w", err)
	}
	return &entity, nil
}

func (s *WorldStore) List(ctx context.Context, kind string) ([]types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT data FROM entities`
	args := []interface{}{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var out []types.Entity
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		var entity types.Entity
		if err := json.Unmarshal([]byte(blob), &entity); err != nil {
			continue // skip unreadable rows
		}
		out = append(out, entity)
	}
	return out, rows.Err()
}

// --- SettingsStore ---

func (s *WorldStore) GetSetting(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

func (s *WorldStore) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting: %w", err)
	}
	return nil
}

// Settings adapts the store to the SettingsStore interface.
func (s *WorldStore) Settings() types.SettingsStore {
	return settingsAdapter{s}
}

type settingsAdapter struct{ s *WorldStore }

func (a settingsAdapter) Get(key string) (string, bool) { return a.s.GetSetting(key) }
func (a settingsAdapter) Set(key, value string) error   { return a.s.SetSetting(key, value) }

// --- LibraryResolver ---

func (s *WorldStore) FindByName(ctx context.Context, category, name string) (*types.LibraryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT name, library, data FROM library_entries WHERE name = ? COLLATE NOCASE`
	args := []interface{}{name}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	var entry types.LibraryEntry
	var blob string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&entry.Name, &entry.Library, &blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query library: %w", err)
	}
	if err := json.Unmarshal([]byte(blob), &entry.Data); err != nil {
		return nil, fmt.Errorf("failed to decode library entry: %w", err)
	}
	return &entry, nil
}

func (s *WorldStore) Search(ctx context.Context, category, queryStr string, limit int) ([]types.LibraryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	query := `SELECT name, library, data FROM library_entries WHERE name LIKE ?`
	args := []interface{}{"%" + queryStr + "%"}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search library: %w", err)
	}
	defer rows.Close()

	var out []types.LibraryEntry
	for rows.Next() {
		var entry types.LibraryEntry
		var blob string
		if err := rows.Scan(&entry.Name, &entry.Library, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan library entry: %w", err)
		}
		if err := json.Unmarshal([]byte(blob), &entry.Data); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// AddLibraryEntry inserts or replaces a library entry. Used by the CLI to
// seed content libraries.
func (s *WorldStore) AddLibraryEntry(entry types.LibraryEntry, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("failed to serialize library entry: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO library_entries (name, library, category, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(library, name) DO UPDATE SET category = excluded.category, data = excluded.data`,
		entry.Name, entry.Library, strings.ToLower(category), string(blob))
	if err != nil {
		return fmt.Errorf("failed to write library entry: %w", err)
	}
	return nil
}
