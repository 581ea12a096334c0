// Package host provides concrete adapters behind the injected capability
// interfaces: an in-memory store for tests and dry runs, and a SQLite-backed
// world store for the CLI harness.
package host

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/PSM90/fuorid20-ryoma-assistant/internal/types"
)

// MemoryEntityStore keeps entities in a map. Safe for concurrent use.
type MemoryEntityStore struct {
	mu       sync.Mutex
	entities map[string]types.Entity
}

// NewMemoryEntityStore creates an empty in-memory entity store.
func NewMemoryEntityStore() *MemoryEntityStore {
	return &MemoryEntityStore{entities: make(map[string]types.Entity)}
}

func (s *MemoryEntityStore) Create(_ context.Context, kind string, data types.Entity) (*types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity := data
	entity.Kind = kind
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	s.entities[entity.ID] = entity
	out := entity
	return &out, nil
}

func (s *MemoryEntityStore) Update(_ context.Context, id string, patch types.EntityPatch) (*types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[id]
	if !ok {
		return nil, &types.NotFoundError{Ref: id}
	}
	applyPatch(&entity, patch)
	s.entities[id] = entity
	out := entity
	return &out, nil
}

func (s *MemoryEntityStore) Get(_ context.Context, id string) (*types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[id]
	if !ok {
		return nil, nil
	}
	out := entity
	return &out, nil
}

func (s *MemoryEntityStore) List(_ context.Context, kind string) ([]types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Entity
	for _, entity := range s.entities {
		if kind == "" || entity.Kind == kind {
			out = append(out, entity)
		}
	}
	return out, nil
}

// applyPatch applies a sparse patch: field merge, item additions, and
// case-insensitive item removals. Unmatched removal names are skipped.
func applyPatch(entity *types.Entity, patch types.EntityPatch) {
	if patch.Name != "" {
		entity.Name = patch.Name
	}
	if len(patch.Data) > 0 {
		if entity.Data == nil {
			entity.Data = make(map[string]interface{}, len(patch.Data))
		}
		for k, v := range patch.Data {
			entity.Data[k] = v
		}
	}
	if len(patch.RemoveItems) > 0 {
		drop := make(map[string]struct{}, len(patch.RemoveItems))
		for _, name := range patch.RemoveItems {
			drop[strings.ToLower(name)] = struct{}{}
		}
		kept := entity.Items[:0]
		for _, item := range entity.Items {
			if _, gone := drop[strings.ToLower(item.Name)]; !gone {
				kept = append(kept, item)
			}
		}
		entity.Items = kept
	}
	entity.Items = append(entity.Items, patch.AddItems...)
}

// MemorySettings is an in-memory key-value settings store.
type MemorySettings struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemorySettings creates an empty settings store.
func NewMemorySettings() *MemorySettings {
	return &MemorySettings{values: make(map[string]string)}
}

func (s *MemorySettings) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemorySettings) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// StaticLibrary resolves against a fixed in-memory list of library entries.
type StaticLibrary struct {
	entries []types.LibraryEntry
}

// NewStaticLibrary creates a resolver over fixed entries.
func NewStaticLibrary(entries []types.LibraryEntry) *StaticLibrary {
	return &StaticLibrary{entries: entries}
}

func (l *StaticLibrary) FindByName(_ context.Context, _ string, name string) (*types.LibraryEntry, error) {
	for _, entry := range l.entries {
		if strings.EqualFold(entry.Name, name) {
			out := entry
			return &out, nil
		}
	}
	return nil, nil
}

func (l *StaticLibrary) Search(_ context.Context, _ string, query string, limit int) ([]types.LibraryEntry, error) {
	query = strings.ToLower(query)
	var out []types.LibraryEntry
	for _, entry := range l.entries {
		if strings.Contains(strings.ToLower(entry.Name), query) {
			out = append(out, entry)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// RefParty summarizes the party from configured entity references. Missing
// references are skipped; an empty party yields an empty summary.
type RefParty struct {
	store types.EntityStore
	refs  []string
}

// NewRefParty creates a party provider over configured references.
func NewRefParty(store types.EntityStore, refs []string) *RefParty {
	return &RefParty{store: store, refs: refs}
}

func (p *RefParty) Summary(ctx context.Context) (string, error) {
	var lines []string
	for _, ref := range p.refs {
		entity, err := p.store.Get(ctx, ref)
		if err != nil || entity == nil {
			continue
		}
		line := entity.Name
		if level, ok := entity.Data["level"]; ok {
			line = fmt.Sprintf("%s (level %v)", entity.Name, level)
		}
		lines = append(lines, "- "+line)
	}
	return strings.Join(lines, "\n"), nil
}
