// Package preferences provides the per-task model selection store.
//
// A Store is created once per session, holds one model selection for every task type,
// and writes its full snapshot through a Persistence collaborator on every change.
package preferences

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/jonathan/taskhub/internal/catalog"
	"github.com/jonathan/taskhub/internal/types"
)

// StorageKey is the key the snapshot is persisted under.
const StorageKey = "model_preferences"

// ErrUnknownTask indicates a task type outside the supported set.
type ErrUnknownTask struct {
	Task types.TaskType
}

func (e *ErrUnknownTask) Error() string {
	return fmt.Sprintf("unknown task type: %q", string(e.Task))
}

// ErrUnknownModel indicates a model ID that is not in the catalog.
type ErrUnknownModel struct {
	ModelID string
}

func (e *ErrUnknownModel) Error() string {
	return fmt.Sprintf("unknown model: %q", e.ModelID)
}

// Store maps each task type to its selected model.
type Store struct {
	mu          sync.RWMutex
	prefs       types.PreferenceMap
	persistence Persistence
	catalog     *catalog.Catalog
	loadErr     error
}

// Defaults returns the built-in selection for every task.
func Defaults() types.PreferenceMap {
	prefs := make(types.PreferenceMap, len(types.AllTasks))
	for _, task := range types.AllTasks {
		prefs[task] = catalog.TaskDefault(task)
	}
	return prefs
}

// New creates a store and loads its persisted snapshot. A missing or malformed
// snapshot is not an error: the store starts from the built-in defaults instead.
// Entries for unknown tasks or models no longer in the catalog are dropped.
//
// When the persistence itself fails to read, the store also serves defaults but
// stays unloaded: LoadErr reports the failure and the next Set reloads first, so a
// transient read error never overwrites the saved snapshot.
func New(ctx context.Context, persistence Persistence, cat *catalog.Catalog) *Store {
	if persistence == nil {
		persistence = NewMemoryPersistence()
	}
	if cat == nil {
		cat = catalog.Default()
	}
	s := &Store{
		prefs:       Defaults(),
		persistence: persistence,
		catalog:     cat,
	}
	if err := s.load(ctx); err != nil {
		log.Printf("[preferences] Failed to load snapshot, using defaults: %v", err)
		s.loadErr = err
	}
	return s
}

// load replaces the selections with the persisted snapshot. Only a persistence read
// failure is returned; the selections are left untouched in that case.
func (s *Store) load(ctx context.Context) error {
	raw, found, err := s.persistence.Load(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}

	s.prefs = Defaults()
	if !found {
		return nil
	}

	var stored map[string]string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Printf("[preferences] Ignoring malformed snapshot: %v", err)
		return nil
	}

	for key, modelID := range stored {
		task := types.TaskType(key)
		if !task.Valid() {
			continue
		}
		if !s.catalog.Has(modelID) {
			log.Printf("[preferences] Dropping unknown model %q for %s", modelID, task)
			continue
		}
		s.prefs[task] = modelID
	}
	return nil
}

// LoadErr returns the read error that left the store unloaded, or nil once a
// snapshot (or its absence) has been read.
func (s *Store) LoadErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Get returns the selected model ID for task. Unknown tasks resolve to the catalog default.
func (s *Store) Get(task types.TaskType) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.prefs[task]; ok {
		return id
	}
	return catalog.TaskDefault(task)
}

// Model returns the descriptor of the selected model for task.
func (s *Store) Model(task types.TaskType) (types.ModelDescriptor, bool) {
	return s.catalog.Find(s.Get(task))
}

// Set selects modelID for task and persists the whole snapshot before returning.
// If the write fails the previous selection is kept and the error is returned.
func (s *Store) Set(ctx context.Context, task types.TaskType, modelID string) error {
	if !task.Valid() {
		return &ErrUnknownTask{Task: task}
	}
	if !s.catalog.Has(modelID) {
		return &ErrUnknownModel{ModelID: modelID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		if err := s.load(ctx); err != nil {
			return fmt.Errorf("refusing to overwrite unread snapshot: %w", err)
		}
		s.loadErr = nil
	}

	next := s.prefs.Clone()
	next[task] = modelID
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.prefs = next
	return nil
}

// Reset restores the built-in defaults and persists them.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Defaults()
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.prefs = next
	s.loadErr = nil
	return nil
}

// Snapshot returns a copy of the current selections.
func (s *Store) Snapshot() types.PreferenceMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Clone()
}

func (s *Store) persist(ctx context.Context, prefs types.PreferenceMap) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := s.persistence.Save(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
