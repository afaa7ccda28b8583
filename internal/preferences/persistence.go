package preferences

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// Persistence is the key/value collaborator the store reads and writes its snapshot
// through. Implementations must be safe for concurrent use.
type Persistence interface {
	// Load returns the value stored under key. found is false when the key is absent.
	Load(ctx context.Context, key string) (value string, found bool, err error)
	// Save stores value under key, replacing any previous value.
	Save(ctx context.Context, key, value string) error
}

// MemoryPersistence keeps values in process memory.
type MemoryPersistence struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryPersistence creates an empty in-memory persistence.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{data: make(map[string]string)}
}

// Load implements Persistence.
func (m *MemoryPersistence) Load(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Save implements Persistence.
func (m *MemoryPersistence) Save(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// FilePersistence stores each key as a file in a directory.
type FilePersistence struct {
	dir string
	mu  sync.Mutex
}

// NewFilePersistence creates a file-backed persistence rooted at dir, creating it if needed.
func NewFilePersistence(dir string) (*FilePersistence, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &FilePersistence{dir: dir}, nil
}

// path escapes key reversibly, so distinct keys never share a file and no key leaves dir.
func (p *FilePersistence) path(key string) string {
	return filepath.Join(p.dir, url.QueryEscape(key)+".json")
}

// Load implements Persistence.
func (p *FilePersistence) Load(_ context.Context, key string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Save implements Persistence. The value is written to a temporary file and renamed
// into place so a reader never sees a half-written snapshot.
func (p *FilePersistence) Save(_ context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	target := p.path(key)
	tmp, err := os.CreateTemp(p.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

// Scoped prefixes every key with a namespace, so several stores can share one backend.
type Scoped struct {
	inner     Persistence
	namespace string
}

// NewScoped wraps inner so that keys become "<namespace>:<key>".
func NewScoped(inner Persistence, namespace string) *Scoped {
	return &Scoped{inner: inner, namespace: namespace}
}

func (s *Scoped) key(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}

// Load implements Persistence.
func (s *Scoped) Load(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Load(ctx, s.key(key))
}

// Save implements Persistence.
func (s *Scoped) Save(ctx context.Context, key, value string) error {
	return s.inner.Save(ctx, s.key(key), value)
}
