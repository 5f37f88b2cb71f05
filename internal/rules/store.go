package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists a RuleSet.
type Store interface {
	Load(ctx context.Context) (RuleSet, error)
	Save(ctx context.Context, rs RuleSet) error
}

// =============================================================================
// JSON FILE STORE
// =============================================================================

// FileStore keeps the rules in a single JSON document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads the rules. A missing file yields {"Uncategorized": []}.
func (s *FileStore) Load(ctx context.Context) (RuleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewRuleSet(), nil
	}
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read category rules: %w", err)
	}

	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("failed to parse category rules %s: %w", s.path, err)
	}
	rs.ensureUncategorized()
	return rs, nil
}

// Save replaces the whole document. The write goes to a temp file in the
// same directory which is then renamed over the target, so readers never
// see a partial file.
func (s *FileStore) Save(ctx context.Context, rs RuleSet) error {
	rs = rs.Clone()
	rs.ensureUncategorized()

	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode category rules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".categories-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write category rules: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync category rules: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace category rules: %w", err)
	}
	return nil
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager serialises read-modify-write cycles on a Store. Two processes
// sharing one backing file still race; the last writer wins.
type Manager struct {
	store Store
	mu    sync.Mutex
}

// NewManager wraps store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Load returns the current rules.
func (m *Manager) Load(ctx context.Context) (RuleSet, error) {
	return m.store.Load(ctx)
}

// Save replaces the rules.
func (m *Manager) Save(ctx context.Context, rs RuleSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Save(ctx, rs)
}

// AddKeyword adds keyword to category and persists the result when
// something changed. It returns the updated rules and whether the keyword
// was added.
func (m *Manager) AddKeyword(ctx context.Context, category, keyword string) (RuleSet, bool, error) {
	if category == "" {
		return RuleSet{}, false, fmt.Errorf("category name is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rs, err := m.store.Load(ctx)
	if err != nil {
		return RuleSet{}, false, err
	}

	_, existed := rs.Keywords(category)
	added := rs.AddKeyword(category, keyword)
	if !added && existed {
		return rs, false, nil
	}

	if err := m.store.Save(ctx, rs); err != nil {
		return RuleSet{}, false, err
	}
	return rs, added, nil
}
