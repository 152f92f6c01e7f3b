// Package storage persists compiled endpoint definitions as JSON on disk.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mhorvat/xapiport/internal/common"
	"github.com/mhorvat/xapiport/internal/models"
)

const definitionsFile = "definitions.json"

// DefinitionsStore provides file-backed persistence for the compiled
// definitions. Reads hand out the cached in-memory copy; writes are
// serialized so concurrent refresh attempts cannot interleave.
type DefinitionsStore struct {
	basePath string
	logger   *common.Logger

	mu     sync.RWMutex
	cached *models.DefinitionsStore
}

// NewDefinitionsStore creates the store and ensures its directory exists.
func NewDefinitionsStore(logger *common.Logger, basePath string) (*DefinitionsStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", basePath, err)
	}

	s := &DefinitionsStore{
		basePath: basePath,
		logger:   logger,
	}

	// Warm the cache from a previous run if one exists.
	if defs, err := s.readFile(); err == nil {
		s.cached = defs
		logger.Debug().
			Int("endpoints", len(defs.Endpoints)).
			Time("generated_at", defs.GeneratedAt).
			Msg("Loaded persisted endpoint definitions")
	}

	return s, nil
}

func (s *DefinitionsStore) filePath() string {
	return filepath.Join(s.basePath, definitionsFile)
}

func (s *DefinitionsStore) readFile() (*models.DefinitionsStore, error) {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("definitions not found")
		}
		return nil, fmt.Errorf("failed to read definitions: %w", err)
	}

	var defs models.DefinitionsStore
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse definitions: %w", err)
	}
	return &defs, nil
}

// Get returns the cached definitions, or an error when none were ever
// compiled.
func (s *DefinitionsStore) Get() (*models.DefinitionsStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil {
		return nil, fmt.Errorf("no endpoint definitions available")
	}
	return s.cached, nil
}

// Save persists the definitions atomically (temp file + rename) and updates
// the in-memory copy.
func (s *DefinitionsStore) Save(defs *models.DefinitionsStore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(defs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal definitions: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace definitions: %w", err)
	}

	s.cached = defs
	s.logger.Info().
		Int("endpoints", len(defs.Endpoints)).
		Str("path", s.filePath()).
		Msg("Persisted endpoint definitions")
	return nil
}

// Fresh reports whether the cached definitions are younger than maxAge.
func (s *DefinitionsStore) Fresh(maxAge time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil {
		return false
	}
	return common.IsFresh(s.cached.GeneratedAt, maxAge)
}
