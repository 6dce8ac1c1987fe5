// Package trackers loads external bug tracker definitions from the
// configured directory and turns them into live connectors.
package trackers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/connectors/github"
	"github.com/ternarybob/nexo/internal/connectors/resttracker"
	"github.com/ternarybob/nexo/internal/interfaces"
	"github.com/ternarybob/nexo/internal/models"
	"gopkg.in/yaml.v3"
)

// Service implements interfaces.TrackerService.
type Service struct {
	storage  interfaces.TrackerStorage
	logger   arbor.ILogger
	validate *validator.Validate

	mu         sync.RWMutex
	defs       map[string]*models.TrackerDefinition
	connectors map[string]interfaces.TrackerConnector
}

// NewService creates a tracker service backed by the given storage.
func NewService(storage interfaces.TrackerStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage:    storage,
		logger:     logger,
		validate:   validator.New(),
		defs:       make(map[string]*models.TrackerDefinition),
		connectors: make(map[string]interfaces.TrackerConnector),
	}
}

// LoadFromDir loads tracker definitions from TOML and YAML files in dirPath.
// Invalid files are logged and skipped; a missing directory is not an error.
func (s *Service) LoadFromDir(ctx context.Context, dirPath string) error {
	s.logger.Debug().Str("dir", dirPath).Msg("Loading tracker definitions")

	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		s.logger.Debug().Str("dir", dirPath).Msg("Trackers directory does not exist, skipping")
		return nil
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read trackers directory: %w", err)
	}

	loadedCount := 0
	errorCount := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".toml" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		filePath := filepath.Join(dirPath, entry.Name())
		def, err := s.parseFile(filePath, ext)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to load tracker definition")
			errorCount++
			continue
		}

		now := time.Now()
		if def.CreatedAt.IsZero() {
			def.CreatedAt = now
		}
		def.UpdatedAt = now

		if err := s.storage.SaveTracker(ctx, def); err != nil {
			s.logger.Warn().Err(err).Str("tracker", def.ID).Msg("Failed to persist tracker definition")
		}

		s.mu.Lock()
		s.defs[def.ID] = def
		delete(s.connectors, def.ID) // Drop any stale connector for a reloaded definition
		s.mu.Unlock()

		loadedCount++
	}

	s.logger.Info().
		Int("loaded", loadedCount).
		Int("errors", errorCount).
		Str("dir", dirPath).
		Msg("Tracker definitions loaded")

	return nil
}

func (s *Service) parseFile(path, ext string) (*models.TrackerDefinition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var def models.TrackerDefinition
	switch ext {
	case ".toml":
		if err := toml.Unmarshal(content, &def); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(content, &def); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := s.validate.Struct(&def); err != nil {
		return nil, fmt.Errorf("invalid tracker definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	return &def, nil
}

// ListTrackers returns all loaded tracker definitions.
func (s *Service) ListTrackers() []*models.TrackerDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.TrackerDefinition, 0, len(s.defs))
	for _, def := range s.defs {
		result = append(result, def)
	}
	return result
}

// GetTracker returns one definition by id.
func (s *Service) GetTracker(id string) (*models.TrackerDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.defs[id]
	if !ok {
		return nil, fmt.Errorf("tracker not found: %s", id)
	}
	return def, nil
}

// Connector returns a live connector for the tracker, building and caching
// it on first use.
func (s *Service) Connector(id string) (interfaces.TrackerConnector, error) {
	s.mu.RLock()
	if conn, ok := s.connectors[id]; ok {
		s.mu.RUnlock()
		return conn, nil
	}
	def, ok := s.defs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("tracker not found: %s", id)
	}

	conn, err := buildConnector(def)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.connectors[id] = conn
	s.mu.Unlock()

	return conn, nil
}

func buildConnector(def *models.TrackerDefinition) (interfaces.TrackerConnector, error) {
	switch def.Type {
	case models.TrackerTypeGitHub:
		return github.NewConnector(def)
	case models.TrackerTypeREST:
		return resttracker.NewConnector(def)
	default:
		return nil, fmt.Errorf("unsupported tracker type: %s", def.Type)
	}
}

// Ensure interface compliance
var _ interfaces.TrackerService = (*Service)(nil)
