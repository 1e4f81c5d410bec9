package modelstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/MateusRestier/insight-invest/internal/contracts"
)

// Store persists model artifacts as JSON files under a root directory,
// keyed by model name. Saves are write-then-publish: the artifact is
// written to a temp file and renamed into place, so a failed save never
// corrupts a previously valid artifact and a partial file is never
// visible under the final name.
type Store struct {
	dir string
	log zerolog.Logger
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir %s: %w", dir, err)
	}
	return &Store{
		dir: dir,
		log: log.With().Str("component", "modelstore").Logger(),
	}, nil
}

// Save atomically publishes the artifact under its name.
func (s *Store) Save(artifact *contracts.ModelArtifact) error {
	if artifact.Name == "" {
		return fmt.Errorf("artifact has no name: %w", contracts.ErrPersistence)
	}
	if artifact.TrainedAt.IsZero() {
		artifact.TrainedAt = time.Now()
	}

	data, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w: %w", artifact.Name, contracts.ErrPersistence, err)
	}

	final := s.path(artifact.Name)
	tmp, err := os.CreateTemp(s.dir, artifact.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact for %s: %w: %w", artifact.Name, contracts.ErrPersistence, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write artifact %s: %w: %w", artifact.Name, contracts.ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync artifact %s: %w: %w", artifact.Name, contracts.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close artifact %s: %w: %w", artifact.Name, contracts.ErrPersistence, err)
	}

	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish artifact %s: %w: %w", artifact.Name, contracts.ErrPersistence, err)
	}

	s.log.Info().
		Str("model", artifact.Name).
		Str("kind", string(artifact.Kind)).
		Int("features", len(artifact.FeatureNames)).
		Str("path", final).
		Msg("model artifact saved")

	return nil
}

// Load returns the artifact saved under name, or
// contracts.ErrDataUnavailable when no such artifact exists.
func (s *Store) Load(name string) (*contracts.ModelArtifact, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("model %s: %w", name, contracts.ErrDataUnavailable)
		}
		return nil, fmt.Errorf("read artifact %s: %w", name, err)
	}

	var artifact contracts.ModelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", name, err)
	}
	return &artifact, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}
