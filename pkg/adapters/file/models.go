// Package file loads models and tokens from the local filesystem.
//
// Model files are YAML (or JSON, which YAML accepts) documents describing one
// domain.Model each. They are decoded into a generic map first and then into
// the typed model with mapstructure, so unknown keys are reported instead of
// silently ignored.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/atsim/pkg/adapters/memory"
	"github.com/aretw0/atsim/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

var modelExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// DecodeModel parses and validates a single model document.
func DecodeModel(data []byte) (*domain.Model, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse model: %w", domain.ErrInvalidArgument, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty model document", domain.ErrInvalidArgument)
	}

	var model domain.Model
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &model,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: decode model: %w", domain.ErrInvalidArgument, err)
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	return &model, nil
}

// ReadModel loads one model file.
func ReadModel(path string) (*domain.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	m, err := DecodeModel(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return m, nil
}

// LoadModels reads every model file in dir (non-recursive) into a model store.
// Two files declaring the same model id are rejected.
func LoadModels(dir string) (*memory.Models, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !modelExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	store, _ := memory.NewModels()
	origin := make(map[int64]string, len(names))
	for _, name := range names {
		m, err := ReadModel(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if prev, dup := origin[m.ID]; dup {
			return nil, fmt.Errorf("%w: model id %d declared by both %s and %s", domain.ErrInvalidArgument, m.ID, prev, name)
		}
		origin[m.ID] = name
		if err := store.Put(m); err != nil {
			return nil, err
		}
	}
	return store, nil
}
