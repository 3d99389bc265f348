package file

import (
	"fmt"
	"os"

	"github.com/aretw0/atsim/pkg/adapters/memory"
	"gopkg.in/yaml.v3"
)

// tokenFile is the on-disk shape of the static token table.
type tokenFile struct {
	Tokens map[string]int64 `yaml:"tokens"`
}

// LoadTokens reads a token table of the form:
//
//	tokens:
//	  some-opaque-token: 1
func LoadTokens(path string) (*memory.Tokens, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokens file: %w", err)
	}
	var tf tokenFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse tokens file: %w", err)
	}
	return memory.NewTokens(tf.Tokens), nil
}
