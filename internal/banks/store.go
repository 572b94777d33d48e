// Package banks stores bank export configurations.
package banks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/tally/internal/model"
)

// FilePath is the bank configuration file relative to the repo root.
const FilePath = "banks/bank-configurations.yaml"

// ErrNotFound is returned for an unknown bank configuration id.
var ErrNotFound = errors.New("bank configuration not found")

type bankFile struct {
	Banks []model.BankConfiguration `yaml:"banks"`
}

// Store holds the bank configurations of a repo.
type Store struct {
	path  string
	banks []model.BankConfiguration
}

// Load reads the bank configuration file under repoRoot. A missing file is
// an empty store.
func Load(repoRoot string) (*Store, error) {
	s := &Store{path: filepath.Join(repoRoot, FilePath)}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading bank configurations: %w", err)
	}

	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing bank configurations %s: %w", s.path, err)
	}
	s.banks = f.Banks
	return s, nil
}

// Save writes the configurations back to disk.
func (s *Store) Save() error {
	data, err := yaml.Marshal(bankFile{Banks: s.banks})
	if err != nil {
		return fmt.Errorf("marshaling bank configurations: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating banks directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing bank configurations: %w", err)
	}
	return nil
}

// All returns every configuration in file order.
func (s *Store) All() []model.BankConfiguration {
	out := make([]model.BankConfiguration, len(s.banks))
	copy(out, s.banks)
	return out
}

// Get returns the configuration with the given id. It is not validated; the
// import pipeline reports configuration problems.
func (s *Store) Get(id string) (model.BankConfiguration, error) {
	for _, b := range s.banks {
		if b.ID == id {
			return b, nil
		}
	}
	return model.BankConfiguration{}, fmt.Errorf("%q: %w", id, ErrNotFound)
}

// Put adds b or replaces the configuration with the same id.
func (s *Store) Put(b model.BankConfiguration) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("bank configuration %q: %w", b.ID, err)
	}
	for i, existing := range s.banks {
		if existing.ID == b.ID {
			s.banks[i] = b
			return nil
		}
	}
	s.banks = append(s.banks, b)
	return nil
}
