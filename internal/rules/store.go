package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/tally/internal/model"
)

// FilePath is the rule file relative to the repo root.
const FilePath = "rules/processing-rules.yaml"

type ruleFile struct {
	Rules []model.ProcessingRule `yaml:"rules"`
}

// Store holds the processing rules of a repo.
type Store struct {
	path  string
	rules []model.ProcessingRule
}

// Load reads the rule file under repoRoot. A missing file is an empty store.
func Load(repoRoot string) (*Store, error) {
	s := &Store{path: filepath.Join(repoRoot, FilePath)}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}

	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules %s: %w", s.path, err)
	}
	s.rules = f.Rules
	return s, nil
}

// Save writes the rules back to disk.
func (s *Store) Save() error {
	data, err := yaml.Marshal(ruleFile{Rules: s.rules})
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating rules directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}
	return nil
}

// All returns every rule in file order.
func (s *Store) All() []model.ProcessingRule {
	out := make([]model.ProcessingRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// ActiveForBank returns the active rules of a bank configuration in
// evaluation order.
func (s *Store) ActiveForBank(bankConfigID string) []model.ProcessingRule {
	var out []model.ProcessingRule
	for _, r := range s.rules {
		if r.Active && r.BankConfigID == bankConfigID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RuleOrder < out[j].RuleOrder })
	return out
}

// Put adds r, or replaces the rule with the same id. CreatedAt is kept from
// the replaced rule and UpdatedAt is set to now.
func (s *Store) Put(r model.ProcessingRule, now time.Time) error {
	if r.ID == "" {
		return errors.New("rule has no id")
	}
	r.UpdatedAt = now
	for i, existing := range s.rules {
		if existing.ID == r.ID {
			r.CreatedAt = existing.CreatedAt
			s.rules[i] = r
			return nil
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	s.rules = append(s.rules, r)
	return nil
}
