package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/tally/internal/accounts"
	"github.com/cleared-dev/tally/internal/activity"
	"github.com/cleared-dev/tally/internal/banks"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/currency"
	"github.com/cleared-dev/tally/internal/gitops"
	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/rules"
)

// actor is the name recorded in the activity log for CLI actions.
const actor = "tally"

// timeNow is replaced in tests.
var timeNow = time.Now

// project is an opened tally repo.
type project struct {
	root       string
	cfg        *config.Config
	accounts   *accounts.Service
	banks      *banks.Store
	rules      *rules.Store
	ledger     *ledger.Repository
	currencies *currency.Registry
	activity   *activity.Log
	now        func() time.Time
}

func openProject(root string) (*project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(abs, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("%s is not a tally repo (run tally init): %w", abs, err)
	}
	currencies, err := currency.NewRegistry(cfg.Currency)
	if err != nil {
		return nil, err
	}
	accts, err := accounts.Load(abs)
	if err != nil {
		return nil, err
	}
	bankStore, err := banks.Load(abs)
	if err != nil {
		return nil, err
	}
	ruleStore, err := rules.Load(abs)
	if err != nil {
		return nil, err
	}

	return &project{
		root:       abs,
		cfg:        cfg,
		accounts:   accts,
		banks:      bankStore,
		rules:      ruleStore,
		ledger:     ledger.NewRepository(abs),
		currencies: currencies,
		activity:   activity.Open(abs),
		now:        timeNow,
	}, nil
}

// logger builds the command logger from the repo config. A non-empty level
// overrides the configured one.
func (p *project) logger(w io.Writer, level string) zerolog.Logger {
	cfg := p.cfg.Log
	if strings.TrimSpace(level) != "" {
		cfg.Level = level
	}
	return logger.NewWithOutput(cfg, w)
}

// record appends an activity entry and commits the repo when auto-commit is
// on. It returns the commit hash, if any.
func (p *project) record(action activity.Action, details, reference, message string) (string, error) {
	entry := activity.Entry{
		Timestamp: p.now().UTC(),
		Actor:     actor,
		Action:    action,
		Details:   details,
		Reference: reference,
	}
	if err := p.activity.Append(entry); err != nil {
		return "", err
	}

	if !p.cfg.Git.AutoCommit || !gitops.IsRepo(p.root) {
		return "", nil
	}
	c := gitops.Committer{Dir: p.root, AuthorName: p.cfg.Git.AuthorName, AuthorEmail: p.cfg.Git.AuthorEmail}
	hash, err := c.Commit(message)
	if errors.Is(err, gitops.ErrNothingToCommit) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("auto-commit: %w", err)
	}
	return hash, nil
}
