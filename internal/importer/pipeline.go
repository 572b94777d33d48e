// Package importer turns bank exports into a reviewed import queue and
// commits accepted rows to the ledger.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/mapper"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/rules"
	"github.com/cleared-dev/tally/internal/sheet"
)

// InputFile is one uploaded bank export.
type InputFile struct {
	Name   string
	Reader io.Reader
}

// ProgressFunc is called after each file with the fraction of files done.
type ProgressFunc func(done, total int)

// Outcome classifies a finished run.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeNoValid Outcome = "no_valid"
)

const duplicateWarning = "possible duplicate of a ledger transaction"

// Stats summarises a run.
type Stats struct {
	Files            int `json:"files"`
	TotalParsed      int `json:"totalParsed"` // includes skipped rows
	Valid            int `json:"valid"`
	WithRules        int `json:"withRules"`
	RuleApplications int `json:"ruleApplications"`
	Skipped          int `json:"skipped"`
	Duplicates       int `json:"duplicates"`
	Ready            int `json:"ready"`
	Warnings         int `json:"warnings"`
	Errors           int `json:"errors"`
}

// FileError is a file that could not be read. It never stops the run.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string {
	if errors.Is(e.Err, sheet.ErrNoData) {
		return fmt.Sprintf("%s: no data found", e.File)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// Result is the review queue of a run.
type Result struct {
	// Parsed holds every row not dropped by a rule, in file and row order.
	Parsed []model.ImportTransaction
	// Valid holds the rows of Parsed with a date, a description and a
	// numeric amount.
	Valid      []model.ImportTransaction
	FileErrors []FileError
	Stats      Stats
	Outcome    Outcome
	// Hints explain a no_valid outcome.
	Hints []string
}

// Diagnostic is a run that could not start or crashed. Error renders a
// multi-line message for the user.
type Diagnostic struct {
	Summary string
	Details []string
	Cause   error
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	b.WriteString(d.Summary)
	for _, line := range d.Details {
		b.WriteString("\n  - ")
		b.WriteString(line)
	}
	return b.String()
}

func (d *Diagnostic) Unwrap() error { return d.Cause }

func diagnose(summary string, err error) *Diagnostic {
	var details []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			details = append(details, line)
		}
	}
	return &Diagnostic{Summary: summary, Details: details, Cause: err}
}

// Options holds the optional collaborators of a Pipeline.
type Options struct {
	Accounts AccountChecker
	Readers  *sheet.Registry
	Now      func() time.Time
	Progress ProgressFunc
}

// Pipeline processes the exports of one bank.
type Pipeline struct {
	bank       model.BankConfiguration
	rules      []model.ProcessingRule
	existing   []model.LedgerTransaction
	currencies mapper.CurrencyResolver
	opts       Options
}

// NewPipeline creates a Pipeline. existing is the ledger used for duplicate
// detection.
func NewPipeline(bank model.BankConfiguration, stored []model.ProcessingRule, existing []model.LedgerTransaction, currencies mapper.CurrencyResolver, opts Options) *Pipeline {
	if opts.Readers == nil {
		opts.Readers = sheet.DefaultRegistry()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{bank: bank, rules: stored, existing: existing, currencies: currencies, opts: opts}
}

// fileResult is what one file contributes to a run.
type fileResult struct {
	name    string
	headers []string
	rows    int
	skipped int
	txns    []model.ImportTransaction
	err     error
}

// Process runs every file through mapping, rules, duplicate detection and
// validation. Unreadable files are reported in the result. A bad bank
// configuration, a bad rule set or a panic returns a *Diagnostic.
func (p *Pipeline) Process(ctx context.Context, files []InputFile) (res *Result, err error) {
	log := logger.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("import crashed")
			res = nil
			err = &Diagnostic{
				Summary: "import failed unexpectedly",
				Details: []string{fmt.Sprint(r), "no transactions were imported"},
			}
		}
	}()

	if verr := p.bank.Validate(); verr != nil {
		return nil, diagnose(fmt.Sprintf("bank configuration %q is invalid", p.bank.ID), verr)
	}

	engine := rules.NewEngine(p.bank.FieldMapping)
	compiled, rerr := engine.Prepare(p.rules)
	if rerr != nil {
		return nil, diagnose(fmt.Sprintf("processing rules for %q are invalid", p.bank.ID), rerr)
	}

	m := mapper.New(p.bank, p.currencies, p.opts.Now())
	log.Info().Str("bank", p.bank.ID).Int("files", len(files)).Int("rules", len(compiled)).Msg("import started")

	results := make([]fileResult, 0, len(files))
	for i, f := range files {
		if cerr := ctx.Err(); cerr != nil {
			return nil, fmt.Errorf("import cancelled: %w", cerr)
		}
		fr := p.processFile(log, i, f, m, engine, compiled)
		results = append(results, fr)
		if fr.err != nil {
			log.Warn().Str("file", f.Name).Err(fr.err).Msg("file skipped")
		} else {
			log.Info().Str("file", f.Name).Int("rows", fr.rows).Int("skipped", fr.skipped).Msg("file processed")
		}
		if p.opts.Progress != nil {
			p.opts.Progress(i+1, len(files))
		}
	}

	res = collect(results)
	if res.Outcome == OutcomeNoValid {
		res.Hints = p.hints(results, res)
	}
	log.Info().
		Int("parsed", res.Stats.TotalParsed).
		Int("valid", res.Stats.Valid).
		Int("skipped", res.Stats.Skipped).
		Int("duplicates", res.Stats.Duplicates).
		Str("outcome", string(res.Outcome)).
		Msg("import finished")
	return res, nil
}

func (p *Pipeline) processFile(log zerolog.Logger, fileIndex int, f InputFile, m *mapper.Mapper, engine *rules.Engine, compiled []rules.Rule) fileResult {
	fr := fileResult{name: f.Name}

	rd, err := p.opts.Readers.ForFile(f.Name)
	if err != nil {
		fr.err = err
		return fr
	}
	rows, err := rd.Read(f.Reader, sheet.OptionsFor(p.bank.Settings))
	if err != nil {
		fr.err = err
		return fr
	}
	fr.headers = rows[0].Columns
	log.Debug().Str("file", f.Name).Str("format", rd.Format()).Int("rows", len(rows)).Msg("file read")

	for rowIndex, row := range rows {
		fr.rows++
		tx, ignored := p.processRow(log, f.Name, fileIndex, rowIndex, row, m, engine, compiled)
		if ignored {
			fr.skipped++
			continue
		}
		fr.txns = append(fr.txns, tx)
	}
	return fr
}

func (p *Pipeline) processRow(log zerolog.Logger, fileName string, fileIndex, rowIndex int, row model.RawRow, m *mapper.Mapper, engine *rules.Engine, compiled []rules.Rule) (tx model.ImportTransaction, ignored bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("file", fileName).Int("row", rowIndex).Interface("panic", r).Msg("row crashed")
			tx.Validation.Errors = append(tx.Validation.Errors, fmt.Sprintf("internal error: %v", r))
			tx.Status = model.ImportError
			ignored = false
		}
	}()

	tx = m.MapRow(row, fileIndex, rowIndex)
	tx.FileName = fileName

	applied := engine.Apply(&tx, compiled)
	if applied.Ignored {
		log.Debug().Str("file", fileName).Int("row", rowIndex).Str("rule", applied.IgnoredBy.Name).Msg("row skipped by rule")
		return tx, true
	}
	tx.RulesApplied = applied.Applied

	tx.IsDuplicate = IsDuplicate(tx, p.existing)
	tx.Validation = Validate(tx, p.opts.Accounts)
	for _, aerr := range applied.Errors {
		tx.Validation.Warnings = append(tx.Validation.Warnings, aerr.Error())
	}
	if tx.IsDuplicate {
		tx.Validation.Warnings = append(tx.Validation.Warnings, duplicateWarning)
	}
	tx.Status = DeriveStatus(tx.Validation, tx.IsDuplicate)
	return tx, false
}

// collect folds per-file results into the run result.
func collect(results []fileResult) *Result {
	res := &Result{}
	for _, fr := range results {
		res.Stats.Files++
		if fr.err != nil {
			res.FileErrors = append(res.FileErrors, FileError{File: fr.name, Err: fr.err})
			continue
		}
		res.Stats.TotalParsed += fr.rows
		res.Stats.Skipped += fr.skipped
		for _, tx := range fr.txns {
			res.Parsed = append(res.Parsed, tx)
			res.Stats = res.Stats.add(tx)
			if complete(tx) {
				res.Valid = append(res.Valid, tx)
			}
		}
	}

	res.Outcome = OutcomeOK
	if len(res.Valid) == 0 {
		res.Outcome = OutcomeNoValid
	}
	return res
}

func (s Stats) add(tx model.ImportTransaction) Stats {
	if complete(tx) {
		s.Valid++
	}
	if len(tx.RulesApplied) > 0 {
		s.WithRules++
		s.RuleApplications += len(tx.RulesApplied)
	}
	if tx.IsDuplicate {
		s.Duplicates++
	}
	switch tx.Status {
	case model.ImportReady:
		s.Ready++
	case model.ImportWarning:
		s.Warnings++
	case model.ImportError:
		s.Errors++
	}
	return s
}

// complete reports whether a row can be shown for review.
func complete(tx model.ImportTransaction) bool {
	return tx.Date != "" && strings.TrimSpace(tx.Description) != "" && tx.Amount.Valid
}
