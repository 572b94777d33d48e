package rules

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cleared-dev/tally/internal/model"
)

// Engine prepares and applies rules for one bank configuration.
type Engine struct {
	mapping model.FieldMapping
}

// NewEngine creates an Engine resolving field names through mapping.
func NewEngine(mapping model.FieldMapping) *Engine {
	return &Engine{mapping: mapping}
}

// Prepare compiles the active rules and orders them by rule order, keeping
// the stored order for ties. Every compile error is reported.
func (e *Engine) Prepare(stored []model.ProcessingRule) ([]Rule, error) {
	active := make([]model.ProcessingRule, 0, len(stored))
	for _, pr := range stored {
		if pr.Active {
			active = append(active, pr)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].RuleOrder < active[j].RuleOrder
	})

	var errs []error
	compiled := make([]Rule, 0, len(active))
	for _, pr := range active {
		r, err := Compile(pr, e.mapping)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		compiled = append(compiled, r)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return compiled, nil
}

// ActionError is an action that could not be carried out on a row.
type ActionError struct {
	Rule  model.AppliedRule
	Field model.Field
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("rule %q could not update %s: %v", e.Rule.Name, e.Field, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Result is the outcome of applying rules to one row.
type Result struct {
	Ignored   bool
	IgnoredBy model.AppliedRule
	Applied   []model.AppliedRule
	Errors    []error
}

// Apply runs rules in order against tx, mutating it. Each rule sees the row as
// left by the rules before it. An Ignore rule stops evaluation. A failing
// action is recorded in Errors and does not stop the row.
func (e *Engine) Apply(tx *model.ImportTransaction, rules []Rule) Result {
	var res Result
	for _, r := range rules {
		meta := r.Info()
		if !matches(meta.When, tx) {
			continue
		}

		switch r := r.(type) {
		case Ignore:
			res.Ignored = true
			res.IgnoredBy = meta.applied()
			return res
		case SetValue:
			ran := false
			for _, a := range r.Assignments {
				if err := tx.Set(a.Field, a.Value); err != nil {
					res.Errors = append(res.Errors, &ActionError{Rule: meta.applied(), Field: a.Field, Err: err})
					continue
				}
				ran = true
			}
			if ran {
				res.Applied = append(res.Applied, meta.applied())
			}
		case Transform:
			ran := false
			for _, s := range r.Steps {
				if err := runStep(tx, s); err != nil {
					res.Errors = append(res.Errors, &ActionError{Rule: meta.applied(), Field: s.Target, Err: err})
					continue
				}
				ran = true
			}
			if ran {
				res.Applied = append(res.Applied, meta.applied())
			}
		}
	}
	return res
}

func runStep(tx *model.ImportTransaction, s Step) error {
	v, err := tx.Get(s.Field)
	if err != nil {
		return err
	}
	out, err := s.Func.Apply(v)
	if err != nil {
		return err
	}
	return tx.Set(s.Target, out)
}

func matches(set ConditionSet, tx *model.ImportTransaction) bool {
	if len(set.Conditions) == 0 {
		return true
	}
	for _, c := range set.Conditions {
		ok := c.Eval(c.Ref.read(tx))
		if set.Logic == LogicAny && ok {
			return true
		}
		if set.Logic == LogicAll && !ok {
			return false
		}
	}
	return set.Logic == LogicAll
}
