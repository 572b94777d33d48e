// Package rules compiles and applies user-defined import rules.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
)

// FieldRef names what a condition or action reads. Field is set for
// transaction fields; Column is set for source columns outside the bank's
// mapping, which conditions may read but actions may not write.
type FieldRef struct {
	Field  model.Field
	Column string
}

func (r FieldRef) String() string {
	if r.Field != "" {
		return string(r.Field)
	}
	return "column " + r.Column
}

func (r FieldRef) read(tx *model.ImportTransaction) string {
	if r.Field == "" {
		v, _ := tx.RawData.Get(r.Column)
		return v
	}
	v, _ := tx.Get(r.Field)
	return v
}

// Meta is what every rule kind shares.
type Meta struct {
	ID    string
	Name  string
	Order int
	When  ConditionSet
}

func (m Meta) applied() model.AppliedRule {
	return model.AppliedRule{ID: m.ID, Name: m.Name}
}

// Rule is one of SetValue, Transform or Ignore.
type Rule interface {
	Info() Meta
	isRule()
}

// Assignment writes a static value into a field.
type Assignment struct {
	Field model.Field
	Value string
}

// SetValue assigns static values to fields of matching rows.
type SetValue struct {
	Meta
	Assignments []Assignment
}

// Step transforms Field and writes the result to Target.
type Step struct {
	Field  model.Field
	Func   TransformFunc
	Target model.Field
}

// Transform rewrites fields of matching rows.
type Transform struct {
	Meta
	Steps []Step
}

// Ignore drops matching rows from the import.
type Ignore struct {
	Meta
}

func (r SetValue) Info() Meta  { return r.Meta }
func (r Transform) Info() Meta { return r.Meta }
func (r Ignore) Info() Meta    { return r.Meta }

func (SetValue) isRule()  {}
func (Transform) isRule() {}
func (Ignore) isRule()    {}

// Compile turns a stored rule into its typed form. Field names resolve
// against mapping: a name that is not a transaction field but is a mapped
// source column becomes the field that column feeds.
func Compile(pr model.ProcessingRule, mapping model.FieldMapping) (Rule, error) {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(pr.Name) == "" {
		fail("rule has no name")
	}

	meta := Meta{ID: pr.ID, Name: pr.Name, Order: pr.RuleOrder}
	logic, err := ParseLogic(pr.ConditionLogic)
	if err != nil {
		errs = append(errs, err)
	}
	meta.When.Logic = logic

	for i, sc := range pr.Conditions {
		c, err := compileCondition(sc, mapping)
		if err != nil {
			fail("condition %d: %w", i+1, err)
			continue
		}
		meta.When.Conditions = append(meta.When.Conditions, c)
	}

	var rule Rule
	switch pr.Type {
	case model.RuleRowIgnore:
		rule = Ignore{Meta: meta}

	case model.RuleFieldValueSet:
		sv := SetValue{Meta: meta}
		for i, a := range pr.Actions {
			if a.Type != model.ActionSetField {
				fail("action %d: %s does not fit a %s rule", i+1, a.Type, pr.Type)
				continue
			}
			f, err := resolveWritable(a.Field, mapping)
			if err != nil {
				fail("action %d: %w", i+1, err)
				continue
			}
			sv.Assignments = append(sv.Assignments, Assignment{Field: f, Value: a.Value})
		}
		if len(pr.Actions) == 0 {
			fail("rule has no actions")
		}
		rule = sv

	case model.RuleFieldTransform:
		tr := Transform{Meta: meta}
		for i, a := range pr.Actions {
			if a.Type != model.ActionTransformField {
				fail("action %d: %s does not fit a %s rule", i+1, a.Type, pr.Type)
				continue
			}
			step, err := compileStep(a, mapping)
			if err != nil {
				fail("action %d: %w", i+1, err)
				continue
			}
			tr.Steps = append(tr.Steps, step)
		}
		if len(pr.Actions) == 0 {
			fail("rule has no actions")
		}
		rule = tr

	default:
		fail("unknown rule type %q", pr.Type)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("rule %q (%s): %w", pr.Name, pr.ID, err)
	}
	return rule, nil
}

func compileCondition(sc model.RuleCondition, mapping model.FieldMapping) (Condition, error) {
	ref, field, err := resolveReadable(sc.Field, mapping)
	if err != nil {
		return Condition{}, err
	}
	op, err := ParseOperator(sc.Operator)
	if err != nil {
		return Condition{}, err
	}
	typ, explicit, err := ParseDataType(sc.DataType)
	if err != nil {
		return Condition{}, err
	}
	if !explicit {
		typ = defaultType(field)
	}
	caseSensitive := true
	if sc.CaseSensitive != nil {
		caseSensitive = *sc.CaseSensitive
	}
	return newCondition(ref, op, sc.Value, typ, caseSensitive)
}

func compileStep(a model.RuleAction, mapping model.FieldMapping) (Step, error) {
	src, err := resolveWritable(a.Field, mapping)
	if err != nil {
		return Step{}, err
	}
	fn, err := ParseTransform(a.Transform)
	if err != nil {
		return Step{}, err
	}
	target := src
	if strings.TrimSpace(a.TargetField) != "" {
		if target, err = resolveWritable(a.TargetField, mapping); err != nil {
			return Step{}, fmt.Errorf("target: %w", err)
		}
	}
	return Step{Field: src, Func: fn, Target: target}, nil
}

func defaultType(f model.Field) DataType {
	switch {
	case f.IsNumeric():
		return TypeNumber
	case f == model.FieldDate:
		return TypeDate
	}
	return TypeString
}

// resolveReadable returns what a condition reads and the field it stands
// for, if any. debit and credit read the raw cell of their mapped column.
func resolveReadable(name string, mapping model.FieldMapping) (FieldRef, model.Field, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return FieldRef{}, "", errors.New("no field")
	}
	f, ok := resolveField(name, mapping)
	switch {
	case !ok:
		return FieldRef{Column: name}, "", nil
	case !f.IsTransactionField():
		col, mapped := mapping.Column(f)
		if !mapped {
			col = name
		}
		return FieldRef{Column: col}, f, nil
	}
	return FieldRef{Field: f}, f, nil
}

func resolveWritable(name string, mapping model.FieldMapping) (model.Field, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("no field")
	}
	f, ok := resolveField(name, mapping)
	if !ok {
		return "", fmt.Errorf("%q is neither a transaction field nor a mapped column", name)
	}
	if !f.IsTransactionField() {
		return "", fmt.Errorf("%q is a %s source column and cannot be written, set amount instead", name, f)
	}
	return f, nil
}

func resolveField(name string, mapping model.FieldMapping) (model.Field, bool) {
	if f, ok := model.ParseField(name); ok {
		return f.Canonical(), true
	}
	return mapping.FieldForColumn(name)
}
