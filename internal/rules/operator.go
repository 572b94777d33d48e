package rules

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/mapper"
)

// Operator is a condition comparison.
type Operator uint8

const (
	OpEquals Operator = iota
	OpNotEquals
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpGreaterThan
	OpLessThan
	OpGreaterOrEqual
	OpLessOrEqual
	OpIsEmpty
	OpIsNotEmpty
	OpMatches
)

var operatorNames = map[Operator]string{
	OpEquals:         "equals",
	OpNotEquals:      "notEquals",
	OpContains:       "contains",
	OpNotContains:    "notContains",
	OpStartsWith:     "startsWith",
	OpEndsWith:       "endsWith",
	OpGreaterThan:    "greaterThan",
	OpLessThan:       "lessThan",
	OpGreaterOrEqual: "greaterOrEqual",
	OpLessOrEqual:    "lessOrEqual",
	OpIsEmpty:        "isEmpty",
	OpIsNotEmpty:     "isNotEmpty",
	OpMatches:        "matches",
}

func (o Operator) String() string {
	if n, ok := operatorNames[o]; ok {
		return n
	}
	return fmt.Sprintf("Operator(%d)", o)
}

// ParseOperator looks an operator up by its stored name, case-insensitively.
func ParseOperator(name string) (Operator, error) {
	name = strings.TrimSpace(name)
	for op, n := range operatorNames {
		if strings.EqualFold(n, name) {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q", name)
}

// negative operators are the ones an empty value can satisfy.
func (o Operator) negative() bool {
	return o == OpNotEquals || o == OpNotContains || o == OpIsEmpty
}

func (o Operator) ordered() bool {
	switch o {
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		return true
	}
	return false
}

// DataType selects how a condition compares values.
type DataType uint8

const (
	TypeString DataType = iota
	TypeNumber
	TypeDate
)

func (d DataType) String() string {
	switch d {
	case TypeNumber:
		return "number"
	case TypeDate:
		return "date"
	}
	return "string"
}

// ParseDataType parses a stored data type. ok is false for "", which means
// the field decides.
func ParseDataType(name string) (DataType, bool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return TypeString, false, nil
	case "string", "text":
		return TypeString, true, nil
	case "number", "numeric", "decimal":
		return TypeNumber, true, nil
	case "date":
		return TypeDate, true, nil
	}
	return TypeString, false, fmt.Errorf("unknown data type %q", name)
}

// Condition is one compiled test against a transaction value.
type Condition struct {
	Ref           FieldRef
	Op            Operator
	Value         string
	Type          DataType
	CaseSensitive bool

	num decimal.Decimal
	day time.Time
	re  *regexp.Regexp
}

func newCondition(ref FieldRef, op Operator, value string, typ DataType, caseSensitive bool) (Condition, error) {
	c := Condition{Ref: ref, Op: op, Value: value, Type: typ, CaseSensitive: caseSensitive}

	switch {
	case op == OpIsEmpty || op == OpIsNotEmpty:
		return c, nil
	case op == OpMatches:
		pattern := value
		if !caseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return c, fmt.Errorf("pattern %q: %w", value, err)
		}
		c.re = re
		return c, nil
	case typ == TypeNumber:
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			if op.ordered() || op == OpEquals || op == OpNotEquals {
				return c, fmt.Errorf("value %q is not a number", value)
			}
			return c, nil
		}
		c.num = d
	case typ == TypeDate:
		t, err := time.Parse(dateLayout, strings.TrimSpace(value))
		if err != nil {
			if op.ordered() || op == OpEquals || op == OpNotEquals {
				return c, fmt.Errorf("value %q is not a YYYY-MM-DD date", value)
			}
			return c, nil
		}
		c.day = t
	}
	return c, nil
}

const dateLayout = "2006-01-02"

// Eval reports whether actual satisfies the condition. Empty values never
// satisfy a positive operator.
func (c Condition) Eval(actual string) bool {
	trimmed := strings.TrimSpace(actual)
	if trimmed == "" {
		return c.Op.negative()
	}

	switch c.Op {
	case OpIsEmpty:
		return false
	case OpIsNotEmpty:
		return true
	case OpMatches:
		return c.re.MatchString(actual)
	}

	switch c.Type {
	case TypeNumber:
		if cmp, ok := c.compareNumber(trimmed); ok {
			return c.ordering(cmp)
		}
	case TypeDate:
		if cmp, ok := c.compareDate(trimmed); ok {
			return c.ordering(cmp)
		}
	}
	return c.evalString(actual)
}

func (c Condition) compareNumber(actual string) (int, bool) {
	if !c.Op.ordered() && c.Op != OpEquals && c.Op != OpNotEquals {
		return 0, false
	}
	d, err := decimal.NewFromString(actual)
	if err != nil {
		if c.Ref.Column == "" {
			return 0, false
		}
		// raw cells carry currency symbols and thousands separators
		var ok bool
		if d, ok = mapper.ParseAmount(actual); !ok {
			return 0, false
		}
	}
	return d.Cmp(c.num), true
}

func (c Condition) compareDate(actual string) (int, bool) {
	if !c.Op.ordered() && c.Op != OpEquals && c.Op != OpNotEquals {
		return 0, false
	}
	t, err := time.Parse(dateLayout, actual)
	if err != nil {
		return 0, false
	}
	return t.Compare(c.day), true
}

func (c Condition) ordering(cmp int) bool {
	switch c.Op {
	case OpEquals:
		return cmp == 0
	case OpNotEquals:
		return cmp != 0
	case OpGreaterThan:
		return cmp > 0
	case OpLessThan:
		return cmp < 0
	case OpGreaterOrEqual:
		return cmp >= 0
	case OpLessOrEqual:
		return cmp <= 0
	}
	return false
}

func (c Condition) evalString(actual string) bool {
	a, v := actual, c.Value
	if !c.CaseSensitive {
		a, v = strings.ToLower(a), strings.ToLower(v)
	}

	switch c.Op {
	case OpEquals:
		return strings.TrimSpace(a) == strings.TrimSpace(v)
	case OpNotEquals:
		return strings.TrimSpace(a) != strings.TrimSpace(v)
	case OpContains:
		return strings.Contains(a, v)
	case OpNotContains:
		return !strings.Contains(a, v)
	case OpStartsWith:
		return strings.HasPrefix(strings.TrimSpace(a), v)
	case OpEndsWith:
		return strings.HasSuffix(strings.TrimSpace(a), v)
	case OpGreaterThan:
		return a > v
	case OpLessThan:
		return a < v
	case OpGreaterOrEqual:
		return a >= v
	case OpLessOrEqual:
		return a <= v
	case OpIsEmpty, OpIsNotEmpty, OpMatches:
		// handled in Eval
	}
	return false
}

// Logic combines the conditions of a rule.
type Logic uint8

const (
	LogicAll Logic = iota
	LogicAny
)

func (l Logic) String() string {
	if l == LogicAny {
		return "ANY"
	}
	return "ALL"
}

// ParseLogic parses ALL or ANY. Empty means ALL.
func ParseLogic(s string) (Logic, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ALL", "AND":
		return LogicAll, nil
	case "ANY", "OR":
		return LogicAny, nil
	}
	return LogicAll, fmt.Errorf("unknown condition logic %q", s)
}

// ConditionSet is a rule's guard. An empty set matches every row.
type ConditionSet struct {
	Logic      Logic
	Conditions []Condition
}
