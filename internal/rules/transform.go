package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TransformFunc is a named value transform.
type TransformFunc uint8

const (
	TransformAbsolute TransformFunc = iota
	TransformNegate
	TransformUppercase
	TransformLowercase
	TransformTrim
	TransformTitleCase
)

var transformNames = map[TransformFunc]string{
	TransformAbsolute:  "absolute",
	TransformNegate:    "negate",
	TransformUppercase: "uppercase",
	TransformLowercase: "lowercase",
	TransformTrim:      "trim",
	TransformTitleCase: "titlecase",
}

var transformAliases = map[string]TransformFunc{
	"abs":       TransformAbsolute,
	"upper":     TransformUppercase,
	"lower":     TransformLowercase,
	"title":     TransformTitleCase,
	"titleCase": TransformTitleCase,
}

func (f TransformFunc) String() string {
	if n, ok := transformNames[f]; ok {
		return n
	}
	return fmt.Sprintf("TransformFunc(%d)", f)
}

// ParseTransform looks a transform up by name, case-insensitively.
func ParseTransform(name string) (TransformFunc, error) {
	name = strings.TrimSpace(name)
	for f, n := range transformNames {
		if strings.EqualFold(n, name) {
			return f, nil
		}
	}
	for alias, f := range transformAliases {
		if strings.EqualFold(alias, name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown transform %q", name)
}

var errNoValue = errors.New("no value to transform")

// Apply transforms v. Numeric transforms fail on values that are not
// decimals.
func (f TransformFunc) Apply(v string) (string, error) {
	switch f {
	case TransformAbsolute, TransformNegate:
		s := strings.TrimSpace(v)
		if s == "" {
			return "", errNoValue
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return "", fmt.Errorf("%s needs a number, got %q", f, v)
		}
		if f == TransformAbsolute {
			return d.Abs().String(), nil
		}
		return d.Neg().String(), nil
	case TransformUppercase:
		return strings.ToUpper(v), nil
	case TransformLowercase:
		return strings.ToLower(v), nil
	case TransformTrim:
		return strings.TrimSpace(v), nil
	case TransformTitleCase:
		return cases.Title(language.Und).String(strings.ToLower(v)), nil
	}
	return "", fmt.Errorf("unknown transform %d", f)
}
