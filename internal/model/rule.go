package model

import "time"

// RuleType classifies what a processing rule does to a matching row.
type RuleType string

const (
	RuleFieldTransform RuleType = "FIELD_TRANSFORM"
	RuleFieldValueSet  RuleType = "FIELD_VALUE_SET"
	RuleRowIgnore      RuleType = "ROW_IGNORE"
)

// ActionType classifies a single rule action.
type ActionType string

const (
	ActionSetField       ActionType = "SET_FIELD"
	ActionTransformField ActionType = "TRANSFORM_FIELD"
)

// RuleCondition is one stored condition of a processing rule.
type RuleCondition struct {
	Field         string `yaml:"field"`
	Operator      string `yaml:"operator"`
	Value         string `yaml:"value,omitempty"`
	DataType      string `yaml:"data_type,omitempty"`
	CaseSensitive *bool  `yaml:"case_sensitive,omitempty"` // nil = true
}

// RuleAction is one stored action of a processing rule.
type RuleAction struct {
	Type        ActionType `yaml:"type"`
	Field       string     `yaml:"field"`
	Value       string     `yaml:"value,omitempty"`
	Transform   string     `yaml:"transform,omitempty"`
	TargetField string     `yaml:"target_field,omitempty"`
}

// ProcessingRule is the stored, user-edited form of an import rule.
type ProcessingRule struct {
	ID             string          `yaml:"id"`
	BankConfigID   string          `yaml:"bank_config_id"`
	Name           string          `yaml:"name"`
	Type           RuleType        `yaml:"type"`
	Active         bool            `yaml:"active"`
	RuleOrder      int             `yaml:"rule_order"`
	Conditions     []RuleCondition `yaml:"conditions"`
	ConditionLogic string          `yaml:"condition_logic,omitempty"`
	Actions        []RuleAction    `yaml:"actions,omitempty"`
	CreatedAt      time.Time       `yaml:"created_at"`
	UpdatedAt      time.Time       `yaml:"updated_at"`
}

// AppliedRule records a rule that changed an imported row.
type AppliedRule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
