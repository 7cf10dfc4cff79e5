package types

import (
	"fmt"
	"strings"
)

// Operator is one of the closed set of filter comparisons.
type Operator string

const (
	OpEquals     Operator = "equals"
	OpNotEquals  Operator = "not-equals"
	OpContains   Operator = "contains"
	OpNotContain Operator = "not-contains"
	OpStartsWith Operator = "starts-with"
	OpEndsWith   Operator = "ends-with"
	OpIsEmpty    Operator = "is-empty"
	OpIsNotEmpty Operator = "is-not-empty"
	OpBefore     Operator = "before"
	OpAfter      Operator = "after"
	OpBetween    Operator = "between"
)

// Operators lists every supported operator.
var Operators = []Operator{
	OpEquals, OpNotEquals, OpContains, OpNotContain, OpStartsWith,
	OpEndsWith, OpIsEmpty, OpIsNotEmpty, OpBefore, OpAfter, OpBetween,
}

var operatorAliases = map[string]Operator{
	"eq":               OpEquals,
	"is":               OpEquals,
	"ne":               OpNotEquals,
	"not-equal":        OpNotEquals,
	"does-not-equal":   OpNotEquals,
	"not":              OpNotEquals,
	"like":             OpContains,
	"does-not-contain": OpNotContain,
	"not-contain":      OpNotContain,
	"startswith":       OpStartsWith,
	"endswith":         OpEndsWith,
	"empty":            OpIsEmpty,
	"not-empty":        OpIsNotEmpty,
	"lt":               OpBefore,
	"gt":               OpAfter,
	"range":            OpBetween,
}

// ParseOperator resolves an operator name or alias. Spaces and underscores
// are treated as hyphens, so "does not equal" and "starts_with" resolve.
func ParseOperator(s string) (Operator, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "-", "_", "-").Replace(key)
	for _, op := range Operators {
		if string(op) == key {
			return op, nil
		}
	}
	if op, ok := operatorAliases[key]; ok {
		return op, nil
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// TakesValue reports whether the operator compares against a value.
func (o Operator) TakesValue() bool {
	return o != OpIsEmpty && o != OpIsNotEmpty
}

// IsDateOnly reports whether the operator is only meaningful on date fields.
func (o Operator) IsDateOnly() bool {
	return o == OpBefore || o == OpAfter || o == OpBetween
}

// LogicMode joins filter clauses.
type LogicMode string

const (
	And LogicMode = "AND"
	Or  LogicMode = "OR"
)

// ParseLogicMode accepts "and"/"or" in any case. Empty means AND.
func ParseLogicMode(s string) (LogicMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "AND":
		return And, nil
	case "OR":
		return Or, nil
	}
	return "", fmt.Errorf("unknown logic mode %q", s)
}

// FilterClause is a single (field, operator, value) condition.
type FilterClause struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    string   `json:"value,omitempty" yaml:"value,omitempty"`
}

func (c FilterClause) String() string {
	if !c.Operator.TakesValue() {
		return fmt.Sprintf("%s %s", c.Field, c.Operator)
	}
	return fmt.Sprintf("%s %s %q", c.Field, c.Operator, c.Value)
}

// SortOrder orders query results by one column.
type SortOrder struct {
	Field      string
	Descending bool
}

// SavedSearch is a named, reusable filter.
type SavedSearch struct {
	Name    string         `json:"name" yaml:"name"`
	Clauses []FilterClause `json:"clauses" yaml:"clauses"`
	Mode    LogicMode      `json:"mode" yaml:"mode"`
}
