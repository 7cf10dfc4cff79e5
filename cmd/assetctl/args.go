package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arthur-debert/assetstore/types"
)

// parseFilters turns "Field=value" and "Field__operator=value" arguments
// into filter clauses. A bare "--or" or "--and" token sets the logic mode;
// the two cannot be mixed. orFlag is the value of the --or flag.
func parseFilters(args []string, orFlag bool) ([]types.FilterClause, types.LogicMode, error) {
	mode := types.And
	if orFlag {
		mode = types.Or
	}
	var sawAnd, sawOr bool
	clauses := make([]types.FilterClause, 0, len(args))

	for _, arg := range args {
		switch strings.ToLower(arg) {
		case "--or", "or":
			sawOr = true
			mode = types.Or
			continue
		case "--and", "and":
			sawAnd = true
			continue
		}

		key, value, _ := strings.Cut(arg, "=")
		key = strings.TrimPrefix(key, "--")

		clause := types.FilterClause{Field: key, Operator: types.OpEquals, Value: value}
		if i := strings.LastIndex(key, "__"); i >= 0 {
			op, err := types.ParseOperator(key[i+2:])
			if err != nil {
				return nil, "", NewFilterError("parse filters", arg, err.Error(), err)
			}
			clause.Field = key[:i]
			clause.Operator = op
		}
		clause.Field = strings.TrimSpace(clause.Field)
		if clause.Field == "" {
			return nil, "", NewFilterError("parse filters", arg, "missing field name", nil)
		}
		if clause.Operator.TakesValue() && clause.Operator != types.OpEquals && !strings.Contains(arg, "=") {
			return nil, "", NewFilterError("parse filters", arg, fmt.Sprintf("operator %s needs a value", clause.Operator), nil)
		}
		clauses = append(clauses, clause)
	}

	if sawAnd && (sawOr || orFlag) {
		return nil, "", NewFilterError("parse filters", strings.Join(args, " "),
			"AND and OR cannot be mixed in one search", nil)
	}
	return clauses, mode, nil
}

// parseChanges builds change instructions from the --set, --append and
// --clear flags, applied in that order.
func parseChanges(set, appendTo, clear []string) ([]types.ChangeInstruction, error) {
	var changes []types.ChangeInstruction
	for _, group := range []struct {
		op     types.ChangeOp
		values []string
	}{{types.ChangeReplace, set}, {types.ChangeAppend, appendTo}} {
		for _, kv := range group.values {
			field, value, ok := strings.Cut(kv, "=")
			field = strings.TrimSpace(field)
			if !ok || field == "" {
				return nil, NewUsageError("parse changes", fmt.Sprintf("expected Field=Value, got %q", kv))
			}
			changes = append(changes, types.ChangeInstruction{Field: field, Value: value, Op: group.op})
		}
	}
	for _, field := range clear {
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, NewUsageError("parse changes", "--clear needs a field name")
		}
		changes = append(changes, types.ChangeInstruction{Field: field, Op: types.ChangeClear})
	}
	return changes, nil
}

// parseValues turns "Field=Value" arguments into a record value map.
func parseValues(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, kv := range args {
		field, value, ok := strings.Cut(kv, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, NewUsageError("parse values", fmt.Sprintf("expected Field=Value, got %q", kv))
		}
		values[field] = value
	}
	return values, nil
}

// parseSort accepts "Field", "-Field", "Field:desc" and "Field:asc".
func parseSort(specs []string) ([]types.SortOrder, error) {
	var out []types.SortOrder
	for _, s := range specs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		o := types.SortOrder{Field: s}
		if strings.HasPrefix(s, "-") {
			o = types.SortOrder{Field: s[1:], Descending: true}
		} else if field, dir, ok := strings.Cut(s, ":"); ok {
			switch strings.ToLower(dir) {
			case "desc":
				o = types.SortOrder{Field: field, Descending: true}
			case "asc":
				o = types.SortOrder{Field: field}
			default:
				return nil, NewUsageError("parse sort", fmt.Sprintf("unknown sort direction %q", dir))
			}
		}
		out = append(out, o)
	}
	return out, nil
}

// parseRecordID parses a record identity argument.
func parseRecordID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, NewUsageError("parse record id", fmt.Sprintf("invalid record id %q", s))
	}
	return id, nil
}
