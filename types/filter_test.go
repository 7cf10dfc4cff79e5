package types

import (
	"errors"
	"testing"
)

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in   string
		want Operator
	}{
		{"equals", OpEquals},
		{"EQ", OpEquals},
		{"does not equal", OpNotEquals},
		{"does_not_contain", OpNotContain},
		{"starts with", OpStartsWith},
		{" Is Empty ", OpIsEmpty},
		{"not-empty", OpIsNotEmpty},
		{"range", OpBetween},
		{"before", OpBefore},
	}
	for _, tt := range tests {
		got, err := ParseOperator(tt.in)
		if err != nil {
			t.Errorf("ParseOperator(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOperator(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseOperator("resembles"); err == nil {
		t.Error("unknown operator accepted")
	}
}

func TestOperatorProperties(t *testing.T) {
	for _, op := range Operators {
		wantValue := op != OpIsEmpty && op != OpIsNotEmpty
		if op.TakesValue() != wantValue {
			t.Errorf("%s.TakesValue() = %v", op, op.TakesValue())
		}
		wantDate := op == OpBefore || op == OpAfter || op == OpBetween
		if op.IsDateOnly() != wantDate {
			t.Errorf("%s.IsDateOnly() = %v", op, op.IsDateOnly())
		}
	}
}

func TestParseLogicMode(t *testing.T) {
	for in, want := range map[string]LogicMode{"": And, "and": And, " Or ": Or, "OR": Or} {
		got, err := ParseLogicMode(in)
		if err != nil || got != want {
			t.Errorf("ParseLogicMode(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseLogicMode("XOR"); err == nil {
		t.Error("XOR accepted")
	}
}

func TestParseChangeOp(t *testing.T) {
	for in, want := range map[string]ChangeOp{
		"": ChangeReplace, "set": ChangeReplace, "Append To": ChangeAppend, "clear": ChangeClear,
	} {
		got, err := ParseChangeOp(in)
		if err != nil || got != want {
			t.Errorf("ParseChangeOp(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseChangeOp("multiply"); err == nil {
		t.Error("unknown change op accepted")
	}
}

func TestFilterClauseString(t *testing.T) {
	c := FilterClause{Field: "Location", Operator: OpEquals, Value: "HQ"}
	if got := c.String(); got != `Location equals "HQ"` {
		t.Errorf("String() = %s", got)
	}
	c = FilterClause{Field: "Audit Date", Operator: OpIsEmpty}
	if got := c.String(); got != "Audit Date is-empty" {
		t.Errorf("String() = %s", got)
	}
}

func TestIsSystemColumn(t *testing.T) {
	for _, name := range []string{"id", "ID", "Created_Date", "is_deleted"} {
		if !IsSystemColumn(name) {
			t.Errorf("%q should be a system column", name)
		}
	}
	if IsSystemColumn("Serial Number") {
		t.Error("Serial Number is not a system column")
	}
}

func TestStoreLockedErrorUnwraps(t *testing.T) {
	cause := errors.New("database is locked")
	err := &StoreLockedError{Operation: "bulk_change", Attempts: 3, WrappedError: cause}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable")
	}
	want := "bulk_change: store still locked after 3 attempts: database is locked"
	if err.Error() != want {
		t.Errorf("Error() = %q", err.Error())
	}
}
