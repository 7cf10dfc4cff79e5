package types

import (
	"fmt"
	"strings"
)

// ChangeOp selects how a change instruction combines with the current value.
type ChangeOp string

const (
	// ChangeReplace overwrites the current value.
	ChangeReplace ChangeOp = "replace"
	// ChangeAppend adds to the end of the current value, separated by a
	// space, or by a newline when the current value spans several lines.
	ChangeAppend ChangeOp = "append"
	// ChangeClear empties the value.
	ChangeClear ChangeOp = "clear"
)

// CurrentDateToken in a change value is replaced by today's ISO date when
// the change is applied.
const CurrentDateToken = "current_date"

// ParseChangeOp resolves a change operation name. Empty means replace.
func ParseChangeOp(s string) (ChangeOp, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace", "set":
		return ChangeReplace, nil
	case "append", "append to", "append-to":
		return ChangeAppend, nil
	case "clear":
		return ChangeClear, nil
	}
	return "", fmt.Errorf("unknown change operation %q", s)
}

// ChangeInstruction sets one field on every targeted record.
type ChangeInstruction struct {
	Field string   `json:"field" yaml:"field"`
	Value string   `json:"value,omitempty" yaml:"value,omitempty"`
	Op    ChangeOp `json:"op,omitempty" yaml:"op,omitempty"`
}

// Preset is a named, reusable set of change instructions.
type Preset struct {
	Name    string              `json:"name" yaml:"name"`
	Changes []ChangeInstruction `json:"changes" yaml:"changes"`
}
