// Package fields is the registry of per-field metadata: which fields are
// required, unique, picked from a dropdown, dates, or hidden from forms.
//
// The registry is shared by every goroutine in the process. Edits build a
// new immutable Snapshot and swap it in atomically, so a reader sees either
// the old configuration or the new one in full.
package fields

import (
	"sync/atomic"

	"github.com/arthur-debert/assetstore/types"
)

// Classification is the metadata for one field.
type Classification struct {
	Required bool
	Dropdown bool
	Excluded bool
	Unique   bool
	Date     bool
}

// Kind derives the field kind. Date wins over dropdown.
func (c Classification) Kind() types.FieldKind {
	switch {
	case c.Date:
		return types.Date
	case c.Dropdown:
		return types.Dropdown
	default:
		return types.FreeText
	}
}

type nameSet map[string]struct{}

func newNameSet(names []string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s nameSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

// Snapshot is an immutable view of the registry at one point in time.
type Snapshot struct {
	generation uint64
	settings   Settings
	dropdown   nameSet
	required   nameSet
	excluded   nameSet
	unique     nameSet
	date       nameSet
}

func newSnapshot(s Settings, generation uint64) *Snapshot {
	s = s.Normalize()
	return &Snapshot{
		generation: generation,
		settings:   s,
		dropdown:   newNameSet(s.DropdownFields),
		required:   newNameSet(s.RequiredFields),
		excluded:   newNameSet(s.ExcludedFields),
		unique:     newNameSet(s.UniqueFields),
		date:       newNameSet(s.DateFields),
	}
}

// Generation increases by one with every replacement.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Settings returns a copy of the settings behind this snapshot.
func (s *Snapshot) Settings() Settings { return s.settings.Clone() }

// Classify looks up the metadata for name.
func (s *Snapshot) Classify(name string) Classification {
	if s == nil {
		return Classification{}
	}
	return Classification{
		Required: s.required.has(name),
		Dropdown: s.dropdown.has(name),
		Excluded: s.excluded.has(name),
		Unique:   s.unique.has(name),
		Date:     s.date.has(name),
	}
}

// Kind is shorthand for Classify(name).Kind().
func (s *Snapshot) Kind(name string) types.FieldKind {
	return s.Classify(name).Kind()
}

// UniqueFields returns the configured unique field names.
func (s *Snapshot) UniqueFields() []string {
	return append([]string(nil), s.settings.UniqueFields...)
}

// RequiredFields returns the configured required field names.
func (s *Snapshot) RequiredFields() []string {
	return append([]string(nil), s.settings.RequiredFields...)
}

// Annotate returns a copy of specs with Kind filled in and Required set for
// fields the registry marks required.
func (s *Snapshot) Annotate(specs []types.FieldSpec) []types.FieldSpec {
	out := make([]types.FieldSpec, len(specs))
	for i, spec := range specs {
		c := s.Classify(spec.Name)
		spec.Kind = c.Kind()
		spec.Required = spec.Required || c.Required
		out[i] = spec
	}
	return out
}

// Visible returns the specs not excluded from forms and exports.
func (s *Snapshot) Visible(specs []types.FieldSpec) []types.FieldSpec {
	out := make([]types.FieldSpec, 0, len(specs))
	for _, spec := range specs {
		if !s.excluded.has(spec.Name) {
			out = append(out, spec)
		}
	}
	return out
}

// Registry holds the current Snapshot.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

// NewRegistry creates a registry seeded with s.
func NewRegistry(s Settings) *Registry {
	r := &Registry{}
	r.current.Store(newSnapshot(s, 1))
	return r
}

// Snapshot returns the current configuration. Callers should take one
// snapshot per operation and use it throughout.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Classify consults the current snapshot.
func (r *Registry) Classify(name string) Classification {
	return r.Snapshot().Classify(name)
}

// Annotate consults the current snapshot.
func (r *Registry) Annotate(specs []types.FieldSpec) []types.FieldSpec {
	return r.Snapshot().Annotate(specs)
}

// Visible consults the current snapshot.
func (r *Registry) Visible(specs []types.FieldSpec) []types.FieldSpec {
	return r.Snapshot().Visible(specs)
}

// Replace swaps in a whole new settings document.
func (r *Registry) Replace(s Settings) {
	for {
		old := r.current.Load()
		if r.current.CompareAndSwap(old, newSnapshot(s, old.generation+1)) {
			return
		}
	}
}

// Update applies fn to a copy of the current settings and swaps the result
// in. fn may run more than once if edits race.
func (r *Registry) Update(fn func(*Settings)) {
	for {
		old := r.current.Load()
		next := old.settings.Clone()
		fn(&next)
		if r.current.CompareAndSwap(old, newSnapshot(next, old.generation+1)) {
			return
		}
	}
}

// Load replaces the registry contents with the document at path.
func (r *Registry) Load(path string) error {
	s, err := ReadFile(path)
	if err != nil {
		return err
	}
	r.Replace(s)
	return nil
}

// Save writes the current settings to path.
func (r *Registry) Save(path string) error {
	return WriteFile(path, r.Snapshot().Settings())
}
