package testutil

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/assetstore/types"
)

// RecordIDs returns the identities of records in order.
func RecordIDs(records []types.Record) []int64 {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

// AssertRecordCount checks that the slice contains the expected number of records
func AssertRecordCount(t *testing.T, records []types.Record, expected int, context ...string) {
	t.Helper()
	if len(records) != expected {
		ctx := ""
		if len(context) > 0 {
			ctx = " " + context[0]
		}
		t.Errorf("expected %d records%s, got %d", expected, ctx, len(records))
	}
}

// AssertSameIDs compares record identities ignoring order.
func AssertSameIDs(t *testing.T, records []types.Record, want ...int64) {
	t.Helper()
	got := RecordIDs(records)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	w := append([]int64(nil), want...)
	sort.Slice(w, func(i, j int) bool { return w[i] < w[j] })
	if len(w) == 0 {
		w = []int64{}
	}
	if diff := cmp.Diff(w, got); diff != "" {
		t.Errorf("record ids mismatch (-want +got):\n%s", diff)
	}
}

// AssertValue checks one field of a record.
func AssertValue(t *testing.T, rec types.Record, field, want string) {
	t.Helper()
	if got := rec.Values[field]; got != want {
		t.Errorf("record %d: expected %s = %q, got %q", rec.ID, field, want, got)
	}
}

// RequireErrorAs fails the test unless err matches T and returns the match.
func RequireErrorAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	if !errors.As(err, &target) {
		t.Fatalf("expected %T, got %v", target, err)
	}
	return target
}
