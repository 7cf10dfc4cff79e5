package assetstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/arthur-debert/assetstore/assetstore"
	"github.com/arthur-debert/assetstore/assetstore/fields"
	"github.com/arthur-debert/assetstore/assetstore/template"
	fixture "github.com/arthur-debert/assetstore/assetstore/testutil"
	"github.com/arthur-debert/assetstore/internal/metrics"
	"github.com/arthur-debert/assetstore/types"
)

func mustParse(t *testing.T, headers ...string) []types.FieldSpec {
	t.Helper()
	specs, err := template.Parse(headers)
	if err != nil {
		t.Fatalf("failed to parse template: %v", err)
	}
	return specs
}

func schemaCookie(t *testing.T, s *assetstore.Store) int64 {
	t.Helper()
	var v int64
	if err := s.DB().QueryRow("PRAGMA schema_version").Scan(&v); err != nil {
		t.Fatalf("failed to read schema_version: %v", err)
	}
	return v
}

func TestSynchronizeAddsColumnsInTemplateOrder(t *testing.T) {
	ctx := context.Background()
	store := fixture.NewStore(t, assetstore.Options{})

	v, err := store.Synchronize(ctx, mustParse(t, "*Asset Type", "*Model", "Serial Number"))
	if err != nil {
		t.Fatalf("synchronize failed: %v", err)
	}

	want := []string{"Asset Type", "Model", "Serial Number"}
	if diff := cmp.Diff(want, v.Added); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}
	if v.Version != 1 {
		t.Errorf("expected version 1, got %d", v.Version)
	}

	cols, err := store.Columns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, cols); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	persisted, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(v, persisted); diff != "" {
		t.Errorf("persisted version mismatch (-want +got):\n%s", diff)
	}
}

func TestSynchronizeTwiceWritesNothing(t *testing.T) {
	ctx := context.Background()
	clock := fixture.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := fixture.NewStore(t, assetstore.Options{Table: "idempotent_assets", Clock: clock.Now})
	specs := mustParse(t, "*Asset Type", "*Model", "Serial Number", "Location")

	first, err := store.Synchronize(ctx, specs)
	if err != nil {
		t.Fatalf("first synchronize failed: %v", err)
	}
	cookie := schemaCookie(t, store)
	added := testutil.ToFloat64(metrics.ColumnsAddedTotal.WithLabelValues("idempotent_assets"))

	clock.Advance(time.Hour)
	second, err := store.Synchronize(ctx, specs)
	if err != nil {
		t.Fatalf("second synchronize failed: %v", err)
	}

	if second.Version != first.Version {
		t.Errorf("expected version to stay %d, got %d", first.Version, second.Version)
	}
	if !second.SyncedAt.Equal(first.SyncedAt) {
		t.Errorf("expected marker untouched, synced_at moved from %v to %v", first.SyncedAt, second.SyncedAt)
	}
	if got := schemaCookie(t, store); got != cookie {
		t.Errorf("expected schema cookie %d, got %d", cookie, got)
	}
	if got := testutil.ToFloat64(metrics.ColumnsAddedTotal.WithLabelValues("idempotent_assets")); got != added {
		t.Errorf("expected no columns added, counter moved from %v to %v", added, got)
	}
}

func TestSynchronizeAddsLocationToExistingRecords(t *testing.T) {
	ctx := context.Background()
	store := fixture.NewStore(t, assetstore.Options{})

	if _, err := store.Synchronize(ctx, mustParse(t, "*Asset Type", "*Model", "Serial Number")); err != nil {
		t.Fatal(err)
	}
	id, err := store.AddRecord(ctx, map[string]string{"Asset Type": "Laptop", "Model": "X200", "Serial Number": "SN-1"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	v, err := store.Synchronize(ctx, mustParse(t, "*Asset Type", "*Model", "Serial Number", "Location"))
	if err != nil {
		t.Fatalf("synchronize with Location failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Location"}, v.Added); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}
	if v.Version != 2 {
		t.Errorf("expected version 2, got %d", v.Version)
	}

	rec, err := store.GetRecord(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if loc, ok := rec.Get("Location"); ok {
		t.Errorf("expected Location to be null, got %q", loc)
	}
	fixture.AssertValue(t, rec, "Serial Number", "SN-1")
}

func TestSynchronizeNeverDropsRemovedFields(t *testing.T) {
	ctx := context.Background()
	store := fixture.NewStore(t, assetstore.Options{})

	if _, err := store.Synchronize(ctx, mustParse(t, "*Model", "Legacy Tag")); err != nil {
		t.Fatal(err)
	}
	id, err := store.AddRecord(ctx, map[string]string{"Model": "X200", "Legacy Tag": "LT-9"})
	if err != nil {
		t.Fatal(err)
	}

	narrowed := mustParse(t, "*Model")
	if _, err := store.Synchronize(ctx, narrowed); err != nil {
		t.Fatalf("narrowing synchronize failed: %v", err)
	}

	cols, err := store.Columns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Model", "Legacy Tag"}, cols); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	rec, err := store.GetRecord(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	fixture.AssertValue(t, rec, "Legacy Tag", "LT-9")

	res, err := store.Search(ctx, []types.FilterClause{{Field: "Legacy Tag", Operator: types.OpEquals, Value: "LT-9"}}, types.And, assetstore.QueryOptions{})
	if err != nil {
		t.Fatalf("search on retained column failed: %v", err)
	}
	fixture.AssertSameIDs(t, res.Records, id)

	diff, err := store.CompareTemplate(ctx, narrowed)
	if err != nil {
		t.Fatal(err)
	}
	if !diff.InSync() {
		t.Errorf("expected template in sync, missing %v", diff.ToAdd)
	}
	if d := cmp.Diff([]string{"Legacy Tag"}, diff.Retained); d != "" {
		t.Errorf("retained mismatch (-want +got):\n%s", d)
	}
}

func TestSynchronizeRollsBackPartialFailure(t *testing.T) {
	ctx := context.Background()
	store := fixture.NewStore(t, assetstore.Options{})

	if _, err := store.Synchronize(ctx, mustParse(t, "*Model")); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("disk full")
	assetstore.SetBeforeAddColumn(store, func(name string) error {
		if name == "Room" {
			return boom
		}
		return nil
	})

	_, err := store.Synchronize(ctx, mustParse(t, "*Model", "Location", "Room", "Cubicle"))
	sme := fixture.RequireErrorAs[*types.SchemaMigrationError](t, err)
	if sme.Column != "Room" {
		t.Errorf("expected failure on Room, got %q", sme.Column)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected error to wrap cause, got %v", err)
	}

	cols, err := store.Columns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Model"}, cols); diff != "" {
		t.Errorf("expected prior schema intact (-want +got):\n%s", diff)
	}
	v, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v.Version != 1 {
		t.Errorf("expected version 1 after rollback, got %d", v.Version)
	}

	assetstore.SetBeforeAddColumn(store, nil)
	v, err = store.Synchronize(ctx, mustParse(t, "*Model", "Location", "Room", "Cubicle"))
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Location", "Room", "Cubicle"}, v.Added); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}
}

func TestSynchronizeTreatsCaseVariantsAsExisting(t *testing.T) {
	ctx := context.Background()
	store := fixture.NewStore(t, assetstore.Options{})

	if _, err := store.Synchronize(ctx, mustParse(t, "Model")); err != nil {
		t.Fatal(err)
	}
	v, err := store.Synchronize(ctx, mustParse(t, "MODEL"))
	if err != nil {
		t.Fatalf("synchronize failed: %v", err)
	}
	if v.Version != 1 || len(v.Added) != 1 {
		t.Errorf("expected untouched version 1 marker, got %+v", v)
	}
}

func TestSynchronizeRejectsInvalidSpecs(t *testing.T) {
	store := fixture.NewStore(t, assetstore.Options{})
	_, err := store.Synchronize(context.Background(), []types.FieldSpec{{Name: "Model"}, {Name: "model"}})
	fixture.RequireErrorAs[*types.TemplateFormatError](t, err)
}

func TestFieldsFollowTemplateAndRegistry(t *testing.T) {
	ctx := context.Background()
	registry := fields.NewRegistry(fields.Settings{DateFields: []string{"Audit Date"}, RequiredFields: []string{"Location"}})
	store := fixture.NewStore(t, assetstore.Options{Registry: registry})

	if _, err := store.Synchronize(ctx, mustParse(t, "*Model", "Location", "Audit Date")); err != nil {
		t.Fatal(err)
	}
	got, err := store.Fields(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []types.FieldSpec{
		{Name: "Model", Required: true, Order: 0, Kind: types.FreeText},
		{Name: "Location", Required: true, Order: 1, Kind: types.FreeText},
		{Name: "Audit Date", Order: 2, Kind: types.Date},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}
