package assetstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/arthur-debert/assetstore/assetstore"
	fixture "github.com/arthur-debert/assetstore/assetstore/testutil"
	"github.com/arthur-debert/assetstore/internal/metrics"
	"github.com/arthur-debert/assetstore/types"
)

func mustFilter(t *testing.T, s *assetstore.Store, mode types.LogicMode, clauses ...types.FilterClause) assetstore.Predicate {
	t.Helper()
	pred, err := s.BuildFilter(context.Background(), clauses, mode)
	if err != nil {
		t.Fatalf("failed to build filter: %v", err)
	}
	return pred
}

func eq(field, value string) types.FilterClause {
	return types.FilterClause{Field: field, Operator: types.OpEquals, Value: value}
}

func mustGet(t *testing.T, inv *fixture.Inventory, label string) types.Record {
	t.Helper()
	rec, err := inv.Store.GetRecord(context.Background(), inv.ID(t, label))
	if err != nil {
		t.Fatalf("failed to get %s: %v", label, err)
	}
	return rec
}

func TestBulkChangeRejectsDuplicateWithinBatch(t *testing.T) {
	inv := fixture.NewInventory(t)
	before := testutil.ToFloat64(metrics.BulkChangeTotal.WithLabelValues("unique"))

	n, err := inv.Store.ApplyBulkChange(context.Background(),
		mustFilter(t, inv.Store, types.And, eq("Model", "X200")),
		[]types.ChangeInstruction{{Field: "Serial Number", Value: "SN-1"}})

	conflict := fixture.RequireErrorAs[*types.UniquenessConflictError](t, err)
	if conflict.Field != "Serial Number" || conflict.Value != "SN-1" {
		t.Errorf("expected Serial Number SN-1 conflict, got %+v", conflict)
	}
	if conflict.RecordID != 0 {
		t.Errorf("expected batch conflict without holder, got holder %d", conflict.RecordID)
	}
	if n != 0 {
		t.Errorf("expected 0 records changed, got %d", n)
	}
	fixture.AssertValue(t, mustGet(t, inv, "LaptopHQ"), "Serial Number", "SN-1")
	fixture.AssertValue(t, mustGet(t, inv, "LaptopAnnex"), "Serial Number", "SN-2")

	if got := testutil.ToFloat64(metrics.BulkChangeTotal.WithLabelValues("unique")); got != before+1 {
		t.Errorf("expected unique counter %v, got %v", before+1, got)
	}
}

func TestBulkChangeRejectsValueHeldElsewhere(t *testing.T) {
	inv := fixture.NewInventory(t)

	_, err := inv.Store.ApplyBulkChange(context.Background(),
		mustFilter(t, inv.Store, types.And, eq("Model", "T14")),
		[]types.ChangeInstruction{{Field: "Serial Number", Value: "SN-4"}})

	conflict := fixture.RequireErrorAs[*types.UniquenessConflictError](t, err)
	if conflict.RecordID != inv.ID(t, "MonitorHQ") {
		t.Errorf("expected holder %d, got %d", inv.ID(t, "MonitorHQ"), conflict.RecordID)
	}
	fixture.AssertValue(t, mustGet(t, inv, "LaptopRepair"), "Serial Number", "SN-3")
}

func TestBulkChangeIgnoresDeletedHolders(t *testing.T) {
	inv := fixture.NewInventory(t)

	n, err := inv.Store.ApplyBulkChange(context.Background(),
		mustFilter(t, inv.Store, types.And, eq("Model", "T14")),
		[]types.ChangeInstruction{{Field: "Serial Number", Value: "SN-11"}})
	if err != nil {
		t.Fatalf("expected deleted holder to be ignored, got %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 record changed, got %d", n)
	}
	fixture.AssertValue(t, mustGet(t, inv, "LaptopRepair"), "Serial Number", "SN-11")
}

func TestBulkChangeAllowsRecordToKeepItsValue(t *testing.T) {
	inv := fixture.NewInventory(t)

	n, err := inv.Store.ApplyBulkChange(context.Background(),
		mustFilter(t, inv.Store, types.And, eq("Serial Number", "SN-1")),
		[]types.ChangeInstruction{
			{Field: "Serial Number", Value: "SN-1"},
			{Field: "Status", Value: "Loaned"},
		})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 record changed, got %d", n)
	}
	fixture.AssertValue(t, mustGet(t, inv, "LaptopHQ"), "Status", "Loaned")
}

func TestBulkChangeEnforcesRequiredFields(t *testing.T) {
	inv := fixture.NewInventory(t)

	_, err := inv.Store.ApplyBulkChange(context.Background(),
		mustFilter(t, inv.Store, types.And, eq("Location", "HQ")),
		[]types.ChangeInstruction{{Field: "Model", Op: types.ChangeClear}})

	required := fixture.RequireErrorAs[*types.RequiredFieldError](t, err)
	if required.Field != "Model" {
		t.Errorf("expected Model, got %q", required.Field)
	}
	fixture.AssertValue(t, mustGet(t, inv, "LaptopHQ"), "Model", "X200")
}

func TestBulkChangeReplacesAndAudits(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()
	inv.Clock.Advance(time.Hour)
	store := inv.Store.WithActor("auditor")

	n, err := store.ApplyBulkChange(ctx,
		mustFilter(t, store, types.And, eq("Location", "Annex")),
		[]types.ChangeInstruction{{Field: "location", Value: "Warehouse"}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 records changed, got %d", n)
	}

	res, err := store.Search(ctx, []types.FilterClause{eq("Location", "Warehouse")}, types.And, assetstore.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	fixture.AssertSameIDs(t, res.Records, inv.ID(t, "LaptopAnnex"), inv.ID(t, "MonitorRetired"), inv.ID(t, "Printer"))

	wantModified := time.Date(2024, 6, 1, 10, 12, 0, 0, time.UTC)
	batches := make(map[string]bool)
	for _, rec := range res.Records {
		if !rec.ModifiedDate.Equal(wantModified) {
			t.Errorf("expected modified %v, got %v", wantModified, rec.ModifiedDate)
		}
		if rec.ModifiedBy != "auditor" {
			t.Errorf("expected modified_by auditor, got %q", rec.ModifiedBy)
		}

		history, err := store.History(ctx, rec.ID)
		if err != nil {
			t.Fatal(err)
		}
		latest := history[0]
		if latest.Action != types.AuditUpdate || latest.Field != "Location" {
			t.Errorf("expected Location update, got %+v", latest)
		}
		if latest.OldValue != "Annex" || latest.NewValue != "Warehouse" {
			t.Errorf("expected Annex -> Warehouse, got %q -> %q", latest.OldValue, latest.NewValue)
		}
		if latest.Actor != "auditor" {
			t.Errorf("expected actor auditor, got %q", latest.Actor)
		}
		batches[latest.BatchID] = true
	}
	if len(batches) != 1 {
		t.Errorf("expected one batch id, got %v", batches)
	}
	if batches[""] {
		t.Error("expected a non-empty batch id")
	}

	fixture.AssertValue(t, mustGet(t, inv, "LaptopHQ"), "Location", "HQ")
}

func TestBulkChangeAppendsAndStampsDates(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()

	n, err := inv.Store.ApplyBulkChange(ctx,
		mustFilter(t, inv.Store, types.Or, eq("Model", "iPhone 15"), eq("Model", "Pixel 8")),
		[]types.ChangeInstruction{
			{Field: "Notes", Value: "returned", Op: types.ChangeAppend},
			{Field: "Audit Date", Value: "current_date"},
		})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 records changed, got %d", n)
	}

	remote := mustGet(t, inv, "PhoneRemote")
	fixture.AssertValue(t, remote, "Notes", "issued to field team returned")
	fixture.AssertValue(t, remote, "Audit Date", "2024-06-01")

	hq := mustGet(t, inv, "PhoneHQ")
	fixture.AssertValue(t, hq, "Notes", "returned")
	fixture.AssertValue(t, hq, "Audit Date", "2024-06-01")
}

func TestBulkChangeNormalizesDates(t *testing.T) {
	inv := fixture.NewInventory(t)

	_, err := inv.Store.ApplyBulkChange(context.Background(),
		mustFilter(t, inv.Store, types.And, eq("Model", "MX-100")),
		[]types.ChangeInstruction{{Field: "Audit Date", Value: "12/31/2024"}})
	if err != nil {
		t.Fatal(err)
	}
	fixture.AssertValue(t, mustGet(t, inv, "Router"), "Audit Date", "2024-12-31")
}

func TestBulkChangeNoMatchIsNotAnError(t *testing.T) {
	inv := fixture.NewInventory(t)

	n, err := inv.Store.ApplyBulkChange(context.Background(),
		mustFilter(t, inv.Store, types.And, eq("Location", "Moon")),
		[]types.ChangeInstruction{{Field: "Status", Value: "Lost"}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 records changed, got %d", n)
	}
}

func TestBulkChangeSkipsDeletedRecords(t *testing.T) {
	inv := fixture.NewInventory(t)

	n, err := inv.Store.ApplyBulkChange(context.Background(),
		mustFilter(t, inv.Store, types.And, eq("Model", "X200")),
		[]types.ChangeInstruction{{Field: "Status", Value: "Recalled"}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 records changed, got %d", n)
	}
	fixture.AssertValue(t, mustGet(t, inv, "DeletedLaptop"), "Status", "Active")
}

func TestBulkChangeRejectsBadInstructions(t *testing.T) {
	inv := fixture.NewInventory(t)
	pred := mustFilter(t, inv.Store, types.And, eq("Model", "T14"))

	tests := []struct {
		name    string
		changes []types.ChangeInstruction
		check   func(t *testing.T, err error)
	}{
		{
			name:    "unknown field",
			changes: []types.ChangeInstruction{{Field: "Colour", Value: "red"}},
			check:   func(t *testing.T, err error) { fixture.RequireErrorAs[*types.UnknownFieldError](t, err) },
		},
		{
			name:    "system column",
			changes: []types.ChangeInstruction{{Field: "is_deleted", Value: "1"}},
			check:   func(t *testing.T, err error) { fixture.RequireErrorAs[*types.UnknownFieldError](t, err) },
		},
		{
			name:    "append to date",
			changes: []types.ChangeInstruction{{Field: "Audit Date", Value: "2024-01-01", Op: types.ChangeAppend}},
			check:   func(t *testing.T, err error) { fixture.RequireErrorAs[*types.InvalidValueError](t, err) },
		},
		{
			name: "bad date after a valid change",
			changes: []types.ChangeInstruction{
				{Field: "Status", Value: "Audited"},
				{Field: "Audit Date", Value: "soon"},
			},
			check: func(t *testing.T, err error) { fixture.RequireErrorAs[*types.InvalidValueError](t, err) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := inv.Store.ApplyBulkChange(context.Background(), pred, tt.changes)
			tt.check(t, err)
		})
	}

	rec := mustGet(t, inv, "LaptopRepair")
	fixture.AssertValue(t, rec, "Status", "Repair")
	fixture.AssertValue(t, rec, "Audit Date", "2024-03-05")
}

func TestApplyPreset(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()

	err := inv.Store.CreatePreset(ctx, types.Preset{
		Name: "Return to HQ",
		Changes: []types.ChangeInstruction{
			{Field: "Location", Value: "HQ"},
			{Field: "Audit Date", Value: types.CurrentDateToken},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	n, err := inv.Store.ApplyPreset(ctx, "return to hq", mustFilter(t, inv.Store, types.And, eq("Location", "Remote")))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 record changed, got %d", n)
	}
	rec := mustGet(t, inv, "PhoneRemote")
	fixture.AssertValue(t, rec, "Location", "HQ")
	fixture.AssertValue(t, rec, "Audit Date", "2024-06-01")

	_, err = inv.Store.ApplyPreset(ctx, "missing", assetstore.MatchAll())
	fixture.RequireErrorAs[*types.NotFoundError](t, err)
}

func TestBulkChangeSkipsDeletedForHandBuiltPredicate(t *testing.T) {
	inv := fixture.NewInventory(t)
	pred := assetstore.Predicate{SQL: `"Model" = ?`, Args: []interface{}{"X200"}}

	n, err := inv.Store.ApplyBulkChange(context.Background(), pred,
		[]types.ChangeInstruction{{Field: "Status", Value: "Touched"}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 records changed, got %d", n)
	}
	fixture.AssertValue(t, mustGet(t, inv, "LaptopHQ"), "Status", "Touched")
	fixture.AssertValue(t, mustGet(t, inv, "LaptopAnnex"), "Status", "Touched")
	fixture.AssertValue(t, mustGet(t, inv, "DeletedLaptop"), "Status", "Active")
}

func TestBulkChangeUniqueIgnoresSurroundingSpace(t *testing.T) {
	inv := fixture.NewInventory(t)

	n, err := inv.Store.ApplyBulkChange(context.Background(),
		mustFilter(t, inv.Store, types.And, eq("Model", "T14")),
		[]types.ChangeInstruction{{Field: "Serial Number", Value: "SN-1 "}})

	conflict := fixture.RequireErrorAs[*types.UniquenessConflictError](t, err)
	if conflict.RecordID != inv.ID(t, "LaptopHQ") {
		t.Errorf("expected holder LaptopHQ, got %d", conflict.RecordID)
	}
	if n != 0 {
		t.Errorf("expected 0 records changed, got %d", n)
	}
	fixture.AssertValue(t, mustGet(t, inv, "LaptopRepair"), "Serial Number", "SN-3")
}

func TestBulkChangeTrimsWrittenValues(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()

	_, err := inv.Store.ApplyBulkChange(ctx,
		mustFilter(t, inv.Store, types.And, eq("Model", "T14")),
		[]types.ChangeInstruction{
			{Field: "Location", Value: "  Annex  "},
			{Field: "Notes", Value: " fan noise ", Op: types.ChangeAppend},
		})
	if err != nil {
		t.Fatal(err)
	}
	rec := mustGet(t, inv, "LaptopRepair")
	fixture.AssertValue(t, rec, "Location", "Annex")
	fixture.AssertValue(t, rec, "Notes", "fan noise")

	_, err = inv.Store.ApplyBulkChange(ctx,
		mustFilter(t, inv.Store, types.And, eq("Model", "iPhone 15")),
		[]types.ChangeInstruction{{Field: "Notes", Value: " in March", Op: types.ChangeAppend}})
	if err != nil {
		t.Fatal(err)
	}
	fixture.AssertValue(t, mustGet(t, inv, "PhoneRemote"), "Notes", "issued to field team in March")
}
