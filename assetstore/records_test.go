package assetstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/assetstore/assetstore"
	fixture "github.com/arthur-debert/assetstore/assetstore/testutil"
	"github.com/arthur-debert/assetstore/types"
)

func TestAddRecordValidatesRequiredFields(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()

	_, err := inv.Store.AddRecord(ctx, map[string]string{"Asset Type": "Laptop", "Model": "  "})
	required := fixture.RequireErrorAs[*types.RequiredFieldError](t, err)
	if required.Field != "Model" {
		t.Errorf("expected Model, got %q", required.Field)
	}

	_, err = inv.Store.AddRecord(ctx, map[string]string{"Location": "HQ"})
	var all types.ValidationErrors
	if !errors.As(err, &all) {
		t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 problems, got %d: %v", len(all), all)
	}
}

func TestAddRecordEnforcesUniqueness(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()

	_, err := inv.Store.AddRecord(ctx, map[string]string{"Asset Type": "Laptop", "Model": "X300", "Serial Number": "SN-1"})
	conflict := fixture.RequireErrorAs[*types.UniquenessConflictError](t, err)
	if conflict.RecordID != inv.ID(t, "LaptopHQ") {
		t.Errorf("expected holder %d, got %d", inv.ID(t, "LaptopHQ"), conflict.RecordID)
	}

	if _, err := inv.Store.AddRecord(ctx, map[string]string{"Asset Type": "Laptop", "Model": "X300", "Serial Number": "SN-11"}); err != nil {
		t.Errorf("expected value of deleted record to be reusable, got %v", err)
	}
	if _, err := inv.Store.AddRecord(ctx, map[string]string{"Asset Type": "Cable", "Model": "USB-C"}); err != nil {
		t.Errorf("expected empty unique value to be allowed, got %v", err)
	}
}

func TestAddRecordNormalizesInput(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()

	id, err := inv.Store.AddRecord(ctx, map[string]string{"asset type": "Dock", "Model": "WD19", "Audit Date": "7/4/2024"})
	if err != nil {
		t.Fatal(err)
	}
	rec, err := inv.Store.GetRecord(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	fixture.AssertValue(t, rec, "Asset Type", "Dock")
	fixture.AssertValue(t, rec, "Audit Date", "2024-07-04")

	_, err = inv.Store.AddRecord(ctx, map[string]string{"Asset Type": "Dock", "Model": "WD19", "Audit Date": "someday"})
	fixture.RequireErrorAs[*types.InvalidValueError](t, err)

	_, err = inv.Store.AddRecord(ctx, map[string]string{"Asset Type": "Dock", "Model": "WD19", "Colour": "black"})
	fixture.RequireErrorAs[*types.UnknownFieldError](t, err)

	_, err = inv.Store.AddRecord(ctx, map[string]string{"Asset Type": "Dock", "Model": "WD19", "created_by": "mallory"})
	fixture.RequireErrorAs[*types.UnknownFieldError](t, err)
}

func TestGetRecordNotFound(t *testing.T) {
	inv := fixture.NewInventory(t)

	_, err := inv.Store.GetRecord(context.Background(), 9999)
	nf := fixture.RequireErrorAs[*types.NotFoundError](t, err)
	if nf.Name != "9999" {
		t.Errorf("expected name 9999, got %q", nf.Name)
	}
}

func TestDeleteAndRestoreRecord(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()
	id := inv.ID(t, "MonitorHQ")

	if err := inv.Store.DeleteRecord(ctx, id); err != nil {
		t.Fatal(err)
	}
	rec, err := inv.Store.GetRecord(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.IsDeleted {
		t.Error("expected record to be soft-deleted")
	}
	fixture.AssertValue(t, rec, "Model", "U2720")

	res, err := inv.Store.Execute(ctx, assetstore.MatchAll(), assetstore.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	fixture.AssertRecordCount(t, res.Records, fixture.InventoryLive-1)

	err = inv.Store.DeleteRecord(ctx, id)
	fixture.RequireErrorAs[*types.NotFoundError](t, err)

	err = inv.Store.UpdateRecord(ctx, id, []types.ChangeInstruction{{Field: "Status", Value: "Active"}})
	fixture.RequireErrorAs[*types.NotFoundError](t, err)

	if err := inv.Store.RestoreRecord(ctx, id); err != nil {
		t.Fatal(err)
	}
	res, err = inv.Store.Execute(ctx, assetstore.MatchAll(), assetstore.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	fixture.AssertRecordCount(t, res.Records, fixture.InventoryLive)

	err = inv.Store.RestoreRecord(ctx, id)
	fixture.RequireErrorAs[*types.NotFoundError](t, err)
}

func TestRestoreRecordRejectsTakenValue(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()

	taker, err := inv.Store.AddRecord(ctx, map[string]string{"Asset Type": "Laptop", "Model": "X300", "Serial Number": "SN-11"})
	if err != nil {
		t.Fatal(err)
	}

	err = inv.Store.RestoreRecord(ctx, inv.ID(t, "DeletedLaptop"))
	conflict := fixture.RequireErrorAs[*types.UniquenessConflictError](t, err)
	if conflict.RecordID != taker {
		t.Errorf("expected holder %d, got %d", taker, conflict.RecordID)
	}

	rec := mustGet(t, inv, "DeletedLaptop")
	if !rec.IsDeleted {
		t.Error("expected record to stay deleted")
	}
}

func TestUpdateRecord(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()
	id := inv.ID(t, "Switch")

	err := inv.Store.UpdateRecord(ctx, id, []types.ChangeInstruction{
		{Field: "Status", Value: "Active"},
		{Field: "Notes", Value: "firmware updated"},
	})
	if err != nil {
		t.Fatal(err)
	}
	rec := mustGet(t, inv, "Switch")
	fixture.AssertValue(t, rec, "Status", "Active")
	fixture.AssertValue(t, rec, "Notes", "firmware updated")
	fixture.AssertValue(t, mustGet(t, inv, "Router"), "Status", "Active")
}

func TestHistoryRecordsEveryAction(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()
	id := inv.ID(t, "Printer")

	if err := inv.Store.UpdateRecord(ctx, id, []types.ChangeInstruction{{Field: "Status", Value: "Repair"}}); err != nil {
		t.Fatal(err)
	}
	if err := inv.Store.DeleteRecord(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := inv.Store.RestoreRecord(ctx, id); err != nil {
		t.Fatal(err)
	}

	history, err := inv.Store.History(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	var actions []string
	for _, e := range history {
		actions = append(actions, e.Action)
		if e.RecordID != id {
			t.Errorf("expected record %d, got %d", id, e.RecordID)
		}
		if e.Actor != "fixture" {
			t.Errorf("expected actor fixture, got %q", e.Actor)
		}
	}
	want := []string{types.AuditRestore, types.AuditDelete, types.AuditUpdate, types.AuditInsert}
	if diff := cmp.Diff(want, actions); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
	if history[2].OldValue != "Active" || history[2].NewValue != "Repair" {
		t.Errorf("expected Active -> Repair, got %q -> %q", history[2].OldValue, history[2].NewValue)
	}
}

func TestAddRecordTrimsValues(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()

	_, err := inv.Store.AddRecord(ctx, map[string]string{"Asset Type": "Laptop", "Model": "X200", "Serial Number": " SN-2"})
	conflict := fixture.RequireErrorAs[*types.UniquenessConflictError](t, err)
	if conflict.RecordID != inv.ID(t, "LaptopAnnex") {
		t.Errorf("expected holder LaptopAnnex, got %d", conflict.RecordID)
	}

	id, err := inv.Store.AddRecord(ctx, map[string]string{"Asset Type": " Dock ", "Model": "WD19\t", "Serial Number": " SN-20 "})
	if err != nil {
		t.Fatal(err)
	}
	rec, err := inv.Store.GetRecord(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	fixture.AssertValue(t, rec, "Asset Type", "Dock")
	fixture.AssertValue(t, rec, "Model", "WD19")
	fixture.AssertValue(t, rec, "Serial Number", "SN-20")

	res, err := inv.Store.Search(ctx, []types.FilterClause{eq("Serial Number", "SN-20")}, types.And, assetstore.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	fixture.AssertSameIDs(t, res.Records, id)
}

func TestAddRecordRejectsRepeatedField(t *testing.T) {
	inv := fixture.NewInventory(t)

	_, err := inv.Store.AddRecord(context.Background(), map[string]string{"Asset Type": "Laptop", "Model": "X200", "model": "T14"})
	invalid := fixture.RequireErrorAs[*types.InvalidValueError](t, err)
	if invalid.Field != "Model" {
		t.Errorf("expected Model, got %q", invalid.Field)
	}

	res, err := inv.Store.Search(context.Background(), nil, types.And, assetstore.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != fixture.InventoryLive {
		t.Errorf("expected %d live records, got %d", fixture.InventoryLive, res.Total)
	}
}
