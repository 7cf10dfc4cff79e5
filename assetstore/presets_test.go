package assetstore_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/assetstore/assetstore"
	fixture "github.com/arthur-debert/assetstore/assetstore/testutil"
	"github.com/arthur-debert/assetstore/types"
)

func TestSavedSearchLifecycle(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()

	repairs := types.SavedSearch{
		Name:    "Needs attention",
		Clauses: []types.FilterClause{eq("Status", "Repair"), eq("Location", "Remote")},
		Mode:    types.Or,
	}
	if err := inv.Store.CreateSavedSearch(ctx, repairs); err != nil {
		t.Fatal(err)
	}
	if err := inv.Store.CreateSavedSearch(ctx, types.SavedSearch{Name: "annex", Clauses: []types.FilterClause{eq("Location", "Annex")}}); err != nil {
		t.Fatal(err)
	}

	got, err := inv.Store.GetSavedSearch(ctx, "needs ATTENTION")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(repairs, got); diff != "" {
		t.Errorf("saved search mismatch (-want +got):\n%s", diff)
	}

	res, err := inv.Store.RunSavedSearch(ctx, "Needs attention", assetstore.QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	fixture.AssertSameIDs(t, res.Records, inv.ID(t, "LaptopRepair"), inv.ID(t, "PhoneRemote"), inv.ID(t, "Switch"))

	list, err := inv.Store.ListSavedSearches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, ss := range list {
		names = append(names, ss.Name)
	}
	if diff := cmp.Diff([]string{"annex", "Needs attention"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if list[0].Mode != types.And {
		t.Errorf("expected empty mode stored as AND, got %q", list[0].Mode)
	}

	if err := inv.Store.RenameSavedSearch(ctx, "annex", "Annex stock"); err != nil {
		t.Fatal(err)
	}
	if _, err := inv.Store.GetSavedSearch(ctx, "annex"); err == nil {
		t.Error("expected old name to be gone")
	}
	if err := inv.Store.DeleteSavedSearch(ctx, "annex stock"); err != nil {
		t.Fatal(err)
	}
	list, err = inv.Store.ListSavedSearches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 saved search, got %d", len(list))
	}
}

func TestSavedSearchNameConflicts(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()
	clauses := []types.FilterClause{eq("Location", "HQ")}

	for _, name := range []string{"HQ", "Remote"} {
		if err := inv.Store.CreateSavedSearch(ctx, types.SavedSearch{Name: name, Clauses: clauses}); err != nil {
			t.Fatal(err)
		}
	}

	err := inv.Store.CreateSavedSearch(ctx, types.SavedSearch{Name: "hq", Clauses: clauses})
	dup := fixture.RequireErrorAs[*types.DuplicateNameError](t, err)
	if dup.Kind != "saved search" {
		t.Errorf("expected kind saved search, got %q", dup.Kind)
	}

	err = inv.Store.RenameSavedSearch(ctx, "Remote", "hq")
	fixture.RequireErrorAs[*types.DuplicateNameError](t, err)

	if err := inv.Store.RenameSavedSearch(ctx, "HQ", "hq"); err != nil {
		t.Errorf("expected case-only rename to succeed, got %v", err)
	}

	err = inv.Store.RenameSavedSearch(ctx, "Missing", "Other")
	fixture.RequireErrorAs[*types.NotFoundError](t, err)

	err = inv.Store.DeleteSavedSearch(ctx, "Missing")
	fixture.RequireErrorAs[*types.NotFoundError](t, err)

	if err := inv.Store.CreateSavedSearch(ctx, types.SavedSearch{Name: "  ", Clauses: clauses}); err == nil {
		t.Error("expected blank name to be rejected")
	}
}

func TestSavedSearchValidatesClauses(t *testing.T) {
	inv := fixture.NewInventory(t)

	err := inv.Store.CreateSavedSearch(context.Background(), types.SavedSearch{
		Name:    "broken",
		Clauses: []types.FilterClause{{Field: "Model", Operator: types.OpAfter, Value: "2024-01-01"}},
	})
	fixture.RequireErrorAs[*types.InvalidFilterError](t, err)

	_, err = inv.Store.GetSavedSearch(context.Background(), "broken")
	fixture.RequireErrorAs[*types.NotFoundError](t, err)
}

func TestPresetLifecycle(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()

	err := inv.Store.CreatePreset(ctx, types.Preset{
		Name: "Retire",
		Changes: []types.ChangeInstruction{
			{Field: "Status", Value: "Retired"},
			{Field: "Notes", Value: "retired", Op: "append"},
			{Field: "Location", Op: types.ChangeClear},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := inv.Store.GetPreset(ctx, "retire")
	if err != nil {
		t.Fatal(err)
	}
	want := types.Preset{
		Name: "Retire",
		Changes: []types.ChangeInstruction{
			{Field: "Status", Value: "Retired", Op: types.ChangeReplace},
			{Field: "Notes", Value: "retired", Op: types.ChangeAppend},
			{Field: "Location", Op: types.ChangeClear},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("preset mismatch (-want +got):\n%s", diff)
	}

	if err := inv.Store.RenamePreset(ctx, "Retire", "Decommission"); err != nil {
		t.Fatal(err)
	}
	list, err := inv.Store.ListPresets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "Decommission" {
		t.Errorf("expected only Decommission, got %+v", list)
	}

	if err := inv.Store.DeletePreset(ctx, "decommission"); err != nil {
		t.Fatal(err)
	}
	_, err = inv.Store.GetPreset(ctx, "Decommission")
	fixture.RequireErrorAs[*types.NotFoundError](t, err)
}

func TestPresetValidation(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()

	if err := inv.Store.CreatePreset(ctx, types.Preset{Name: "empty"}); err == nil {
		t.Error("expected preset without changes to be rejected")
	}

	err := inv.Store.CreatePreset(ctx, types.Preset{Name: "bad field", Changes: []types.ChangeInstruction{{Field: "Colour", Value: "red"}}})
	fixture.RequireErrorAs[*types.UnknownFieldError](t, err)

	err = inv.Store.CreatePreset(ctx, types.Preset{Name: "bad op", Changes: []types.ChangeInstruction{{Field: "Status", Value: "x", Op: "multiply"}}})
	fixture.RequireErrorAs[*types.InvalidValueError](t, err)

	if err := inv.Store.CreatePreset(ctx, types.Preset{Name: "ok", Changes: []types.ChangeInstruction{{Field: "Status", Value: "x"}}}); err != nil {
		t.Fatal(err)
	}
	err = inv.Store.CreatePreset(ctx, types.Preset{Name: "OK", Changes: []types.ChangeInstruction{{Field: "Status", Value: "y"}}})
	dup := fixture.RequireErrorAs[*types.DuplicateNameError](t, err)
	if dup.Kind != "preset" {
		t.Errorf("expected kind preset, got %q", dup.Kind)
	}
}

func TestRenameTrimsOldName(t *testing.T) {
	inv := fixture.NewInventory(t)
	ctx := context.Background()

	if err := inv.Store.CreateSavedSearch(ctx, types.SavedSearch{Name: "annex", Clauses: []types.FilterClause{eq("Location", "Annex")}}); err != nil {
		t.Fatal(err)
	}
	if err := inv.Store.RenameSavedSearch(ctx, "  annex ", "Annex stock"); err != nil {
		t.Fatalf("expected padded old name to resolve, got %v", err)
	}
	got, err := inv.Store.GetSavedSearch(ctx, "Annex stock")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Annex stock" {
		t.Errorf("expected renamed search, got %q", got.Name)
	}

	if err := inv.Store.CreatePreset(ctx, types.Preset{Name: "Retire", Changes: []types.ChangeInstruction{{Field: "Status", Value: "Retired"}}}); err != nil {
		t.Fatal(err)
	}
	if err := inv.Store.RenamePreset(ctx, " retire", "Decommission"); err != nil {
		t.Fatalf("expected padded old name to resolve, got %v", err)
	}
	if _, err := inv.Store.GetPreset(ctx, "Decommission"); err != nil {
		t.Fatal(err)
	}
}
