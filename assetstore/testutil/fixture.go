// Package testutil builds populated asset stores for tests.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/arthur-debert/assetstore/assetstore"
	"github.com/arthur-debert/assetstore/assetstore/fields"
	"github.com/arthur-debert/assetstore/assetstore/template"
	"github.com/arthur-debert/assetstore/types"
)

// InventoryHeaders is the template used by NewInventory.
var InventoryHeaders = []string{
	"*Asset Type", "*Model", "Serial Number", "Location", "Status", "Audit Date", "Notes",
}

// InventorySettings is the field registry used by NewInventory.
var InventorySettings = fields.Settings{
	DropdownFields: []string{"Asset Type", "Model", "Location", "Status"},
	UniqueFields:   []string{"Serial Number"},
	DateFields:     []string{"Audit Date"},
	ExcludedFields: []string{"Notes"},
}

// fixtureRecord is one row of the inventory fixture.
type fixtureRecord struct {
	label   string
	deleted bool
	values  map[string]string
}

var inventoryRecords = []fixtureRecord{
	{"LaptopHQ", false, map[string]string{"Asset Type": "Laptop", "Model": "X200", "Serial Number": "SN-1", "Location": "HQ", "Status": "Active", "Audit Date": "2024-01-15"}},
	{"LaptopAnnex", false, map[string]string{"Asset Type": "Laptop", "Model": "X200", "Serial Number": "SN-2", "Location": "Annex", "Status": "Active", "Audit Date": "2024-02-20"}},
	{"LaptopRepair", false, map[string]string{"Asset Type": "Laptop", "Model": "T14", "Serial Number": "SN-3", "Location": "HQ", "Status": "Repair", "Audit Date": "03/05/2024"}},
	{"MonitorHQ", false, map[string]string{"Asset Type": "Monitor", "Model": "U2720", "Serial Number": "SN-4", "Location": "HQ", "Status": "Active"}},
	{"MonitorRetired", false, map[string]string{"Asset Type": "Monitor", "Model": "U2720", "Serial Number": "SN-5", "Location": "Annex", "Status": "Retired", "Audit Date": "2023-12-01"}},
	{"PhoneHQ", false, map[string]string{"Asset Type": "Phone", "Model": "Pixel 8", "Serial Number": "SN-6", "Location": "HQ", "Status": "Active", "Audit Date": "2024-04-10"}},
	{"PhoneRemote", false, map[string]string{"Asset Type": "Phone", "Model": "iPhone 15", "Serial Number": "SN-7", "Location": "Remote", "Status": "Active", "Notes": "issued to field team"}},
	{"Printer", false, map[string]string{"Asset Type": "Printer", "Model": "LaserJet_5%", "Serial Number": "SN-8", "Location": "Annex", "Status": "Active", "Audit Date": "2024-05-01"}},
	{"Router", false, map[string]string{"Asset Type": "Router", "Model": "MX-100", "Location": "HQ", "Status": "Active", "Audit Date": "2024-01-31"}},
	{"Switch", false, map[string]string{"Asset Type": "Switch", "Model": `Cisco "9300"`, "Serial Number": "SN-10", "Location": "HQ", "Status": "Repair"}},
	{"DeletedLaptop", true, map[string]string{"Asset Type": "Laptop", "Model": "X200", "Serial Number": "SN-11", "Location": "HQ", "Status": "Active"}},
	{"DeletedTablet", true, map[string]string{"Asset Type": "Tablet", "Model": "iPad", "Serial Number": "SN-12", "Location": "Remote", "Status": "Lost"}},
}

// InventoryLive and InventoryDeleted count the fixture's records.
const (
	InventoryLive    = 10
	InventoryDeleted = 2
)

// Inventory is a store populated with the fixture records.
type Inventory struct {
	Store    *assetstore.Store
	Registry *fields.Registry
	Specs    []types.FieldSpec
	Clock    *Clock

	// IDs maps fixture labels such as "LaptopHQ" to record identities.
	IDs map[string]int64
}

// ID returns the identity of a fixture record, failing the test for an
// unknown label.
func (inv *Inventory) ID(t *testing.T, label string) int64 {
	t.Helper()
	id, ok := inv.IDs[label]
	if !ok {
		t.Fatalf("unknown fixture record %q", label)
	}
	return id
}

// NewInventory creates a file-backed store in a temp dir, synchronizes the
// inventory template and inserts the fixture records.
func NewInventory(t *testing.T) *Inventory {
	t.Helper()
	ctx := context.Background()

	registry := fields.NewRegistry(InventorySettings)
	clock := NewClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	store := NewStore(t, assetstore.Options{Registry: registry, Actor: "fixture", Clock: clock.Now})

	specs, err := template.Parse(InventoryHeaders)
	if err != nil {
		t.Fatalf("failed to parse fixture template: %v", err)
	}
	if _, err := store.Synchronize(ctx, specs); err != nil {
		t.Fatalf("failed to synchronize fixture schema: %v", err)
	}

	inv := &Inventory{
		Store:    store,
		Registry: registry,
		Specs:    registry.Annotate(specs),
		Clock:    clock,
		IDs:      make(map[string]int64, len(inventoryRecords)),
	}
	for _, rec := range inventoryRecords {
		id, err := store.AddRecord(ctx, rec.values)
		if err != nil {
			t.Fatalf("failed to add fixture record %s: %v", rec.label, err)
		}
		inv.IDs[rec.label] = id
		clock.Advance(time.Minute)
	}
	for _, rec := range inventoryRecords {
		if rec.deleted {
			if err := store.DeleteRecord(ctx, inv.IDs[rec.label]); err != nil {
				t.Fatalf("failed to delete fixture record %s: %v", rec.label, err)
			}
		}
	}
	return inv
}

// NewStore opens an empty store in a temp dir and closes it when the test
// ends.
func NewStore(t *testing.T, opts assetstore.Options) *assetstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.db")
	store, err := assetstore.Open(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
