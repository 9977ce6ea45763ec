package ledger_test

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"battrack/internal/faults"
	"battrack/internal/ledger"
	"battrack/internal/testsupport"
)

func TestEnsureFilesHealsHeaders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	raw, err := os.ReadFile(cfg.Ledger.SerialFile)
	if err != nil {
		t.Fatalf("read serial ledger: %v", err)
	}
	if !strings.HasPrefix(string(raw), "creation_ts,serial,qr_code") {
		t.Fatalf("serial ledger header = %q", string(raw))
	}

	raw, err = os.ReadFile(cfg.Ledger.SavFile)
	if err != nil {
		t.Fatalf("read sav ledger: %v", err)
	}
	if !strings.HasPrefix(string(raw), "arrival_ts,serial,departure_ts") {
		t.Fatalf("sav ledger header = %q", string(raw))
	}

	// A second heal over valid files is a no-op.
	if err := store.EnsureFiles(); err != nil {
		t.Fatalf("second EnsureFiles: %v", err)
	}
}

func TestEnsureFilesReplacesCorruptHeader(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.WriteFile(cfg.Ledger.SerialFile, []byte("garbage,no,header\n1,2,3\n"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	records, err := store.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("corrupt file should reinitialize empty, got %d records", len(records))
	}
}

func TestNewRecordSequenceMonotonic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := testsupport.NewRecord(t, store, "B", ledger.Timestamp(time.Now()))
	if first.Serial != "RW-48vXXX0000" {
		t.Fatalf("first serial = %q, want RW-48vXXX0000", first.Serial)
	}
	if first.SavStatus {
		t.Fatal("new record must not carry the service flag")
	}
	if len(first.QRCode) != 6 {
		t.Fatalf("qr code = %q, want 6 chars", first.QRCode)
	}

	second := testsupport.NewRecord(t, store, "A", ledger.Timestamp(time.Now()))
	if second.Serial != "RW-48vXXX0001" {
		t.Fatalf("second serial = %q, want RW-48vXXX0001", second.Serial)
	}

	// Finalizing the first record must not disturb allocation: sequence
	// scanning spans every capacity segment under the prefix.
	if _, err := store.Finalize(first.Serial, "271"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	third := testsupport.NewRecord(t, store, "B", ledger.Timestamp(time.Now()))
	if third.Serial != "RW-48vXXX0002" {
		t.Fatalf("third serial = %q, want RW-48vXXX0002", third.Serial)
	}
}

func TestFinalizeRewritesCapacityMarker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := testsupport.NewRecord(t, store, "B", "2026-09-01T08:00:00")

	finalized, err := store.Finalize(rec.Serial, "271")
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if finalized != "RW-48v2710000" {
		t.Fatalf("finalized = %q, want RW-48v2710000", finalized)
	}

	got, err := store.Find(finalized)
	if err != nil {
		t.Fatalf("Find finalized: %v", err)
	}
	if got.QRCode != rec.QRCode || got.CreationTS != rec.CreationTS {
		t.Fatal("finalize must preserve qr code and creation timestamp")
	}

	if _, err := store.Find(rec.Serial); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("placeholder serial should be gone, got %v", err)
	}

	// Finalizing an already-final serial is a validation error.
	if _, err := store.Finalize(finalized, "230"); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("double finalize error = %v, want validation", err)
	}
}

func TestResolveFullAndShortForm(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := testsupport.NewRecord(t, store, "C", "2026-09-01T08:00:00")
	if _, err := store.Finalize(rec.Serial, "86"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	byFull, err := store.Resolve("RW-48v860000")
	if err != nil {
		t.Fatalf("Resolve full: %v", err)
	}
	byShort, err := store.Resolve("0000")
	if err != nil {
		t.Fatalf("Resolve short: %v", err)
	}
	if byFull.Serial != byShort.Serial {
		t.Fatalf("full %q and short %q resolved different records", byFull.Serial, byShort.Serial)
	}

	if _, err := store.Resolve("9999"); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("unknown short form error = %v, want not found", err)
	}
	if _, err := store.Resolve("RW-48v869999"); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("unknown serial error = %v, want not found", err)
	}
}

func TestSetTestDoneStampsVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := testsupport.NewRecord(t, store, "A", "2026-09-01T08:00:00")

	updated, err := store.SetTestDone(rec.Serial, "2026-09-01T10:30:00")
	if err != nil {
		t.Fatalf("SetTestDone: %v", err)
	}
	if !updated {
		t.Fatal("expected a row to match")
	}
	got, err := store.Find(rec.Serial)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.TestDoneTS != "2026-09-01T10:30:00" {
		t.Fatalf("test_done_ts = %q", got.TestDoneTS)
	}
	if got.Version != "test" {
		t.Fatalf("version = %q, want refresh to %q", got.Version, "test")
	}

	updated, err = store.SetTestDone("RW-48vXXX9999", "2026-09-01T10:30:00")
	if err != nil {
		t.Fatalf("SetTestDone missing: %v", err)
	}
	if updated {
		t.Fatal("no row should match an unknown serial")
	}
}

func TestSetShippingNeverClears(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := testsupport.NewRecord(t, store, "A", "2026-09-01T08:00:00")

	if _, err := store.SetShipping(rec.Serial, "2026-09-01T12:00:00"); err != nil {
		t.Fatalf("SetShipping: %v", err)
	}
	// A later shipment refreshes the timestamp.
	if _, err := store.SetShipping(rec.Serial, "2026-09-02T09:00:00"); err != nil {
		t.Fatalf("SetShipping refresh: %v", err)
	}
	got, _ := store.Find(rec.Serial)
	if got.ShippingTS != "2026-09-02T09:00:00" {
		t.Fatalf("shipping_ts = %q", got.ShippingTS)
	}

	if _, err := store.SetShipping(rec.Serial, ""); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("clearing shipping should be rejected, got %v", err)
	}
}

func TestSavLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := testsupport.NewRecord(t, store, "B", "2026-09-01T08:00:00")

	open, err := store.SavOpen(rec.Serial)
	if err != nil || open {
		t.Fatalf("SavOpen before entry = (%v, %v)", open, err)
	}

	if err := store.OpenSav(rec.Serial, "2026-09-01T09:00:00"); err != nil {
		t.Fatalf("OpenSav: %v", err)
	}
	open, err = store.SavOpen(rec.Serial)
	if err != nil || !open {
		t.Fatalf("SavOpen after entry = (%v, %v)", open, err)
	}
	got, _ := store.Find(rec.Serial)
	if !got.SavStatus {
		t.Fatal("main ledger flag should be set after entry")
	}

	// Double entry rejected while the visit is open.
	if err := store.OpenSav(rec.Serial, "2026-09-01T09:05:00"); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("double entry error = %v, want validation", err)
	}

	if err := store.CloseSav(rec.Serial, "2026-09-02T16:00:00"); err != nil {
		t.Fatalf("CloseSav: %v", err)
	}
	open, err = store.SavOpen(rec.Serial)
	if err != nil || open {
		t.Fatalf("SavOpen after departure = (%v, %v)", open, err)
	}
	got, _ = store.Find(rec.Serial)
	if got.SavStatus {
		t.Fatal("main ledger flag should be cleared after departure")
	}

	// Departure without an open visit rejected.
	if err := store.CloseSav(rec.Serial, "2026-09-03T10:00:00"); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("departure without entry error = %v, want validation", err)
	}

	// A second visit may open after the first closed.
	if err := store.OpenSav(rec.Serial, "2026-09-04T09:00:00"); err != nil {
		t.Fatalf("second OpenSav: %v", err)
	}
	savRecords, err := store.SavRecords()
	if err != nil {
		t.Fatalf("SavRecords: %v", err)
	}
	if len(savRecords) != 2 {
		t.Fatalf("sub-ledger rows = %d, want 2", len(savRecords))
	}
}

func TestSavOpenFollowsServiceFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := testsupport.NewRecord(t, store, "B", "2026-09-01T08:00:00")

	// A stray open row can exist when the flag update failed after the
	// sub-ledger write. The main ledger flag stays authoritative.
	f, err := os.OpenFile(cfg.Ledger.SavFile, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open sav ledger: %v", err)
	}
	if _, err := f.WriteString("2026-09-01T09:00:00," + rec.Serial + ",\n"); err != nil {
		t.Fatalf("append stray row: %v", err)
	}
	f.Close()

	open, err := store.SavOpen(rec.Serial)
	if err != nil || open {
		t.Fatalf("SavOpen = (%v, %v), want false from the clear flag", open, err)
	}

	// Entry gating also follows the flag, not the stray row.
	if err := store.OpenSav(rec.Serial, "2026-09-01T10:00:00"); err != nil {
		t.Fatalf("OpenSav with clear flag: %v", err)
	}
}

func TestStatsCounters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	now := time.Date(2026, 9, 15, 15, 0, 0, 0, time.Local)
	today := ledger.Timestamp(now)
	lastWeek := ledger.Timestamp(now.AddDate(0, 0, -7))
	lastMonth := ledger.Timestamp(now.AddDate(0, -1, 0))

	seed := []ledger.Record{
		{CreationTS: today, Serial: "RW-48vXXX0000", QRCode: "aaaaaa", UnitType: "A", Version: "test"},
		{CreationTS: lastWeek, Serial: "RW-48v2710001", QRCode: "bbbbbb", UnitType: "B", Version: "test", ShippingTS: today},
		{CreationTS: lastWeek, Serial: "RW-48v2710002", QRCode: "cccccc", UnitType: "B", Version: "test", ShippingTS: lastWeek},
		{CreationTS: lastMonth, Serial: "RW-48v860003", QRCode: "dddddd", UnitType: "C", Version: "test", ShippingTS: lastMonth},
	}
	for _, rec := range seed {
		if err := store.Create(rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	stats, err := store.Stats(now)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRecords != 4 {
		t.Errorf("TotalRecords = %d, want 4", stats.TotalRecords)
	}
	if stats.ProducedToday != 1 {
		t.Errorf("ProducedToday = %d, want 1", stats.ProducedToday)
	}
	if stats.ShippedToday != 1 {
		t.Errorf("ShippedToday = %d, want 1", stats.ShippedToday)
	}
	if stats.ShippedMonth != 2 {
		t.Errorf("ShippedMonth = %d, want 2", stats.ShippedMonth)
	}

	if err := store.OpenSav("RW-48v2710001", today); err != nil {
		t.Fatalf("OpenSav: %v", err)
	}
	if err := store.CloseSav("RW-48v2710001", today); err != nil {
		t.Fatalf("CloseSav: %v", err)
	}
	if err := store.OpenSav("RW-48v2710002", today); err != nil {
		t.Fatalf("OpenSav second: %v", err)
	}

	savStats, err := store.SavStats(now)
	if err != nil {
		t.Fatalf("SavStats: %v", err)
	}
	if savStats.TotalEntries != 2 {
		t.Errorf("TotalEntries = %d, want 2", savStats.TotalEntries)
	}
	if savStats.OpenVisits != 1 {
		t.Errorf("OpenVisits = %d, want 1", savStats.OpenVisits)
	}
	if savStats.DeparturesToday != 1 {
		t.Errorf("DeparturesToday = %d, want 1", savStats.DeparturesToday)
	}
}
