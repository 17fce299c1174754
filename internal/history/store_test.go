package history

import (
	"path/filepath"
	"testing"
	"time"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []Run{
		{Timestamp: base, Workspace: "/work/app", Package: "app", Target: "app", Kind: "bin", FileCount: 12, DurationMS: 40, Outcome: "success"},
		{Timestamp: base.Add(time.Second), Workspace: "/work/app", Package: "app", Target: "app", Kind: "lib", FileCount: 0, DurationMS: 3, Outcome: "error", ErrorCode: "UNRESOLVED_MODULE"},
	}
	for _, run := range runs {
		if err := store.RecordRun(run); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	got, err := store.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}

	// Newest first.
	if got[0].Kind != "lib" || got[0].ErrorCode != "UNRESOLVED_MODULE" {
		t.Errorf("unexpected first run: %+v", got[0])
	}
	if got[1].FileCount != 12 || got[1].Outcome != "success" {
		t.Errorf("unexpected second run: %+v", got[1])
	}
	if got[0].RunID == "" || got[0].RunID == got[1].RunID {
		t.Errorf("run ids must be unique and non-empty: %q vs %q", got[0].RunID, got[1].RunID)
	}
	if !got[1].Timestamp.Equal(base) {
		t.Errorf("timestamp did not round trip: %v", got[1].Timestamp)
	}
}

func TestStoreRejectsDirectoryPath(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("expected an error for a directory path")
	}
}

func TestStoreRejectsEmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestStoreReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.RecordRun(Run{Workspace: "/w", Package: "p", Target: "t", Kind: "bin", Outcome: "success"}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.RecentRuns(0)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 run after reopen, got %d", len(got))
	}
}
