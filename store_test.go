package whatif

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	return s
}

func TestStore_CreateGetListReality(t *testing.T) {
	s := testStore(t)
	r := testBaseline(t, week("NVDA", USD(100)))

	if err := s.CreateReality(r); err != nil {
		t.Fatalf("CreateReality() error = %v", err)
	}
	if r.ID == "" {
		t.Fatal("CreateReality() left the id empty")
	}

	entries := s.ListRealities()
	if got, want := len(entries), 1; got != want {
		t.Fatalf("len(ListRealities()) = %d, want %d", got, want)
	}
	if entries[0].ID != r.ID || entries[0].Kind != KindReality {
		t.Errorf("ListRealities()[0] = %+v, want entry for %q", entries[0], r.ID)
	}

	got, err := s.GetReality(r.ID)
	if err != nil {
		t.Fatalf("GetReality() error = %v", err)
	}
	if got.Name != r.Name || got.StartDate != r.StartDate || len(got.Snapshots) != len(r.Snapshots) {
		t.Errorf("GetReality() = %+v, does not round-trip %+v", got, r)
	}
	if !got.CurrentValue().Equal(r.CurrentValue()) {
		t.Errorf("GetReality().CurrentValue() = %v, want %v", got.CurrentValue(), r.CurrentValue())
	}
}

func TestStore_GetUnknownIsNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.GetReality("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetReality(unknown) error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetHistory("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetHistory(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestStore_DeleteReality(t *testing.T) {
	s := testStore(t)
	r := testBaseline(t, week("NVDA", USD(100)))
	if err := s.CreateReality(r); err != nil {
		t.Fatalf("CreateReality() error = %v", err)
	}
	path := s.recordPath(KindReality, r.ID)

	if err := s.DeleteReality(r.ID); err != nil {
		t.Fatalf("DeleteReality() error = %v", err)
	}
	if _, err := s.GetReality(r.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetReality(deleted) error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteReality(r.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteReality(deleted) error = %v, want ErrNotFound", err)
	}

	// a stray record file does not resurrect the entity, the index decides
	if err := os.WriteFile(path, []byte(`{"id":"ghost"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetReality(r.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetReality() with stray record error = %v, want ErrNotFound", err)
	}
}

func TestStore_CreateHistoryRequiresBase(t *testing.T) {
	s := testStore(t)
	h := &History{BaseReality: "missing"}
	if err := s.CreateHistory(h); !errors.Is(err, ErrNotFound) {
		t.Errorf("CreateHistory() error = %v, want ErrNotFound", err)
	}
}

func TestStore_HistoryRoundTrip(t *testing.T) {
	s := testStore(t)
	src := week("NVDA", USD(100))
	base := testBaseline(t, src)
	if err := s.CreateReality(base); err != nil {
		t.Fatalf("CreateReality() error = %v", err)
	}

	mods := []Modification{{Date: D("2024-01-03"), Action: Sell, Ticker: "NVDA", Shares: Q(5), Source: User}}
	h, err := ApplyModifications(context.Background(), src, base, mods)
	if err != nil {
		t.Fatalf("ApplyModifications() error = %v", err)
	}
	if err := s.CreateHistory(h); err != nil {
		t.Fatalf("CreateHistory() error = %v", err)
	}

	got, err := s.GetHistory(h.ID)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if got.BaseReality != base.ID || len(got.Modifications) != 1 || len(got.Snapshots) != len(h.Snapshots) {
		t.Errorf("GetHistory() = %+v, does not round-trip", got)
	}

	entries := s.ListHistories()
	if len(entries) != 1 || entries[0].BaseReality != base.ID {
		t.Errorf("ListHistories() = %+v, want one entry on %q", entries, base.ID)
	}

	if err := s.DeleteHistory(h.ID); err != nil {
		t.Fatalf("DeleteHistory() error = %v", err)
	}
	if _, err := s.GetHistory(h.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetHistory(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	root := t.TempDir()
	s, err := OpenStore(root)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	r := testBaseline(t, week("NVDA", USD(100)))
	if err := s.CreateReality(r); err != nil {
		t.Fatalf("CreateReality() error = %v", err)
	}

	s2, err := OpenStore(root)
	if err != nil {
		t.Fatalf("OpenStore() reopen error = %v", err)
	}
	if _, err := s2.GetReality(r.ID); err != nil {
		t.Errorf("GetReality() after reopen error = %v", err)
	}
}

func TestStore_RebuildIndex(t *testing.T) {
	root := t.TempDir()
	s, err := OpenStore(root)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	src := week("NVDA", USD(100))
	base := testBaseline(t, src)
	if err := s.CreateReality(base); err != nil {
		t.Fatalf("CreateReality() error = %v", err)
	}
	h, err := ApplyModifications(context.Background(), src, base, nil)
	if err != nil {
		t.Fatalf("ApplyModifications() error = %v", err)
	}
	if err := s.CreateHistory(h); err != nil {
		t.Fatalf("CreateHistory() error = %v", err)
	}

	// lose the index, reopen, nothing is visible anymore
	if err := os.Remove(filepath.Join(root, indexFile)); err != nil {
		t.Fatal(err)
	}
	s2, err := OpenStore(root)
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if got := len(s2.ListRealities()) + len(s2.ListHistories()); got != 0 {
		t.Fatalf("entries visible without an index: %d", got)
	}

	// a corrupt record is skipped, the valid ones come back
	if err := os.WriteFile(filepath.Join(root, "realities", "junk.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := s2.RebuildIndex(); err != nil {
		t.Fatalf("RebuildIndex() error = %v", err)
	}
	if _, err := s2.GetReality(base.ID); err != nil {
		t.Errorf("GetReality() after rebuild error = %v", err)
	}
	if _, err := s2.GetHistory(h.ID); err != nil {
		t.Errorf("GetHistory() after rebuild error = %v", err)
	}
	if got, want := len(s2.ListRealities()), 1; got != want {
		t.Errorf("len(ListRealities()) = %d, want %d", got, want)
	}
}

func TestStore_RefreshReality(t *testing.T) {
	s := testStore(t)
	src := newFakeSource()
	start := Today().Add(-7)
	r := &Reality{
		Name:         "pinned",
		StartDate:    start,
		StartingCash: USD(1000),
		Purchases:    []Purchase{{Ticker: "ZZZ", Shares: Q(10), Price: USD(50)}},
		ScenarioType: Custom,
	}
	snapshots, err := BuildTimeline(context.Background(), src, start, r.StartingCash, r.Purchases, start.Add(2))
	if err != nil {
		t.Fatalf("BuildTimeline() error = %v", err)
	}
	r.Snapshots = snapshots
	if err := s.CreateReality(r); err != nil {
		t.Fatalf("CreateReality() error = %v", err)
	}

	refreshed, err := s.RefreshReality(context.Background(), src, r.ID)
	if err != nil {
		t.Fatalf("RefreshReality() error = %v", err)
	}
	if refreshed.LastRefreshedAt.IsZero() {
		t.Error("RefreshReality() left LastRefreshedAt zero")
	}
	if len(refreshed.Snapshots) <= len(snapshots) {
		t.Errorf("RefreshReality() has %d snapshots, want more than the initial %d", len(refreshed.Snapshots), len(snapshots))
	}
	if got, want := refreshed.StartDate, start; got != want {
		t.Errorf("RefreshReality() changed StartDate to %s", got)
	}

	// refreshing again with unchanged price data is idempotent on values
	again, err := s.RefreshReality(context.Background(), src, r.ID)
	if err != nil {
		t.Fatalf("RefreshReality() error = %v", err)
	}
	if !again.CurrentValue().Equal(refreshed.CurrentValue()) {
		t.Errorf("second refresh value %v, want %v", again.CurrentValue(), refreshed.CurrentValue())
	}
}

func TestStore_OneWriterPerID(t *testing.T) {
	s := testStore(t)
	r := testBaseline(t, week("NVDA", USD(100)))
	if err := s.CreateReality(r); err != nil {
		t.Fatalf("CreateReality() error = %v", err)
	}

	if err := s.lockID(r.ID); err != nil {
		t.Fatalf("lockID() error = %v", err)
	}
	if err := s.UpdateReality(r); err == nil {
		t.Error("UpdateReality() succeeded while another mutation holds the id")
	}
	if err := s.DeleteReality(r.ID); err == nil {
		t.Error("DeleteReality() succeeded while another mutation holds the id")
	}
	s.unlockID(r.ID)

	if err := s.UpdateReality(r); err != nil {
		t.Errorf("UpdateReality() after release error = %v", err)
	}
}
