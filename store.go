package whatif

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kinds of entities the store knows about.
const (
	KindReality = "reality"
	KindHistory = "history"
)

const indexFile = "index.json"

// IndexEntry is the denormalized summary of one stored entity. The index is
// a lookup cache: the record files are the durable source and the index can
// always be rebuilt from them.
type IndexEntry struct {
	ID              string       `json:"id"`
	Kind            string       `json:"kind"`
	Name            string       `json:"name,omitempty"`
	ScenarioType    ScenarioType `json:"scenario_type,omitempty"`
	BaseReality     string       `json:"base_reality,omitempty"`
	CurrentValue    Money        `json:"current_value,omitzero"`
	CreatedAt       time.Time    `json:"created_at"`
	LastRefreshedAt time.Time    `json:"last_refreshed_at,omitzero"`
}

// Store persists Realities and Histories under a root directory:
//
//	<root>/index.json
//	<root>/realities/<id>.json
//	<root>/histories/<id>.json
//
// The on-disk index is the single source of truth for existence: an entity
// absent from the index is deleted even if its record file remains. All
// writes go through write-temp-then-rename, a crash mid-write cannot corrupt
// the index or a record. The store allows any number of concurrent readers
// but at most one writer per entity id.
type Store struct {
	root string

	mu      sync.Mutex
	index   map[string]IndexEntry
	writing map[string]bool
}

// OpenStore loads (or initializes) a store rooted at path.
func OpenStore(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, "realities"), 0755); err != nil {
		return nil, fmt.Errorf("could not create store at %q: %w", root, err)
	}
	if err := os.MkdirAll(filepath.Join(root, "histories"), 0755); err != nil {
		return nil, fmt.Errorf("could not create store at %q: %w", root, err)
	}

	s := &Store{
		root:    root,
		index:   make(map[string]IndexEntry),
		writing: make(map[string]bool),
	}

	data, err := os.ReadFile(filepath.Join(root, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read index: %w", err)
	}
	var idx struct {
		Entries []IndexEntry `json:"entries"`
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("could not decode index: %w", err)
	}
	for _, e := range idx.Entries {
		s.index[e.ID] = e
	}
	return s, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// writeFileAtomic writes data to path through a temp file in the same
// directory followed by a rename.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("could not create temp file for %q: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("could not write %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("could not close %q: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("could not rename %q into place: %w", path, err)
	}
	return nil
}

// saveIndex persists the index. Callers hold s.mu.
func (s *Store) saveIndex() error {
	entries := make([]IndexEntry, 0, len(s.index))
	for _, e := range s.index {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b IndexEntry) int { return strings.Compare(a.ID, b.ID) })

	var w jsonObjectWriter
	w.Append("entries", entries)
	data, err := json.MarshalIndent(&w, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode index: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.root, indexFile), data)
}

// lockID takes the per-id writer guard, failing instead of waiting: a
// mutation in progress for an id must complete before another one for the
// same id is accepted.
func (s *Store) lockID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writing[id] {
		return fmt.Errorf("a mutation of %q is already in progress", id)
	}
	s.writing[id] = true
	return nil
}

func (s *Store) unlockID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.writing, id)
}

// newID generates a fresh unique id, verified against the index.
func (s *Store) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		id := uuid.NewString()
		if _, taken := s.index[id]; !taken {
			return id
		}
	}
}

func (s *Store) recordPath(kind, id string) string {
	dir := "realities"
	if kind == KindHistory {
		dir = "histories"
	}
	return filepath.Join(s.root, dir, id+".json")
}

// writeRecord writes a record file and then publishes the entity in the
// index. The record goes first: an index entry must never point at a missing
// record.
func (s *Store) writeRecord(e IndexEntry, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode %s %q: %w", e.Kind, e.ID, err)
	}
	if err := writeFileAtomic(s.recordPath(e.Kind, e.ID), data); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[e.ID] = e
	return s.saveIndex()
}

// delete removes id from the index first, then best-effort removes the
// record file. Reads for the id fail with ErrNotFound as soon as the index
// no longer lists it.
func (s *Store) delete(id string) error {
	if err := s.lockID(id); err != nil {
		return err
	}
	defer s.unlockID(id)

	s.mu.Lock()
	e, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	delete(s.index, id)
	err := s.saveIndex()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if rmErr := os.Remove(s.recordPath(e.Kind, id)); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		log.Printf("could not remove record of %q: %v", id, rmErr)
	}
	return nil
}

// lookup returns the index entry for id, of the wanted kind.
func (s *Store) lookup(id, kind string) (IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.index[id]
	if !ok || e.Kind != kind {
		return IndexEntry{}, fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return e, nil
}

// list returns index entries of one kind, most recent first.
func (s *Store) list(kind string) []IndexEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []IndexEntry
	for _, e := range s.index {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b IndexEntry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func realityEntry(r *Reality) IndexEntry {
	return IndexEntry{
		ID:              r.ID,
		Kind:            KindReality,
		Name:            r.Name,
		ScenarioType:    r.ScenarioType,
		CurrentValue:    r.CurrentValue(),
		CreatedAt:       r.CreatedAt,
		LastRefreshedAt: r.LastRefreshedAt,
	}
}

func historyEntry(h *History) IndexEntry {
	return IndexEntry{
		ID:           h.ID,
		Kind:         KindHistory,
		BaseReality:  h.BaseReality,
		CurrentValue: h.CurrentValue(),
		CreatedAt:    h.CreatedAt,
	}
}

// CreateReality assigns the Reality a fresh id and persists it. The caller
// provides a Reality whose snapshots were already computed.
func (s *Store) CreateReality(r *Reality) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.ID = s.newID()
	r.CreatedAt = time.Now()
	if err := s.lockID(r.ID); err != nil {
		return err
	}
	defer s.unlockID(r.ID)
	return s.writeRecord(realityEntry(r), r)
}

// GetReality reads a Reality by id. It decodes the record file fresh on
// every call, so no mutable state is ever shared between callers.
func (s *Store) GetReality(id string) (*Reality, error) {
	e, err := s.lookup(id, KindReality)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.recordPath(e.Kind, e.ID))
	if err != nil {
		return nil, fmt.Errorf("could not read reality %q: %w", id, err)
	}
	var r Reality
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("could not decode reality %q: %w", id, err)
	}
	return &r, nil
}

// ListRealities returns index summaries of all realities, most recent first.
func (s *Store) ListRealities() []IndexEntry { return s.list(KindReality) }

// UpdateReality persists a changed Reality under its existing id.
func (s *Store) UpdateReality(r *Reality) error {
	if _, err := s.lookup(r.ID, KindReality); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if err := s.lockID(r.ID); err != nil {
		return err
	}
	defer s.unlockID(r.ID)
	return s.writeRecord(realityEntry(r), r)
}

// DeleteReality removes a Reality by id.
func (s *Store) DeleteReality(id string) error {
	if _, err := s.lookup(id, KindReality); err != nil {
		return err
	}
	return s.delete(id)
}

// RefreshReality recomputes a Reality's snapshots from current price data
// and its stored purchases. Identity and purchases are untouched; only
// snapshots and last_refreshed_at change. The store is written only after
// the full timeline is computed, cancellation mid-build leaves the persisted
// state untouched.
func (s *Store) RefreshReality(ctx context.Context, src PriceSource, id string) (*Reality, error) {
	r, err := s.GetReality(id)
	if err != nil {
		return nil, err
	}
	if err := s.lockID(id); err != nil {
		return nil, err
	}
	defer s.unlockID(id)

	snapshots, err := BuildTimeline(ctx, src, r.StartDate, r.StartingCash, r.Purchases, Today())
	if err != nil {
		return nil, fmt.Errorf("could not refresh reality %q: %w", id, err)
	}
	r.Snapshots = snapshots
	r.LastRefreshedAt = time.Now()
	if err := s.writeRecord(realityEntry(r), r); err != nil {
		return nil, err
	}
	return r, nil
}

// CreateHistory assigns the History a fresh id and persists it.
func (s *Store) CreateHistory(h *History) error {
	if _, err := s.lookup(h.BaseReality, KindReality); err != nil {
		return fmt.Errorf("history needs an existing base reality: %w", err)
	}
	h.ID = s.newID()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	if err := s.lockID(h.ID); err != nil {
		return err
	}
	defer s.unlockID(h.ID)
	return s.writeRecord(historyEntry(h), h)
}

// GetHistory reads a History by id.
func (s *Store) GetHistory(id string) (*History, error) {
	e, err := s.lookup(id, KindHistory)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.recordPath(e.Kind, e.ID))
	if err != nil {
		return nil, fmt.Errorf("could not read history %q: %w", id, err)
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("could not decode history %q: %w", id, err)
	}
	return &h, nil
}

// ListHistories returns index summaries of all histories, most recent first.
func (s *Store) ListHistories() []IndexEntry { return s.list(KindHistory) }

// UpdateHistory persists a changed History under its existing id.
func (s *Store) UpdateHistory(h *History) error {
	if _, err := s.lookup(h.ID, KindHistory); err != nil {
		return err
	}
	if err := s.lockID(h.ID); err != nil {
		return err
	}
	defer s.unlockID(h.ID)
	return s.writeRecord(historyEntry(h), h)
}

// DeleteHistory removes a History by id.
func (s *Store) DeleteHistory(id string) error {
	if _, err := s.lookup(id, KindHistory); err != nil {
		return err
	}
	return s.delete(id)
}

// RebuildIndex reconstructs the index by scanning the record files,
// recovering from a lost or inconsistent index. Unreadable records are
// skipped with a warning.
func (s *Store) RebuildIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rebuilt := make(map[string]IndexEntry)

	realities, err := filepath.Glob(filepath.Join(s.root, "realities", "*.json"))
	if err != nil {
		return err
	}
	for _, path := range realities {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("skipping unreadable record %q: %v", path, err)
			continue
		}
		var r Reality
		if err := json.Unmarshal(data, &r); err != nil || r.ID == "" {
			log.Printf("skipping invalid record %q: %v", path, err)
			continue
		}
		rebuilt[r.ID] = realityEntry(&r)
	}

	histories, err := filepath.Glob(filepath.Join(s.root, "histories", "*.json"))
	if err != nil {
		return err
	}
	for _, path := range histories {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("skipping unreadable record %q: %v", path, err)
			continue
		}
		var h History
		if err := json.Unmarshal(data, &h); err != nil || h.ID == "" {
			log.Printf("skipping invalid record %q: %v", path, err)
			continue
		}
		rebuilt[h.ID] = historyEntry(&h)
	}

	s.index = rebuilt
	return s.saveIndex()
}
