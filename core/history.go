package core

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var runsBucket = []byte("RUNS")

// HistoryEntry is one photo written to the archive.
type HistoryEntry struct {
	Source        string
	Destination   string
	EffectiveTime time.Time
	TimeSource    string
	Rotation      Rotation
	SourceRemoved bool
	ImportedAt    time.Time
}

// RunSummary describes one recorded import run.
type RunSummary struct {
	ID        string
	StartedAt time.Time
	Files     int
	Removed   int
}

// Journal receives every photo a run writes to the archive.
type Journal interface {
	Record(runID string, entry *HistoryEntry) error
}

// History is the import journal kept in a bolt database.
type History struct {
	db *bolt.DB
}

// OpenHistory opens the journal at path, creating it if needed.
func OpenHistory(path string) (*History, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history %q: %w", path, err)
	}
	return &History{db: db}, nil
}

// OpenExistingHistory opens the journal at path, failing if no import has
// been recorded there yet.
func OpenExistingHistory(path string) (*History, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("No imports have been recorded in %q", path)
	}
	return OpenHistory(path)
}

func (h *History) Close() error {
	return h.db.Close()
}

// Record appends entry to the run's bucket.
func (h *History) Record(runID string, entry *HistoryEntry) error {
	return h.db.Update(func(tx *bolt.Tx) error {
		all, err := tx.CreateBucketIfNotExists(runsBucket)
		if err != nil {
			return err
		}
		b, err := all.CreateBucketIfNotExists([]byte(runID))
		if err != nil {
			return err
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return putHistoryEntry(b, key, entry)
	})
}

// Runs lists the recorded runs, oldest first.
func (h *History) Runs() ([]RunSummary, error) {
	var runs []RunSummary
	err := h.db.View(func(tx *bolt.Tx) error {
		all := tx.Bucket(runsBucket)
		if all == nil {
			return nil
		}

		return all.ForEachBucket(func(k []byte) error {
			run := RunSummary{ID: string(k)}
			err := forEachHistoryEntry(all.Bucket(k), func(e *HistoryEntry) error {
				if run.Files == 0 || e.ImportedAt.Before(run.StartedAt) {
					run.StartedAt = e.ImportedAt
				}
				run.Files++
				if e.SourceRemoved {
					run.Removed++
				}
				return nil
			})
			if err != nil {
				return err
			}
			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, nil
}

// Entries returns the photos written by one run in the order they were
// written.
func (h *History) Entries(runID string) ([]*HistoryEntry, error) {
	var entries []*HistoryEntry
	err := h.db.View(func(tx *bolt.Tx) error {
		all := tx.Bucket(runsBucket)
		if all == nil {
			return fmt.Errorf("Run %q does not exist", runID)
		}
		b := all.Bucket([]byte(runID))
		if b == nil {
			return fmt.Errorf("Run %q does not exist", runID)
		}
		return forEachHistoryEntry(b, func(e *HistoryEntry) error {
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}

// RotationCounts returns how many recorded photos got each rotation.
func (h *History) RotationCounts() (map[Rotation]int, error) {
	counts := make(map[Rotation]int)
	err := h.db.View(func(tx *bolt.Tx) error {
		all := tx.Bucket(runsBucket)
		if all == nil {
			return nil
		}
		return all.ForEachBucket(func(k []byte) error {
			return forEachHistoryEntry(all.Bucket(k), func(e *HistoryEntry) error {
				counts[e.Rotation]++
				return nil
			})
		})
	})
	return counts, err
}

func forEachHistoryEntry(b *bolt.Bucket, fn func(*HistoryEntry) error) error {
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		entry, err := decodeHistoryEntry(v)
		if err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

func putHistoryEntry(b *bolt.Bucket, key []byte, entry *HistoryEntry) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return err
	}
	return b.Put(key, buf.Bytes())
}

func decodeHistoryEntry(v []byte) (*HistoryEntry, error) {
	var entry HistoryEntry
	if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
