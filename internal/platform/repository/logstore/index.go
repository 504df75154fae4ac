package logstore

import (
	"github.com/zhangyunhao116/skipmap"

	"DocDB/internal/domain"
)

// revisionIndex maps document ids to their latest committed state. It is
// transient: rebuilt from snapshot plus logs on load, updated on every
// successful local append. The skip map keeps keys ordered, so listings
// come out sorted without an extra pass.
type revisionIndex struct {
	entries *skipmap.FuncMap[string, domain.IndexEntry]
}

func newRevisionIndex() *revisionIndex {
	return &revisionIndex{
		entries: skipmap.NewFunc[string, domain.IndexEntry](func(a, b string) bool { return a < b }),
	}
}

func (idx *revisionIndex) Get(id string) (domain.IndexEntry, bool) {
	return idx.entries.Load(id)
}

// Apply installs entry for id, last writer wins by sequence.
func (idx *revisionIndex) Apply(id string, entry domain.IndexEntry) bool {
	current, exists := idx.entries.Load(id)
	if exists && current.Sequence >= entry.Sequence {
		return false
	}
	idx.entries.Store(id, entry)
	return true
}

// Repoint moves an entry's body location without touching its revision or
// sequence, but only while the entry is still at the expected sequence.
func (idx *revisionIndex) Repoint(id string, sequence uint64, location domain.BodyLocation) {
	current, exists := idx.entries.Load(id)
	if !exists || current.Sequence != sequence {
		return
	}
	current.Location = location
	idx.entries.Store(id, current)
}

func (idx *revisionIndex) Keys() []string {
	keys := make([]string, 0, idx.entries.Len())
	idx.entries.Range(func(id string, _ domain.IndexEntry) bool {
		keys = append(keys, id)
		return true
	})
	return keys
}

func (idx *revisionIndex) Snapshot() map[string]domain.IndexEntry {
	snapshot := make(map[string]domain.IndexEntry, idx.entries.Len())
	idx.entries.Range(func(id string, entry domain.IndexEntry) bool {
		snapshot[id] = entry
		return true
	})
	return snapshot
}

// Changes returns the id/revision/deleted view of every indexed document,
// in key order.
func (idx *revisionIndex) Changes() []domain.DocumentChange {
	changes := make([]domain.DocumentChange, 0, idx.entries.Len())
	idx.entries.Range(func(id string, entry domain.IndexEntry) bool {
		changes = append(changes, domain.DocumentChange{
			ID:       id,
			Revision: entry.Revision,
			Deleted:  entry.Deleted,
		})
		return true
	})
	return changes
}

func (idx *revisionIndex) Len() int {
	return idx.entries.Len()
}
