package domain

import (
	"encoding/json"
	"time"
)

// MetaDocument is the single mutable root object of a database. Every writer
// race is serialized through conditional updates to it; its sequence always
// equals the highest sequence reachable via ChangeLogIDs plus the snapshot.
type MetaDocument struct {
	DatabaseName    string     `json:"databaseName"`
	Sequence        uint64     `json:"seq"`
	ChangeLogIDs    []string   `json:"changeLogIds"`
	SnapshotIndexID string     `json:"snapshotIndexId,omitempty"`
	LastCompaction  *time.Time `json:"lastCompactionTime,omitempty"`
}

// SnapshotIndex is the persisted index object written by compaction. Entries
// point every live id at the snapshot data object written alongside it.
type SnapshotIndex struct {
	Entries   map[string]IndexEntry `json:"entries"`
	Sequence  uint64                `json:"seq"`
	CreatedAt time.Time             `json:"createdAt"`
}

// SnapshotData holds the bodies of every live document as of compaction. It
// is never loaded eagerly; reads pick single keys out of it.
type SnapshotData struct {
	Docs map[string]json.RawMessage `json:"docs"`
}
