package domain

import (
	"encoding/json"
)

// ObjectKind tells a reader how to interpret the remote object a body
// location points at.
type ObjectKind string

const (
	// KindChangeLog objects hold one serialized ChangeEntry per line.
	KindChangeLog ObjectKind = "changelog"
	// KindSnapshotData objects hold a SnapshotData document.
	KindSnapshotData ObjectKind = "snapshot"
)

// BodyLocation points at the remote object currently holding a document's
// body. It is only valid until compaction deletes the referenced object.
type BodyLocation struct {
	ObjectID string     `json:"objectId"`
	Kind     ObjectKind `json:"kind"`
}

// PendingChange is a mutation a caller wants appended. PriorRevision is the
// revision the caller believes the document currently has; empty means the
// caller believes the document does not exist (or is a tombstone).
type PendingChange struct {
	DocumentID    string
	Body          json.RawMessage
	Deleted       bool
	PriorRevision string
}

// ChangeEntry is one committed mutation. Entries are immutable once written
// to a change log object.
type ChangeEntry struct {
	Sequence      uint64          `json:"seq"`
	DocumentID    string          `json:"id"`
	Revision      string          `json:"rev"`
	PriorRevision string          `json:"priorRev,omitempty"`
	Deleted       bool            `json:"deleted,omitempty"`
	Body          json.RawMessage `json:"body,omitempty"`
	Timestamp     int64           `json:"ts"`
}

// IndexEntry is the in-memory state of one document id: its latest committed
// revision, the sequence that committed it, and where the body lives.
type IndexEntry struct {
	Revision string       `json:"rev"`
	Sequence uint64       `json:"seq"`
	Deleted  bool         `json:"deleted,omitempty"`
	Location BodyLocation `json:"location"`
}

// Document is a fully materialized read result. Revision is stamped from the
// index entry, which is authoritative over whatever the stored body carried.
type Document struct {
	ID       string          `json:"id"`
	Revision string          `json:"rev"`
	Deleted  bool            `json:"deleted,omitempty"`
	Body     json.RawMessage `json:"body,omitempty"`
}

// DocumentChange is the per-id element of a change notification: state
// without bodies.
type DocumentChange struct {
	ID       string `json:"id"`
	Revision string `json:"rev"`
	Deleted  bool   `json:"deleted,omitempty"`
}

// ChangeListener receives the full id/revision/deleted set after a reload
// triggered by an out-of-band metadata change.
type ChangeListener func(changes []DocumentChange)
