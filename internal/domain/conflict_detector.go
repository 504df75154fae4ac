package domain

// ConflictDetector decides whether a batch of pending changes is still valid
// against the current index. It runs after every reload inside the append
// retry loop, not only on the first attempt.
type ConflictDetector interface {
	Check(current map[string]IndexEntry, pending []PendingChange) *ApplicationConflictError
}

// RevisionGuard requires each pending change's prior revision to match the
// index's current revision exactly (hash included, not just the generation
// number). A tombstoned or absent id counts as having no current revision,
// so recreating a deleted document requires an empty prior revision.
type RevisionGuard struct {
}

func (g *RevisionGuard) Check(current map[string]IndexEntry, pending []PendingChange) *ApplicationConflictError {
	for _, change := range pending {
		currentRevision := ""
		if entry, exists := current[change.DocumentID]; exists && !entry.Deleted {
			currentRevision = entry.Revision
		}
		if change.PriorRevision != currentRevision {
			return &ApplicationConflictError{
				DocumentID:      change.DocumentID,
				AssumedRevision: change.PriorRevision,
				CurrentRevision: currentRevision,
			}
		}
	}
	return nil
}
