package logstore

import (
	"context"
	stdjson "encoding/json"
	"sort"
	"strings"
	"time"

	json "github.com/json-iterator/go"

	"DocDB/internal/domain"
	"DocDB/internal/platform/objstore"
)

// Compact merges the current log objects and snapshot into a new snapshot
// (one index object, one data object), atomically repoints the root at it,
// and deletes the superseded objects. It runs concurrently with appends: the
// root swap re-reads the live metadata and removes only the log ids captured
// up front, so a batch committed mid-compaction keeps its log referenced.
func (s *Store) Compact(ctx context.Context) error {
	if s.stopped.Load() {
		return domain.ErrStopped
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if !s.compacting.CompareAndSwap(false, true) {
		return nil
	}
	defer s.compacting.Store(false)

	s.mu.Lock()
	captured := s.index.Snapshot()
	obsoleteLogs := append([]string(nil), s.curMeta.ChangeLogIDs...)
	obsoleteIndexID := s.curMeta.SnapshotIndexID
	capturedSequence := s.curMeta.Sequence
	s.mu.Unlock()

	if len(obsoleteLogs) == 0 {
		return nil
	}

	liveIDs := make([]string, 0, len(captured))
	for id, entry := range captured {
		if !entry.Deleted {
			liveIDs = append(liveIDs, id)
		}
	}
	sort.Strings(liveIDs)

	documents, err := s.GetMulti(ctx, liveIDs)
	if err != nil {
		return err
	}

	createdAt := time.Now()
	data := domain.SnapshotData{Docs: make(map[string]stdjson.RawMessage, len(liveIDs))}
	for i, id := range liveIDs {
		if documents[i] == nil {
			// Superseded between capture and fetch; the newer state stays in
			// its own log object.
			continue
		}
		data.Docs[id] = documents[i].Body
	}
	dataRaw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	dataInfo, err := s.objects.Create(ctx, snapshotDataName(s.database, createdAt), contentTypeJSON, dataRaw)
	if err != nil {
		return err
	}

	snapshotIndex := domain.SnapshotIndex{
		Entries:   make(map[string]domain.IndexEntry, len(data.Docs)),
		Sequence:  capturedSequence,
		CreatedAt: createdAt,
	}
	for id := range data.Docs {
		entry := captured[id]
		snapshotIndex.Entries[id] = domain.IndexEntry{
			Revision: entry.Revision,
			Sequence: entry.Sequence,
			Location: domain.BodyLocation{ObjectID: dataInfo.ID, Kind: domain.KindSnapshotData},
		}
	}
	indexRaw, err := json.Marshal(snapshotIndex)
	if err != nil {
		return err
	}
	indexInfo, err := s.objects.Create(ctx, snapshotIndexName(s.database, createdAt), contentTypeJSON, indexRaw)
	if err != nil {
		return err
	}

	obsolete := make(map[string]bool, len(obsoleteLogs))
	for _, logID := range obsoleteLogs {
		obsolete[logID] = true
	}
	lastCompaction := createdAt
	committedMeta, newTag, err := s.meta.Update(ctx, func(meta *domain.MetaDocument) error {
		kept := meta.ChangeLogIDs[:0]
		for _, logID := range meta.ChangeLogIDs {
			if !obsolete[logID] {
				kept = append(kept, logID)
			}
		}
		meta.ChangeLogIDs = kept
		meta.SnapshotIndexID = indexInfo.ID
		meta.LastCompaction = &lastCompaction
		return nil
	})
	if err != nil {
		// The new snapshot objects are unreferenced and harmless; the next
		// compaction supersedes them.
		s.logger.WithError(err).Warn("compaction root swap failed")
		return err
	}
	s.logger.WithField("live", len(data.Docs)).WithField("logs", len(obsoleteLogs)).Info("compacted")

	s.mu.Lock()
	if committedMeta.Sequence >= s.curMeta.Sequence {
		s.curMeta = committedMeta
		s.curETag = newTag
	}
	s.lastSnapshotID = indexInfo.ID
	for id, entry := range snapshotIndex.Entries {
		s.index.Repoint(id, entry.Sequence, entry.Location)
	}
	for logID := range s.replayed {
		if obsolete[logID] {
			delete(s.replayed, logID)
		}
	}
	s.mu.Unlock()

	s.deleteObsolete(ctx, obsoleteLogs, obsoleteIndexID)
	return nil
}

// deleteObsolete is best effort: a failed delete leaves a harmless orphan
// for a later pass or external garbage collection.
func (s *Store) deleteObsolete(ctx context.Context, obsoleteLogs []string, obsoleteIndexID string) {
	victims := append([]string(nil), obsoleteLogs...)
	if obsoleteIndexID != "" {
		victims = append(victims,
			obsoleteIndexID,
			strings.Replace(obsoleteIndexID, "/snapshot/index-", "/snapshot/data-", 1))
	}
	for _, victim := range victims {
		if err := s.objects.Delete(ctx, victim); err != nil && !objstore.IsNotFound(err) {
			s.logger.WithError(err).Warnf("failed to delete obsolete object %s", victim)
		}
	}
}

// maybeCompact kicks off a background compaction once the outstanding
// change volume crosses the configured thresholds. Failures are logged,
// never propagated to the caller of the write that tripped it.
func (s *Store) maybeCompact() {
	minEntries := s.opts.CompactMinEntries
	minBytes := s.opts.CompactMinBytes
	if minEntries <= 0 && minBytes <= 0 {
		return
	}

	s.mu.Lock()
	var outstanding logStats
	for _, logID := range s.curMeta.ChangeLogIDs {
		stats := s.replayed[logID]
		outstanding.entries += stats.entries
		outstanding.bytes += stats.bytes
	}
	s.mu.Unlock()

	crossed := (minEntries > 0 && outstanding.entries >= minEntries) ||
		(minBytes > 0 && outstanding.bytes >= minBytes)
	if !crossed || s.compacting.Load() {
		return
	}
	go func() {
		if err := s.Compact(context.Background()); err != nil {
			s.logger.WithError(err).Warn("background compaction failed")
		}
	}()
}
