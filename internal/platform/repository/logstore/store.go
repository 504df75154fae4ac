package logstore

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"DocDB/internal/domain"
	"DocDB/internal/platform/objstore"
	"DocDB/internal/platform/retry"
)

// Options configure one Store instance.
type Options struct {
	Database          string
	CacheCapacity     int
	CompactMinEntries int
	CompactMinBytes   int64
	PollInterval      time.Duration
	RetryPolicy       retry.Policy
}

type logStats struct {
	entries int
	bytes   int64
}

// Store is the document-store engine: an append-only change log plus an
// OCC-guarded root pointer in a remote object store, with a lazily loaded
// revision index and a bounded body cache in front of it. Many uncoordinated
// instances may share one database; the root pointer's conditional update is
// the only synchronization primitive between them.
type Store struct {
	objects  objstore.ObjectStore
	database string
	meta     *MetaController
	logStore *ChangeLog
	cache    *documentCache
	detector domain.ConflictDetector
	opts     Options
	logger   *logrus.Entry

	mu             sync.Mutex
	index          *revisionIndex
	curMeta        domain.MetaDocument
	curETag        string
	lastSnapshotID string
	replayed       map[string]logStats
	loaded         bool

	loadGroup singleflight.Group

	listenerMu sync.Mutex
	listeners  map[string]domain.ChangeListener

	poller     *poller
	compacting atomic.Bool
	stopped    atomic.Bool
}

// NewStore builds an engine over the given object store. Polling starts
// immediately when Options.PollInterval is positive.
func NewStore(objects objstore.ObjectStore, opts Options) *Store {
	if opts.RetryPolicy.MaxAttempts == 0 {
		opts.RetryPolicy = retry.DefaultPolicy
	}
	s := &Store{
		objects:   objects,
		database:  opts.Database,
		meta:      NewMetaController(objects, opts.Database, opts.RetryPolicy),
		logStore:  NewChangeLog(objects, opts.Database),
		cache:     newDocumentCache(opts.CacheCapacity),
		detector:  &domain.RevisionGuard{},
		opts:      opts,
		logger:    logrus.WithField("component", "logstore").WithField("database", opts.Database),
		index:     newRevisionIndex(),
		replayed:  make(map[string]logStats),
		listeners: make(map[string]domain.ChangeListener),
	}
	if opts.PollInterval > 0 {
		s.poller = newPoller(s, opts.PollInterval)
		s.poller.start()
	}
	return s
}

// Load resolves the database's root pointer (creating it on first use),
// swaps in a new snapshot index when another writer compacted, and replays
// any change log objects this instance has not yet folded into its index.
// Concurrent callers collapse into one in-flight load whose outcome all of
// them share.
func (s *Store) Load(ctx context.Context) error {
	if s.stopped.Load() {
		return domain.ErrStopped
	}
	_, err, _ := s.loadGroup.Do("load", func() (interface{}, error) {
		return nil, s.load(ctx)
	})
	return err
}

func (s *Store) load(ctx context.Context) error {
	meta, etag, err := s.meta.Init(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	discard := meta.SnapshotIndexID != s.lastSnapshotID
	replayedView := make(map[string]bool, len(s.replayed))
	if !discard {
		for logID := range s.replayed {
			replayedView[logID] = true
		}
	}
	s.mu.Unlock()

	var snapshot *domain.SnapshotIndex
	if discard && meta.SnapshotIndexID != "" {
		snapshot, err = s.readSnapshotIndex(ctx, meta.SnapshotIndexID)
		if err != nil {
			return err
		}
	}

	type replayedLog struct {
		id      string
		entries []domain.ChangeEntry
		bytes   int64
	}
	var batches []replayedLog
	for _, logID := range meta.ChangeLogIDs {
		if replayedView[logID] {
			continue
		}
		entries, err := s.logStore.ReadBatch(ctx, logID)
		if err != nil {
			if isCorrupt(err) {
				s.logger.WithError(err).Warnf("skipping corrupt change log %s", logID)
				batches = append(batches, replayedLog{id: logID})
				continue
			}
			return err
		}
		var size int64
		for _, entry := range entries {
			size += int64(len(entry.Body))
		}
		batches = append(batches, replayedLog{id: logID, entries: entries, bytes: size})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if discard {
		fresh := newRevisionIndex()
		if snapshot != nil {
			for id, entry := range snapshot.Entries {
				fresh.Apply(id, entry)
			}
		}
		s.index = fresh
		s.replayed = make(map[string]logStats)
		s.lastSnapshotID = meta.SnapshotIndexID
		s.cache.Purge()
	}
	for _, batch := range batches {
		for _, entry := range batch.entries {
			applied := s.index.Apply(entry.DocumentID, domain.IndexEntry{
				Revision: entry.Revision,
				Sequence: entry.Sequence,
				Deleted:  entry.Deleted,
				Location: domain.BodyLocation{ObjectID: batch.id, Kind: domain.KindChangeLog},
			})
			if applied {
				s.cache.Evict(entry.DocumentID)
			}
		}
		s.replayed[batch.id] = logStats{entries: len(batch.entries), bytes: batch.bytes}
	}
	// A local append may have committed while this load was in flight; never
	// step the adopted root pointer backwards.
	if meta.Sequence >= s.curMeta.Sequence {
		s.curMeta = meta
		s.curETag = etag
	}
	inMeta := make(map[string]bool, len(s.curMeta.ChangeLogIDs))
	for _, logID := range s.curMeta.ChangeLogIDs {
		inMeta[logID] = true
	}
	for logID := range s.replayed {
		if !inMeta[logID] {
			delete(s.replayed, logID)
		}
	}
	s.loaded = true
	return nil
}

func (s *Store) readSnapshotIndex(ctx context.Context, id string) (*domain.SnapshotIndex, error) {
	raw, _, err := s.objects.Read(ctx, id)
	if err != nil {
		if objstore.IsNotFound(err) {
			return nil, fmt.Errorf("snapshot index %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	var snapshot domain.SnapshotIndex
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, &domain.CorruptObjectError{ObjectID: id, Err: err}
	}
	return &snapshot, nil
}

func (s *Store) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}
	return s.Load(ctx)
}

func (s *Store) currentIndex() *revisionIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Get returns the document's current body, or nil when the id is unknown or
// tombstoned. Tombstoned ids never trigger a remote fetch.
func (s *Store) Get(ctx context.Context, id string) (*domain.Document, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	entry, exists := s.currentIndex().Get(id)
	if !exists || entry.Deleted {
		return nil, nil
	}
	if doc, hit := s.cache.Get(id); hit && doc.Revision == entry.Revision {
		return &doc, nil
	}
	bodies, err := s.fetchBodies(ctx, entry.Location, []string{id})
	if err != nil {
		return nil, err
	}
	body, found := bodies[id]
	if !found {
		return nil, fmt.Errorf("document %s not present in %s: %w", id, entry.Location.ObjectID, domain.ErrNotFound)
	}
	doc := domain.Document{ID: id, Revision: entry.Revision, Body: body}
	s.cache.Put(doc)
	return &doc, nil
}

// GetMulti materializes several documents, issuing one fetch per distinct
// remote object so ids sharing a batch or snapshot chunk share a transfer.
// The result is aligned with ids; unknown or tombstoned ids yield nil.
func (s *Store) GetMulti(ctx context.Context, ids []string) ([]*domain.Document, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	index := s.currentIndex()
	results := make([]*domain.Document, len(ids))

	type fetchGroup struct {
		location domain.BodyLocation
		ids      []string
	}
	groups := make(map[string]*fetchGroup)
	entries := make(map[string]domain.IndexEntry, len(ids))

	for i, id := range ids {
		entry, exists := index.Get(id)
		if !exists || entry.Deleted {
			continue
		}
		entries[id] = entry
		if doc, hit := s.cache.Get(id); hit && doc.Revision == entry.Revision {
			results[i] = &doc
			continue
		}
		group, exists := groups[entry.Location.ObjectID]
		if !exists {
			group = &fetchGroup{location: entry.Location}
			groups[entry.Location.ObjectID] = group
		}
		group.ids = append(group.ids, id)
	}

	var fetchedMu sync.Mutex
	fetched := make(map[string]stdjson.RawMessage)
	eg, egCtx := errgroup.WithContext(ctx)
	for _, group := range groups {
		group := group
		eg.Go(func() error {
			bodies, err := s.fetchBodies(egCtx, group.location, group.ids)
			if err != nil {
				return err
			}
			fetchedMu.Lock()
			for id, body := range bodies {
				fetched[id] = body
			}
			fetchedMu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		if results[i] != nil {
			continue
		}
		entry, wanted := entries[id]
		if !wanted {
			continue
		}
		body, found := fetched[id]
		if !found {
			return nil, fmt.Errorf("document %s not present in %s: %w", id, entry.Location.ObjectID, domain.ErrNotFound)
		}
		doc := domain.Document{ID: id, Revision: entry.Revision, Body: body}
		s.cache.Put(doc)
		results[i] = &doc
	}
	return results, nil
}

// fetchBodies reads one remote object and extracts the bodies of the wanted
// ids. For a change log the last entry in the batch wins per id; a snapshot
// chunk is indexed directly.
func (s *Store) fetchBodies(ctx context.Context, location domain.BodyLocation, ids []string) (map[string]stdjson.RawMessage, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	bodies := make(map[string]stdjson.RawMessage, len(ids))

	switch location.Kind {
	case domain.KindChangeLog:
		entries, err := s.logStore.ReadBatch(ctx, location.ObjectID)
		if err != nil {
			if isCorrupt(err) {
				s.logger.WithError(err).Warnf("corrupt change log %s", location.ObjectID)
				return nil, fmt.Errorf("change log %s: %w", location.ObjectID, domain.ErrNotFound)
			}
			return nil, err
		}
		for _, entry := range entries {
			if wanted[entry.DocumentID] && !entry.Deleted {
				bodies[entry.DocumentID] = entry.Body
			}
		}
	case domain.KindSnapshotData:
		raw, _, err := s.objects.Read(ctx, location.ObjectID)
		if err != nil {
			if objstore.IsNotFound(err) {
				return nil, fmt.Errorf("snapshot data %s: %w", location.ObjectID, domain.ErrNotFound)
			}
			return nil, err
		}
		var data domain.SnapshotData
		if err := json.Unmarshal(raw, &data); err != nil {
			s.logger.WithField("object", location.ObjectID).WithError(err).Warn("corrupt snapshot data")
			return nil, fmt.Errorf("snapshot data %s: %w", location.ObjectID, domain.ErrNotFound)
		}
		for id, body := range data.Docs {
			if wanted[id] {
				bodies[id] = body
			}
		}
	default:
		return nil, fmt.Errorf("unknown body location kind %q", location.Kind)
	}
	return bodies, nil
}

// AppendChanges commits a batch of mutations. Sequences are assigned
// contiguously above the current root sequence; on a root-pointer race the
// loser reloads, re-validates its assumed revisions against the absorbed
// state, and retries with fresh sequence numbers, up to the retry bound.
func (s *Store) AppendChanges(ctx context.Context, pending []domain.PendingChange) ([]domain.ChangeEntry, error) {
	if s.stopped.Load() {
		return nil, domain.ErrStopped
	}
	if len(pending) == 0 {
		return nil, nil
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	var committed []domain.ChangeEntry
	err := retry.Do(ctx, s.opts.RetryPolicy, IsConflict, func(ctx context.Context) error {
		entries, err := s.tryAppend(ctx, pending)
		if err != nil {
			return err
		}
		committed = entries
		return nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return nil, fmt.Errorf("append after %d attempts: %w", exhausted.Attempts, domain.ErrRetriesExhausted)
		}
		return nil, err
	}
	s.maybeCompact()
	return committed, nil
}

func (s *Store) tryAppend(ctx context.Context, pending []domain.PendingChange) ([]domain.ChangeEntry, error) {
	s.mu.Lock()
	indexView := s.index.Snapshot()
	baseMeta := s.curMeta
	baseMeta.ChangeLogIDs = append([]string(nil), s.curMeta.ChangeLogIDs...)
	etag := s.curETag
	s.mu.Unlock()

	if conflict := s.detector.Check(indexView, pending); conflict != nil {
		return nil, conflict
	}

	now := time.Now().UnixNano()
	entries := make([]domain.ChangeEntry, len(pending))
	var batchBytes int64
	for i, change := range pending {
		entry := domain.ChangeEntry{
			Sequence:      baseMeta.Sequence + uint64(i) + 1,
			DocumentID:    change.DocumentID,
			Revision:      domain.NewRevision(change.PriorRevision, change.Body, change.Deleted),
			PriorRevision: change.PriorRevision,
			Deleted:       change.Deleted,
			Timestamp:     now,
		}
		if !change.Deleted {
			entry.Body = change.Body
			batchBytes += int64(len(change.Body))
		}
		entries[i] = entry
	}

	logID, err := s.logStore.WriteBatch(ctx, entries)
	if err != nil {
		return nil, err
	}

	newMeta := baseMeta
	newMeta.ChangeLogIDs = append(newMeta.ChangeLogIDs, logID)
	newMeta.Sequence += uint64(len(entries))

	newTag, err := s.meta.Write(ctx, newMeta, etag)
	if err != nil {
		// The freshly written log object is now orphaned; it is invisible to
		// readers and harmless, so it is left for later garbage collection.
		if IsConflict(err) {
			if loadErr := s.Load(ctx); loadErr != nil {
				return nil, loadErr
			}
		}
		return nil, err
	}

	s.mu.Lock()
	s.curMeta = newMeta
	s.curETag = newTag
	for _, entry := range entries {
		s.index.Apply(entry.DocumentID, domain.IndexEntry{
			Revision: entry.Revision,
			Sequence: entry.Sequence,
			Deleted:  entry.Deleted,
			Location: domain.BodyLocation{ObjectID: logID, Kind: domain.KindChangeLog},
		})
		if entry.Deleted {
			s.cache.Evict(entry.DocumentID)
		} else {
			s.cache.Put(domain.Document{ID: entry.DocumentID, Revision: entry.Revision, Body: entry.Body})
		}
	}
	s.replayed[logID] = logStats{entries: len(entries), bytes: batchBytes}
	s.mu.Unlock()
	return entries, nil
}

// GetIndexKeys returns every indexed document id in key order, tombstones
// included.
func (s *Store) GetIndexKeys(ctx context.Context) ([]string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.currentIndex().Keys(), nil
}

// GetIndexEntry returns the index state for one id.
func (s *Store) GetIndexEntry(ctx context.Context, id string) (domain.IndexEntry, bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.IndexEntry{}, false, err
	}
	entry, exists := s.currentIndex().Get(id)
	return entry, exists, nil
}

// Changes returns the id/revision/deleted view of the whole index.
func (s *Store) Changes(ctx context.Context) ([]domain.DocumentChange, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.currentIndex().Changes(), nil
}

// NextSequence returns the sequence number this instance would assign to the
// next appended change.
func (s *Store) NextSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.curMeta.Sequence + 1
}

// OnChange registers a listener for out-of-band change notifications. The
// returned unsubscribe function is idempotent.
func (s *Store) OnChange(listener domain.ChangeListener) func() {
	token := uuid.NewString()
	s.listenerMu.Lock()
	s.listeners[token] = listener
	s.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenerMu.Lock()
			delete(s.listeners, token)
			s.listenerMu.Unlock()
		})
	}
}

func (s *Store) notifyListeners() {
	changes := s.currentIndex().Changes()
	s.listenerMu.Lock()
	listeners := make([]domain.ChangeListener, 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.listenerMu.Unlock()

	for _, listener := range listeners {
		go listener(changes)
	}
}

// StopPolling stops the background poller. Safe to call repeatedly and
// while a poll is in flight; the in-flight poll finishes, later ones do
// not fire.
func (s *Store) StopPolling() {
	if s.poller != nil {
		s.poller.Stop()
	}
}

// DeleteContainer removes every object belonging to this database and shuts
// the instance down.
func (s *Store) DeleteContainer(ctx context.Context) error {
	s.StopPolling()
	infos, err := s.objects.List(ctx, containerPrefix(s.database))
	if err != nil {
		return err
	}
	for _, info := range infos {
		if err := s.objects.Delete(ctx, info.ID); err != nil && !objstore.IsNotFound(err) {
			return err
		}
	}
	s.mu.Lock()
	s.index = newRevisionIndex()
	s.curMeta = domain.MetaDocument{DatabaseName: s.database}
	s.curETag = ""
	s.lastSnapshotID = ""
	s.replayed = make(map[string]logStats)
	s.loaded = false
	s.cache.Purge()
	s.mu.Unlock()
	s.stopped.Store(true)
	return nil
}
