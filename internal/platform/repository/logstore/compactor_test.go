package logstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"DocDB/internal/domain"
	"DocDB/internal/platform/objstore/memory"
)

func TestCompact_RoundTrip(t *testing.T) {
	driver := memory.New()
	s := NewStore(driver, testOptions())
	ctx := context.Background()

	first, err := s.AppendChanges(ctx, []domain.PendingChange{
		put("a", `{"n":1}`, ""),
		put("b", `{"n":2}`, ""),
	})
	assert.NoError(t, err)
	_, err = s.AppendChanges(ctx, []domain.PendingChange{
		put("a", `{"n":11}`, first[0].Revision),
		put("c", `{"n":3}`, ""),
	})
	assert.NoError(t, err)

	before := make(map[string]*domain.Document)
	for _, id := range []string{"a", "b", "c"} {
		doc, getErr := s.Get(ctx, id)
		assert.NoError(t, getErr)
		before[id] = doc
	}

	assert.NoError(t, s.Compact(ctx))

	meta, _, err := s.meta.Read(ctx)
	assert.NoError(t, err)
	assert.Empty(t, meta.ChangeLogIDs)
	assert.NotEmpty(t, meta.SnapshotIndexID)
	assert.NotNil(t, meta.LastCompaction)

	logs, err := driver.List(ctx, "db/changelog/")
	assert.NoError(t, err)
	assert.Empty(t, logs, "superseded log objects must be reclaimed")

	// A fresh instance rebuilt purely from the snapshot sees identical state.
	fresh := NewStore(driver, testOptions())
	assert.NoError(t, fresh.Load(ctx))
	for id, want := range before {
		got, getErr := fresh.Get(ctx, id)
		assert.NoError(t, getErr)
		assert.NotNil(t, got)
		assert.Equal(t, want.Revision, got.Revision)
		assert.JSONEq(t, string(want.Body), string(got.Body))
	}
}

func TestCompact_DropsTombstones(t *testing.T) {
	driver := memory.New()
	s := NewStore(driver, testOptions())
	ctx := context.Background()

	entries, err := s.AppendChanges(ctx, []domain.PendingChange{
		put("keep", `{"n":1}`, ""),
		put("gone", `{"n":2}`, ""),
	})
	assert.NoError(t, err)
	_, err = s.AppendChanges(ctx, []domain.PendingChange{del("gone", entries[1].Revision)})
	assert.NoError(t, err)

	assert.NoError(t, s.Compact(ctx))

	fresh := NewStore(driver, testOptions())
	assert.NoError(t, fresh.Load(ctx))
	keys, err := fresh.GetIndexKeys(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"keep"}, keys)
	_, exists, err := fresh.GetIndexEntry(ctx, "gone")
	assert.NoError(t, err)
	assert.False(t, exists, "tombstones do not survive a compaction")
}

func TestCompact_SupersedesPreviousSnapshot(t *testing.T) {
	driver := memory.New()
	s := NewStore(driver, testOptions())
	ctx := context.Background()

	entries, err := s.AppendChanges(ctx, []domain.PendingChange{put("a", `{"n":1}`, "")})
	assert.NoError(t, err)
	assert.NoError(t, s.Compact(ctx))

	metaBefore, _, err := s.meta.Read(ctx)
	assert.NoError(t, err)
	firstIndexID := metaBefore.SnapshotIndexID

	_, err = s.AppendChanges(ctx, []domain.PendingChange{put("a", `{"n":2}`, entries[0].Revision)})
	assert.NoError(t, err)
	assert.NoError(t, s.Compact(ctx))

	metaAfter, _, err := s.meta.Read(ctx)
	assert.NoError(t, err)
	assert.NotEqual(t, firstIndexID, metaAfter.SnapshotIndexID)

	infos, err := driver.List(ctx, "db/snapshot/")
	assert.NoError(t, err)
	assert.Len(t, infos, 2, "exactly one index and one data object remain")
	for _, info := range infos {
		assert.NotEqual(t, firstIndexID, info.ID)
	}
}

func TestCompact_NothingOutstanding(t *testing.T) {
	s := NewStore(memory.New(), testOptions())
	assert.NoError(t, s.Compact(context.Background()))
}

func TestCompact_ConcurrentAppendKeepsItsLog(t *testing.T) {
	driver := memory.New()
	hooked := newHookedStore(driver)
	a := NewStore(hooked, testOptions())
	b := NewStore(driver, testOptions())
	ctx := context.Background()

	_, err := a.AppendChanges(ctx, []domain.PendingChange{put("a", `{"w":"a"}`, "")})
	assert.NoError(t, err)
	assert.NoError(t, b.Load(ctx))

	// Sneak a foreign commit in after the snapshot objects are written but
	// before the root swap.
	fired := false
	hooked.mu.Lock()
	hooked.onCreate = func(name string) {
		if fired || !strings.Contains(name, "/snapshot/index-") {
			return
		}
		fired = true
		_, appendErr := b.AppendChanges(ctx, []domain.PendingChange{put("b", `{"w":"b"}`, "")})
		assert.NoError(t, appendErr)
	}
	hooked.mu.Unlock()

	assert.NoError(t, a.Compact(ctx))
	assert.True(t, fired)

	meta, _, err := a.meta.Read(ctx)
	assert.NoError(t, err)
	assert.Len(t, meta.ChangeLogIDs, 1, "the mid-compaction batch keeps its log referenced")

	fresh := NewStore(driver, testOptions())
	assert.NoError(t, fresh.Load(ctx))
	docA, err := fresh.Get(ctx, "a")
	assert.NoError(t, err)
	docB, err := fresh.Get(ctx, "b")
	assert.NoError(t, err)
	assert.NotNil(t, docA)
	assert.NotNil(t, docB)
	assert.JSONEq(t, `{"w":"b"}`, string(docB.Body))
}

func TestCompact_TriggersWhenEntryThresholdCrossed(t *testing.T) {
	driver := memory.New()
	opts := testOptions()
	opts.CompactMinEntries = 2
	s := NewStore(driver, opts)
	ctx := context.Background()

	_, err := s.AppendChanges(ctx, []domain.PendingChange{
		put("a", `{"n":1}`, ""),
		put("b", `{"n":2}`, ""),
	})
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		meta, _, readErr := s.meta.Read(ctx)
		return readErr == nil && meta.SnapshotIndexID != ""
	}, 2*time.Second, 10*time.Millisecond)
}
