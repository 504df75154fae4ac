package logstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"DocDB/internal/domain"
	"DocDB/internal/platform/objstore/memory"
)

func TestPoller_NotifiesOnForeignCommit(t *testing.T) {
	driver := memory.New()
	opts := testOptions()
	opts.PollInterval = 5 * time.Millisecond
	watcher := NewStore(driver, opts)
	defer watcher.StopPolling()
	writer := NewStore(driver, testOptions())
	ctx := context.Background()

	assert.NoError(t, watcher.Load(ctx))

	notified := make(chan []domain.DocumentChange, 4)
	unsubscribe := watcher.OnChange(func(changes []domain.DocumentChange) {
		notified <- changes
	})
	defer unsubscribe()

	entries, err := writer.AppendChanges(ctx, []domain.PendingChange{put("doc1", `{"n":1}`, "")})
	assert.NoError(t, err)

	select {
	case changes := <-notified:
		assert.Len(t, changes, 1)
		assert.Equal(t, "doc1", changes[0].ID)
		assert.Equal(t, entries[0].Revision, changes[0].Revision)
		assert.False(t, changes[0].Deleted)
	case <-time.After(2 * time.Second):
		t.Fatal("poller never noticed the foreign commit")
	}

	// The watcher's own index caught up too.
	doc, err := watcher.Get(ctx, "doc1")
	assert.NoError(t, err)
	assert.NotNil(t, doc)
	assert.JSONEq(t, `{"n":1}`, string(doc.Body))
}

func TestPoller_OwnCommitsDoNotNotify(t *testing.T) {
	driver := memory.New()
	s := NewStore(driver, testOptions())
	ctx := context.Background()

	assert.NoError(t, s.Load(ctx))

	notified := make(chan []domain.DocumentChange, 4)
	unsubscribe := s.OnChange(func(changes []domain.DocumentChange) {
		notified <- changes
	})
	defer unsubscribe()

	// A commit through this instance advances its observed root token, so
	// the next poll sees nothing new.
	_, err := s.AppendChanges(ctx, []domain.PendingChange{put("doc1", `{"n":1}`, "")})
	assert.NoError(t, err)
	s.pollOnce(ctx)

	time.Sleep(20 * time.Millisecond)
	select {
	case <-notified:
		t.Fatal("a commit made through this instance must not echo back")
	default:
	}
}

func TestPoller_UnsubscribeIsIdempotent(t *testing.T) {
	driver := memory.New()
	opts := testOptions()
	opts.PollInterval = 5 * time.Millisecond
	watcher := NewStore(driver, opts)
	defer watcher.StopPolling()
	writer := NewStore(driver, testOptions())
	ctx := context.Background()

	assert.NoError(t, watcher.Load(ctx))

	silenced := make(chan []domain.DocumentChange, 4)
	unsubscribe := watcher.OnChange(func(changes []domain.DocumentChange) {
		silenced <- changes
	})
	active := make(chan []domain.DocumentChange, 4)
	stillListening := watcher.OnChange(func(changes []domain.DocumentChange) {
		active <- changes
	})
	defer stillListening()

	unsubscribe()
	unsubscribe()

	_, err := writer.AppendChanges(ctx, []domain.PendingChange{put("doc1", `{"n":1}`, "")})
	assert.NoError(t, err)

	select {
	case <-active:
	case <-time.After(2 * time.Second):
		t.Fatal("remaining listener never fired")
	}
	select {
	case <-silenced:
		t.Fatal("unsubscribed listener fired")
	default:
	}
}

func TestStore_StopPollingIsIdempotent(t *testing.T) {
	opts := testOptions()
	opts.PollInterval = 5 * time.Millisecond
	s := NewStore(memory.New(), opts)
	assert.NoError(t, s.Load(context.Background()))

	s.StopPolling()
	s.StopPolling()
}

func TestStore_PollOnceSkipsUntilLoaded(t *testing.T) {
	driver := memory.New()
	s := NewStore(driver, testOptions())
	writer := NewStore(driver, testOptions())
	ctx := context.Background()

	_, err := writer.AppendChanges(ctx, []domain.PendingChange{put("doc1", `{"n":1}`, "")})
	assert.NoError(t, err)

	fired := false
	defer s.OnChange(func([]domain.DocumentChange) { fired = true })()

	// Nothing has been loaded; a poll must not fabricate a change event.
	s.pollOnce(ctx)
	assert.False(t, fired)
}
