package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"DocDB/internal/domain"
	"DocDB/internal/platform/objstore/memory"
	"DocDB/internal/platform/repository/logstore"
	"DocDB/internal/platform/retry"
)

func newTestEngine() *logstore.Store {
	return logstore.NewStore(memory.New(), logstore.Options{
		Database:      "db",
		CacheCapacity: 64,
		RetryPolicy:   retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	})
}

func Test_GivenNewDocument_WhenSaved_thenItCanBeFetched(t *testing.T) {
	engine := newTestEngine()
	save := NewSaveDocumentService(engine)
	get := NewGetDocumentService(engine)
	ctx := context.Background()

	saved, err := save.Execute(ctx, SaveDocumentCommand{ID: "doc1", Body: []byte(`{"n":1}`)})
	assert.NoError(t, err)
	assert.Equal(t, "doc1", saved.ID)
	assert.Equal(t, 1, domain.Generation(saved.Revision))
	assert.Equal(t, uint64(1), saved.Sequence)

	fetched, err := get.Execute(ctx, GetDocumentQuery{ID: "doc1"})
	assert.NoError(t, err)
	assert.True(t, fetched.Found)
	assert.Equal(t, saved.Revision, fetched.Document.Revision)
	assert.JSONEq(t, `{"n":1}`, string(fetched.Document.Body))
}

func Test_GivenMissingDocument_WhenFetched_thenNotFoundWithoutError(t *testing.T) {
	engine := newTestEngine()
	get := NewGetDocumentService(engine)

	result, err := get.Execute(context.Background(), GetDocumentQuery{ID: "ghost"})
	assert.NoError(t, err)
	assert.False(t, result.Found)
}

func Test_GivenStaleRevision_WhenSaved_thenConflict(t *testing.T) {
	engine := newTestEngine()
	save := NewSaveDocumentService(engine)
	ctx := context.Background()

	_, err := save.Execute(ctx, SaveDocumentCommand{ID: "doc1", Body: []byte(`{"n":1}`)})
	assert.NoError(t, err)

	_, err = save.Execute(ctx, SaveDocumentCommand{ID: "doc1", Body: []byte(`{"n":2}`)})
	var conflict *domain.ApplicationConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, "doc1", conflict.DocumentID)
}

func Test_GivenSavedDocument_WhenDeleted_thenFetchFindsNothing(t *testing.T) {
	engine := newTestEngine()
	save := NewSaveDocumentService(engine)
	remove := NewDeleteDocumentService(engine)
	get := NewGetDocumentService(engine)
	ctx := context.Background()

	saved, err := save.Execute(ctx, SaveDocumentCommand{ID: "doc1", Body: []byte(`{"n":1}`)})
	assert.NoError(t, err)

	deleted, err := remove.Execute(ctx, DeleteDocumentCommand{ID: "doc1", PriorRevision: saved.Revision})
	assert.NoError(t, err)
	assert.Equal(t, 2, domain.Generation(deleted.Revision))

	fetched, err := get.Execute(ctx, GetDocumentQuery{ID: "doc1"})
	assert.NoError(t, err)
	assert.False(t, fetched.Found)
}

func Test_GivenSeveralDocuments_WhenListed_thenIdsAreSorted(t *testing.T) {
	engine := newTestEngine()
	save := NewSaveDocumentService(engine)
	list := NewListDocumentsService(engine)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		_, err := save.Execute(ctx, SaveDocumentCommand{ID: id, Body: []byte(`{}`)})
		assert.NoError(t, err)
	}

	result, err := list.Execute(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, result.IDs)
}

func Test_GivenMixedHistory_WhenChangesQueried_thenTombstonesIncluded(t *testing.T) {
	engine := newTestEngine()
	save := NewSaveDocumentService(engine)
	remove := NewDeleteDocumentService(engine)
	changes := NewChangesService(engine)
	ctx := context.Background()

	saved, err := save.Execute(ctx, SaveDocumentCommand{ID: "doc1", Body: []byte(`{"n":1}`)})
	assert.NoError(t, err)
	_, err = save.Execute(ctx, SaveDocumentCommand{ID: "doc2", Body: []byte(`{"n":2}`)})
	assert.NoError(t, err)
	_, err = remove.Execute(ctx, DeleteDocumentCommand{ID: "doc1", PriorRevision: saved.Revision})
	assert.NoError(t, err)

	result, err := changes.Execute(ctx, ChangesQuery{})
	assert.NoError(t, err)
	assert.Equal(t, uint64(4), result.NextSequence)
	assert.Len(t, result.Changes, 2)

	byID := make(map[string]domain.DocumentChange, len(result.Changes))
	for _, change := range result.Changes {
		byID[change.ID] = change
	}
	assert.True(t, byID["doc1"].Deleted)
	assert.False(t, byID["doc2"].Deleted)
}

func Test_GivenOutstandingChanges_WhenCompacted_thenDocumentsSurvive(t *testing.T) {
	engine := newTestEngine()
	save := NewSaveDocumentService(engine)
	get := NewGetDocumentService(engine)
	compact := NewCompactService(engine)
	ctx := context.Background()

	saved, err := save.Execute(ctx, SaveDocumentCommand{ID: "doc1", Body: []byte(`{"n":1}`)})
	assert.NoError(t, err)
	assert.NoError(t, compact.Execute(ctx))

	fetched, err := get.Execute(ctx, GetDocumentQuery{ID: "doc1"})
	assert.NoError(t, err)
	assert.True(t, fetched.Found)
	assert.Equal(t, saved.Revision, fetched.Document.Revision)
}

func Test_GivenBatchQuery_WhenSomeIdsMissing_thenNilEntriesReturned(t *testing.T) {
	engine := newTestEngine()
	save := NewSaveDocumentService(engine)
	get := NewGetDocumentService(engine)
	ctx := context.Background()

	_, err := save.Execute(ctx, SaveDocumentCommand{ID: "doc1", Body: []byte(`{"n":1}`)})
	assert.NoError(t, err)

	result, err := get.ExecuteMulti(ctx, GetDocumentsQuery{IDs: []string{"doc1", "ghost"}})
	assert.NoError(t, err)
	assert.Len(t, result.Documents, 2)
	assert.NotNil(t, result.Documents[0])
	assert.Nil(t, result.Documents[1])
}
