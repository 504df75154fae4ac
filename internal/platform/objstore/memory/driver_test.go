package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"DocDB/internal/platform/objstore"
)

func TestDriver_CreateAndRead(t *testing.T) {
	d := New()
	ctx := context.Background()

	info, err := d.Create(ctx, "db/meta", "application/json", []byte(`{"seq":0}`))
	assert.NoError(t, err)
	assert.Equal(t, "db/meta", info.ID)
	assert.NotEmpty(t, info.ETag)

	content, readInfo, err := d.Read(ctx, "db/meta")
	assert.NoError(t, err)
	assert.Equal(t, []byte(`{"seq":0}`), content)
	assert.Equal(t, info.ETag, readInfo.ETag)
}

func TestDriver_CreateExistingFailsPrecondition(t *testing.T) {
	d := New()
	ctx := context.Background()

	_, err := d.Create(ctx, "db/meta", "application/json", []byte(`a`))
	assert.NoError(t, err)

	_, err = d.Create(ctx, "db/meta", "application/json", []byte(`b`))
	assert.True(t, objstore.IsPrecondition(err))
}

func TestDriver_ConditionalUpdate(t *testing.T) {
	d := New()
	ctx := context.Background()

	info, _ := d.Create(ctx, "db/meta", "application/json", []byte(`v1`))

	updated, err := d.Update(ctx, "db/meta", []byte(`v2`), info.ETag)
	assert.NoError(t, err)
	assert.NotEqual(t, info.ETag, updated.ETag)

	// The stale token must no longer be accepted.
	_, err = d.Update(ctx, "db/meta", []byte(`v3`), info.ETag)
	assert.True(t, objstore.IsPrecondition(err))

	content, _, err := d.Read(ctx, "db/meta")
	assert.NoError(t, err)
	assert.Equal(t, []byte(`v2`), content)
}

func TestDriver_ReadMissing(t *testing.T) {
	d := New()
	_, _, err := d.Read(context.Background(), "nope")
	assert.True(t, objstore.IsNotFound(err))
}

func TestDriver_UpdateMissing(t *testing.T) {
	d := New()
	_, err := d.Update(context.Background(), "nope", []byte(`x`), "t1")
	assert.True(t, objstore.IsNotFound(err))
}

func TestDriver_ListByPrefix(t *testing.T) {
	d := New()
	ctx := context.Background()

	d.Create(ctx, "db/changelog/b", "application/x-ndjson", []byte(`1`))
	d.Create(ctx, "db/changelog/a", "application/x-ndjson", []byte(`2`))
	d.Create(ctx, "db/meta", "application/json", []byte(`3`))
	d.Create(ctx, "other/meta", "application/json", []byte(`4`))

	infos, err := d.List(ctx, "db/changelog/")
	assert.NoError(t, err)
	assert.Len(t, infos, 2)
	assert.Equal(t, "db/changelog/a", infos[0].Name)
	assert.Equal(t, "db/changelog/b", infos[1].Name)

	all, err := d.List(ctx, "db/")
	assert.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDriver_Delete(t *testing.T) {
	d := New()
	ctx := context.Background()

	d.Create(ctx, "db/meta", "application/json", []byte(`x`))
	assert.NoError(t, d.Delete(ctx, "db/meta"))
	assert.True(t, objstore.IsNotFound(d.Delete(ctx, "db/meta")))
}

func TestDriver_Stat(t *testing.T) {
	d := New()
	ctx := context.Background()

	info, _ := d.Create(ctx, "db/meta", "application/json", []byte(`abc`))
	stat, err := d.Stat(ctx, "db/meta")
	assert.NoError(t, err)
	assert.Equal(t, info.ETag, stat.ETag)
	assert.Equal(t, int64(3), stat.Size)

	_, err = d.Stat(ctx, "nope")
	assert.True(t, objstore.IsNotFound(err))
}
