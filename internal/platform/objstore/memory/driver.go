package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"DocDB/internal/platform/objstore"
)

// Driver is an objstore.ObjectStore backed by a local map. Intended for
// tests and embedded single-process use.
type Driver struct {
	mu      sync.RWMutex
	objects map[string]*object
	tag     uint64
}

type object struct {
	content      []byte
	contentType  string
	etag         string
	lastModified time.Time
}

// New constructs an empty Driver.
func New() *Driver {
	return &Driver{objects: make(map[string]*object)}
}

func (d *Driver) nextTag() string {
	d.tag++
	return fmt.Sprintf("t%d", d.tag)
}

func (d *Driver) List(ctx context.Context, prefix string) ([]objstore.ObjectInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var infos []objstore.ObjectInfo
	for name, obj := range d.objects {
		if strings.HasPrefix(name, prefix) {
			infos = append(infos, d.info(name, obj))
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (d *Driver) Read(ctx context.Context, id string) ([]byte, objstore.ObjectInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	obj, exists := d.objects[id]
	if !exists {
		return nil, objstore.ObjectInfo{}, objstore.NotFoundError{Path: id}
	}
	content := make([]byte, len(obj.content))
	copy(content, obj.content)
	return content, d.info(id, obj), nil
}

func (d *Driver) Stat(ctx context.Context, id string) (objstore.ObjectInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	obj, exists := d.objects[id]
	if !exists {
		return objstore.ObjectInfo{}, objstore.NotFoundError{Path: id}
	}
	return d.info(id, obj), nil
}

func (d *Driver) Create(ctx context.Context, name string, contentType string, content []byte) (objstore.ObjectInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, exists := d.objects[name]; exists {
		return objstore.ObjectInfo{}, objstore.PreconditionError{Path: name, ETag: existing.etag}
	}
	obj := &object{
		content:      append([]byte(nil), content...),
		contentType:  contentType,
		etag:         d.nextTag(),
		lastModified: time.Now(),
	}
	d.objects[name] = obj
	return d.info(name, obj), nil
}

func (d *Driver) Update(ctx context.Context, id string, content []byte, etag string) (objstore.ObjectInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj, exists := d.objects[id]
	if !exists {
		return objstore.ObjectInfo{}, objstore.NotFoundError{Path: id}
	}
	if obj.etag != etag {
		return objstore.ObjectInfo{}, objstore.PreconditionError{Path: id, ETag: obj.etag}
	}
	obj.content = append([]byte(nil), content...)
	obj.etag = d.nextTag()
	obj.lastModified = time.Now()
	return d.info(id, obj), nil
}

func (d *Driver) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.objects[id]; !exists {
		return objstore.NotFoundError{Path: id}
	}
	delete(d.objects, id)
	return nil
}

func (d *Driver) info(name string, obj *object) objstore.ObjectInfo {
	return objstore.ObjectInfo{
		ID:           name,
		Name:         name,
		ETag:         obj.etag,
		Size:         int64(len(obj.content)),
		LastModified: obj.lastModified,
	}
}
