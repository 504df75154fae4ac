package objstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ObjectInfo describes one stored object. ETag is the opaque precondition
// token a writer must present to prove it is mutating the version it last
// observed.
type ObjectInfo struct {
	ID           string
	Name         string
	ETag         string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the contract the engine requires from a remote, file
// oriented object store: list, whole-object reads, create-if-absent,
// conditional update, delete. No native transactions.
type ObjectStore interface {
	// List returns info for every object whose name starts with prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Read retrieves the full content of the object together with its info,
	// so callers get the content and its precondition token from one call.
	Read(ctx context.Context, id string) ([]byte, ObjectInfo, error)

	// Stat returns info for a single object without its content.
	Stat(ctx context.Context, id string) (ObjectInfo, error)

	// Create stores a new object. It fails with a PreconditionError if an
	// object with that name already exists.
	Create(ctx context.Context, name string, contentType string, content []byte) (ObjectInfo, error)

	// Update replaces an object's content only if etag still matches the
	// object's current tag, else fails with a PreconditionError.
	Update(ctx context.Context, id string, content []byte, etag string) (ObjectInfo, error)

	// Delete removes the object. Deleting an absent object is an error.
	Delete(ctx context.Context, id string) error
}

// NotFoundError is returned when operating on a nonexistent object.
type NotFoundError struct {
	Path string
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("objstore: object not found: %s", err.Path)
}

// PreconditionError is returned when a conditional create or update does not
// match the object's current state.
type PreconditionError struct {
	Path string
	ETag string
}

func (err PreconditionError) Error() string {
	return fmt.Sprintf("objstore: precondition failed for %s (tag %q)", err.Path, err.ETag)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	var pe PreconditionError
	return errors.As(err, &pe)
}
