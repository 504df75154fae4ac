package logstore

import (
	"context"
	"fmt"

	json "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"DocDB/internal/domain"
	"DocDB/internal/platform/objstore"
	"DocDB/internal/platform/retry"
)

// MetaController owns the database's single root pointer object. Every
// writer race is serialized through its conditional updates; a precondition
// mismatch surfaces as domain.ErrConflict, the only retryable error here.
type MetaController struct {
	store    objstore.ObjectStore
	database string
	policy   retry.Policy
	logger   *logrus.Entry
}

func NewMetaController(store objstore.ObjectStore, database string, policy retry.Policy) *MetaController {
	return &MetaController{
		store:    store,
		database: database,
		policy:   policy,
		logger:   logrus.WithField("component", "meta").WithField("database", database),
	}
}

// Read fetches the current MetaDocument and its precondition token.
func (c *MetaController) Read(ctx context.Context) (domain.MetaDocument, string, error) {
	id := metaObjectName(c.database)
	raw, info, err := c.store.Read(ctx, id)
	if err != nil {
		if objstore.IsNotFound(err) {
			return domain.MetaDocument{}, "", fmt.Errorf("meta %s: %w", id, domain.ErrNotFound)
		}
		return domain.MetaDocument{}, "", err
	}
	var meta domain.MetaDocument
	if err := json.Unmarshal(raw, &meta); err != nil {
		return domain.MetaDocument{}, "", &domain.CorruptObjectError{ObjectID: id, Err: err}
	}
	return meta, info.ETag, nil
}

// Init reads the root pointer, creating it with an empty state when the
// database does not exist yet. When two instances race the creation, the
// loser re-reads and adopts the winner's document.
func (c *MetaController) Init(ctx context.Context) (domain.MetaDocument, string, error) {
	meta, etag, err := c.Read(ctx)
	if err == nil {
		return meta, etag, nil
	}
	if !isNotFound(err) {
		return domain.MetaDocument{}, "", err
	}

	fresh := domain.MetaDocument{DatabaseName: c.database}
	raw, err := json.Marshal(fresh)
	if err != nil {
		return domain.MetaDocument{}, "", err
	}
	info, err := c.store.Create(ctx, metaObjectName(c.database), contentTypeJSON, raw)
	if err != nil {
		if objstore.IsPrecondition(err) {
			c.logger.Debug("lost root pointer creation race, re-reading")
			return c.Read(ctx)
		}
		return domain.MetaDocument{}, "", err
	}
	c.logger.Info("created database root pointer")
	return fresh, info.ETag, nil
}

// Write commits meta only if etag still matches the root pointer's current
// token, returning the new token. A mismatch yields domain.ErrConflict.
func (c *MetaController) Write(ctx context.Context, meta domain.MetaDocument, etag string) (string, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	info, err := c.store.Update(ctx, metaObjectName(c.database), raw, etag)
	if err != nil {
		if objstore.IsPrecondition(err) {
			return "", fmt.Errorf("meta %s: %w", c.database, domain.ErrConflict)
		}
		return "", err
	}
	return info.ETag, nil
}

// Update is read-modify-conditionally-write with automatic refresh and retry
// on precondition failure. mutate sees the freshest document on every
// attempt.
func (c *MetaController) Update(ctx context.Context, mutate func(*domain.MetaDocument) error) (domain.MetaDocument, string, error) {
	var committed domain.MetaDocument
	var token string
	err := retry.Do(ctx, c.policy, IsConflict, func(ctx context.Context) error {
		meta, etag, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if err := mutate(&meta); err != nil {
			return err
		}
		newTag, err := c.Write(ctx, meta, etag)
		if err != nil {
			return err
		}
		committed = meta
		token = newTag
		return nil
	})
	if err != nil {
		return domain.MetaDocument{}, "", err
	}
	return committed, token, nil
}

// Stamp returns the root pointer's cheap change indicator without reading
// its body.
func (c *MetaController) Stamp(ctx context.Context) (string, error) {
	info, err := c.store.Stat(ctx, metaObjectName(c.database))
	if err != nil {
		if objstore.IsNotFound(err) {
			return "", fmt.Errorf("meta %s: %w", c.database, domain.ErrNotFound)
		}
		return "", err
	}
	return info.ETag, nil
}
