package logstore

import (
	"bufio"
	"bytes"
	"context"
	"fmt"

	json "github.com/json-iterator/go"

	"DocDB/internal/domain"
	"DocDB/internal/platform/objstore"
)

// ChangeLog serializes batches of mutations into immutable, uniquely named
// log objects: one JSON-encoded ChangeEntry per line, in submission order.
// Log objects are write-once; they are never updated in place.
type ChangeLog struct {
	store    objstore.ObjectStore
	database string
}

func NewChangeLog(store objstore.ObjectStore, database string) *ChangeLog {
	return &ChangeLog{
		store:    store,
		database: database,
	}
}

// WriteBatch stores entries as a new log object and returns its id. The
// batch must not be empty: the name embeds the first entry's sequence.
func (l *ChangeLog) WriteBatch(ctx context.Context, entries []domain.ChangeEntry) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("changelog: empty batch")
	}
	var buf bytes.Buffer
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return "", fmt.Errorf("changelog: encode entry %q: %w", entry.DocumentID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	name := changeLogName(l.database, entries[0].Sequence)
	info, err := l.store.Create(ctx, name, contentTypeJSONL, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("changelog: write batch %s: %w", name, err)
	}
	return info.ID, nil
}

// ReadBatch parses a log object back into its entries, preserving order.
func (l *ChangeLog) ReadBatch(ctx context.Context, logObjectID string) ([]domain.ChangeEntry, error) {
	raw, _, err := l.store.Read(ctx, logObjectID)
	if err != nil {
		if objstore.IsNotFound(err) {
			return nil, fmt.Errorf("changelog: %s: %w", logObjectID, domain.ErrNotFound)
		}
		return nil, err
	}
	return parseBatch(logObjectID, raw)
}

func parseBatch(logObjectID string, raw []byte) ([]domain.ChangeEntry, error) {
	var entries []domain.ChangeEntry
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(nil, 64<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry domain.ChangeEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, &domain.CorruptObjectError{ObjectID: logObjectID, Err: err}
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, &domain.CorruptObjectError{ObjectID: logObjectID, Err: err}
	}
	return entries, nil
}
