package logstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Object names inside one container are prefixed with the database name.
// These formats are a wire contract shared with every reader of the same
// database.

const (
	contentTypeJSON  = "application/json"
	contentTypeJSONL = "application/x-ndjson"

	snapshotTimeFormat = "20060102150405.000000000"
)

func metaObjectName(database string) string {
	return database + "/meta"
}

func changeLogPrefix(database string) string {
	return database + "/changelog/"
}

// changeLogName embeds the batch's starting sequence number plus a random
// disambiguator, so concurrent writers can never collide on a name.
func changeLogName(database string, startSequence uint64) string {
	return fmt.Sprintf("%s%020d-%s", changeLogPrefix(database), startSequence, uuid.NewString())
}

func snapshotIndexName(database string, createdAt time.Time) string {
	return fmt.Sprintf("%s/snapshot/index-%s", database, createdAt.UTC().Format(snapshotTimeFormat))
}

func snapshotDataName(database string, createdAt time.Time) string {
	return fmt.Sprintf("%s/snapshot/data-%s", database, createdAt.UTC().Format(snapshotTimeFormat))
}

func containerPrefix(database string) string {
	return database + "/"
}
