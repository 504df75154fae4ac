package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Revisions have the form "<generation>-<hash>", e.g. "3-abc123". The
// generation is incremented on every edit of a document.

// Generation returns the leading integer of a revision string, or 0 for an
// empty or malformed revision.
func Generation(revision string) int {
	if revision == "" {
		return 0
	}
	genPart, _, found := strings.Cut(revision, "-")
	if !found {
		return 0
	}
	gen, err := strconv.Atoi(genPart)
	if err != nil {
		return 0
	}
	return gen
}

// NewRevision derives the revision of the next edit of a document from its
// prior revision and the new body. Tombstones hash without a body.
func NewRevision(priorRevision string, body []byte, deleted bool) string {
	h := md5.New()
	h.Write([]byte(priorRevision))
	if deleted {
		h.Write([]byte{0})
	} else {
		h.Write(body)
	}
	digest := hex.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%d-%s", Generation(priorRevision)+1, digest)
}
