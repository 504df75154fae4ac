package logstore

import (
	"errors"

	"DocDB/internal/domain"
)

// IsConflict reports whether err is a root-pointer precondition mismatch,
// the only error the engine retries.
func IsConflict(err error) bool {
	return errors.Is(err, domain.ErrConflict)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func isCorrupt(err error) bool {
	var corrupt *domain.CorruptObjectError
	return errors.As(err, &corrupt)
}
