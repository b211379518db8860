package dbutil

import (
	"errors"

	"github.com/lib/pq"
)

// IsConflict reports whether err is a postgres unique-constraint violation.
func IsConflict(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
