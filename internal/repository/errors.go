package repository

import (
	"errors"

	sq "github.com/Masterminds/squirrel"
)

// ErrStaleStatus reports a guarded update that matched no row because the
// record left the expected status.
var ErrStaleStatus = errors.New("record status changed concurrently")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func pageWindow(limit, offset int) (uint64, uint64) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return uint64(limit), uint64(offset)
}
