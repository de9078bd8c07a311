package ranking

import "errors"

var (
	ErrInvalidPeriod    = errors.New("period must be all_time or monthly")
	ErrInvalidScope     = errors.New("scope must be global or company")
	ErrInvalidMonth     = errors.New("snapshot period must look like YYYY-MM")
	ErrSnapshotNotFound = errors.New("ranking snapshot not found")
	ErrSnapshotExists   = errors.New("a snapshot for this month already exists")
	ErrNoCompany        = errors.New("company leaderboards need a company account or worker")
	ErrNotRanked        = errors.New("only workers and individuals appear on leaderboards")
)
