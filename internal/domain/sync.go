package domain

import (
	"errors"
	"time"
)

// ErrSourceDenied is returned by the source when the remote account's liked
// list is not accessible (privacy restriction or missing authentication).
var ErrSourceDenied = errors.New("source denied access to liked videos")

// ErrUnknownField is returned when a projection requests a field name that
// has no column mapping.
var ErrUnknownField = errors.New("unknown projection field")

type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// RunRecord is one entry of the append-only sync audit log.
type RunRecord struct {
	ID           int64     `db:"id"`
	AccountID    int64     `db:"account_id"`
	RunTime      time.Time `db:"run_time"`
	FetchedCount int       `db:"fetched_count"`
	Status       RunStatus `db:"status"`
	Detail       *string   `db:"detail"`
}

// SyncResult summarizes one synchronization run.
type SyncResult struct {
	AccountID  int64
	Fetched    int
	New        int
	Saved      int
	Skipped    int
	TotalLikes int
	Duration   time.Duration
	// DegradedAudit is set when reconciliation committed but the run record
	// could not be appended.
	DegradedAudit bool
}

// Statistics aggregates counts across the stores.
type Statistics struct {
	TotalVideos     int64
	TotalLikes      int64
	UniqueAccounts  int64
	LastSuccessTime *time.Time

	// Populated only when statistics were requested for one account.
	AccountLikes   *int64
	AccountLastRun *time.Time
}
