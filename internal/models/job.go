package models

import "time"

// JobStatus represents the status of an import job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ImportJob tracks one bulk load from upload to completion. Imports are
// at-least-once: a failed job is never retried automatically and
// re-running one may duplicate rows already committed.
type ImportJob struct {
	ID             string     `json:"job_id" db:"id"`
	Domain         Domain     `json:"domain" db:"domain"`
	Status         JobStatus  `json:"status" db:"status"`
	IdempotencyKey string     `json:"idempotency_key,omitempty" db:"idempotency_key"`
	Replace        bool       `json:"replace" db:"replace_existing"`
	TotalRows      int        `json:"total_rows" db:"total_rows"`
	RowsCommitted  int        `json:"rows_committed" db:"rows_committed"`
	Percent        float64    `json:"percent_complete" db:"percent_complete"`
	Detail         string     `json:"detail,omitempty" db:"detail"`
	FilePath       string     `json:"-" db:"file_path"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
