package repository

import (
	"context"
	"database/sql"

	"github.com/coop-records-api/internal/database"
	"github.com/coop-records-api/internal/models"
)

// jobRepo is the concrete implementation of JobRepository
type jobRepo struct {
	db *database.DB
}

// NewJobRepo creates a new job repository
func NewJobRepo(db *database.DB) JobRepository {
	return &jobRepo{db: db}
}

const jobColumns = `id, domain, status, idempotency_key, replace_existing,
	total_rows, rows_committed, percent_complete, detail, file_path,
	created_at, started_at, completed_at`

// Create inserts a new import job
func (r *jobRepo) Create(ctx context.Context, job *models.ImportJob) error {
	query := `
		INSERT INTO import_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Domain, job.Status, job.IdempotencyKey, job.Replace,
		job.TotalRows, job.RowsCommitted, job.Percent, job.Detail, job.FilePath,
		job.CreatedAt, job.StartedAt, job.CompletedAt,
	)
	return err
}

// Update persists the mutable job fields
func (r *jobRepo) Update(ctx context.Context, job *models.ImportJob) error {
	query := `
		UPDATE import_jobs
		SET status = $2, total_rows = $3, rows_committed = $4,
			percent_complete = $5, detail = $6, started_at = $7, completed_at = $8
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, job.TotalRows, job.RowsCommitted,
		job.Percent, job.Detail, job.StartedAt, job.CompletedAt,
	)
	return err
}

// GetByID retrieves a job by ID
func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	query := `SELECT ` + jobColumns + ` FROM import_jobs WHERE id = $1`
	return r.scanJob(r.db.QueryRowContext(ctx, query, id))
}

// GetByIdempotencyKey retrieves a job by its idempotency key
func (r *jobRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportJob, error) {
	if key == "" {
		return nil, nil
	}
	query := `SELECT ` + jobColumns + ` FROM import_jobs WHERE idempotency_key = $1`
	return r.scanJob(r.db.QueryRowContext(ctx, query, key))
}

func (r *jobRepo) scanJob(row *sql.Row) (*models.ImportJob, error) {
	var job models.ImportJob
	var idemKey, detail sql.NullString
	err := row.Scan(
		&job.ID, &job.Domain, &job.Status, &idemKey, &job.Replace,
		&job.TotalRows, &job.RowsCommitted, &job.Percent, &detail, &job.FilePath,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	job.IdempotencyKey = idemKey.String
	job.Detail = detail.String
	return &job, nil
}

// GetPendingJobs retrieves all jobs awaiting processing, oldest first
func (r *jobRepo) GetPendingJobs(ctx context.Context) ([]*models.ImportJob, error) {
	query := `SELECT ` + jobColumns + ` FROM import_jobs WHERE status = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, models.JobStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.ImportJob
	for rows.Next() {
		var job models.ImportJob
		var idemKey, detail sql.NullString
		err := rows.Scan(
			&job.ID, &job.Domain, &job.Status, &idemKey, &job.Replace,
			&job.TotalRows, &job.RowsCommitted, &job.Percent, &detail, &job.FilePath,
			&job.CreatedAt, &job.StartedAt, &job.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		job.IdempotencyKey = idemKey.String
		job.Detail = detail.String
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

// MarkJobAsProcessing atomically claims a pending job. Returns false if
// another worker already claimed it.
func (r *jobRepo) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE import_jobs SET status = $2, started_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, jobID, models.JobStatusProcessing, models.JobStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
