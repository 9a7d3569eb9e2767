package ingest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/coop-records-api/internal/models"
	"github.com/coop-records-api/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service owns import job lifecycle: creation with idempotency, the
// background processor that claims pending jobs, and status lookups.
type Service struct {
	pipeline *Pipeline
	records  repository.RecordRepository
	jobs     repository.JobRepository
	log      zerolog.Logger

	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates an import service polling for pending jobs at the
// given interval.
func NewService(pipeline *Pipeline, records repository.RecordRepository, jobs repository.JobRepository, interval time.Duration, log zerolog.Logger) *Service {
	return &Service{
		pipeline: pipeline,
		records:  records,
		jobs:     jobs,
		interval: interval,
		log:      log.With().Str("component", "import_service").Logger(),
	}
}

// CreateJob registers a new import job for the uploaded file. When
// idempotencyKey matches an existing job, that job is returned instead
// and existed is true; the duplicate upload is never processed.
func (s *Service) CreateJob(ctx context.Context, d models.Domain, replace bool, idempotencyKey, filePath string) (job *models.ImportJob, existed bool, err error) {
	if idempotencyKey != "" {
		existing, err := s.jobs.GetByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, false, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if existing != nil {
			return existing, true, nil
		}
	}

	job = &models.ImportJob{
		ID:             uuid.New().String(),
		Domain:         d,
		Status:         models.JobStatusPending,
		IdempotencyKey: idempotencyKey,
		Replace:        replace,
		FilePath:       filePath,
		CreatedAt:      time.Now(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, false, fmt.Errorf("failed to create import job: %w", err)
	}

	s.log.Info().Str("job_id", job.ID).Str("domain", string(d)).Bool("replace", replace).Msg("Import job created")
	return job, false, nil
}

// GetJob returns a job by ID, or nil when unknown.
func (s *Service) GetJob(ctx context.Context, id string) (*models.ImportJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// StartProcessor launches the background job processor. Jobs run one at
// a time: imports rewrite whole tables and must never interleave.
func (s *Service) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.processLoop(ctx)
	s.log.Info().Dur("interval", s.interval).Msg("Import processor started")
}

// StopProcessor stops the processor and waits for the in-flight job.
func (s *Service) StopProcessor() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("Import processor stopped")
}

func (s *Service) processLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.processPending(ctx)
		}
	}
}

func (s *Service) processPending(ctx context.Context) {
	pending, err := s.jobs.GetPendingJobs(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list pending jobs")
		return
	}

	for _, job := range pending {
		select {
		case <-ctx.Done():
			return
		default:
		}

		claimed, err := s.jobs.MarkJobAsProcessing(ctx, job.ID)
		if err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to claim job")
			continue
		}
		if !claimed {
			continue
		}
		s.processJob(ctx, job)
	}
}

// processJob runs one claimed job to completion and persists its final
// status. Completed inserts raise the table's change notification, so
// any live view over the domain refreshes on its own.
func (s *Service) processJob(ctx context.Context, job *models.ImportJob) {
	log := s.log.With().Str("job_id", job.ID).Str("domain", string(job.Domain)).Logger()
	log.Info().Msg("Processing import job")

	job.Status = models.JobStatusProcessing
	now := time.Now()
	job.StartedAt = &now

	file, err := os.Open(job.FilePath)
	if err != nil {
		s.finishJob(ctx, job, 0, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer file.Close()

	if job.Replace {
		if err := s.records.Truncate(ctx, job.Domain); err != nil {
			s.finishJob(ctx, job, 0, fmt.Errorf("failed to clear table before load: %w", err))
			return
		}
		log.Info().Msg("Existing rows cleared before load")
	}

	committed, err := s.pipeline.Ingest(ctx, job.Domain, file, func(p Progress) {
		job.TotalRows = p.TotalRows
		job.RowsCommitted = p.RowsSubmitted
		job.Percent = p.Percent
		if uerr := s.jobs.Update(ctx, job); uerr != nil {
			log.Warn().Err(uerr).Msg("Failed to persist job progress")
		}
	})
	s.finishJob(ctx, job, committed, err)
}

func (s *Service) finishJob(ctx context.Context, job *models.ImportJob, committed int, err error) {
	now := time.Now()
	job.CompletedAt = &now
	job.RowsCommitted = committed

	if err != nil {
		job.Status = models.JobStatusFailed
		job.Detail = fmt.Sprintf("%d of %d rows committed before failure: %v", committed, job.TotalRows, err)
		s.log.Error().Err(err).Str("job_id", job.ID).Int("rows_committed", committed).Msg("Import job failed")
	} else {
		job.Status = models.JobStatusCompleted
		job.TotalRows = committed
		job.Percent = 100
		job.Detail = fmt.Sprintf("%d rows imported", committed)
		s.log.Info().Str("job_id", job.ID).Int("rows", committed).Msg("Import job completed")
	}

	if uerr := s.jobs.Update(ctx, job); uerr != nil {
		s.log.Error().Err(uerr).Str("job_id", job.ID).Msg("Failed to persist final job status")
	}
}
