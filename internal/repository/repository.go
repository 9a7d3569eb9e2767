package repository

import (
	"context"

	"github.com/coop-records-api/internal/database"
	"github.com/coop-records-api/internal/models"
)

// RecordRepository defines data operations over the four domain tables.
// Columns are data here, not code: one repository serves every domain
// through its canonical column set.
type RecordRepository interface {
	Query(ctx context.Context, d models.Domain, f models.QueryFilter, limit int) ([]models.Record, error)
	InsertChunk(ctx context.Context, d models.Domain, cols []string, rows [][]any) error
	Truncate(ctx context.Context, d models.Domain) error
	ListColumns(ctx context.Context, table string) ([]string, error)
	OwnerPlate(ctx context.Context, ownerID string) (string, error)
	OwnerHasDues(ctx context.Context, ownerID string) (bool, error)
	Count(ctx context.Context, d models.Domain) (int, error)
}

// AdminProfile is a staff login profile.
type AdminProfile struct {
	Email    string
	Password string
	Name     string
}

// OwnerProfile is a vehicle-owner login profile. Email is unset for
// owners created through numeric-ID self-enrollment.
type OwnerProfile struct {
	OwnerID  string
	Email    string
	Password string
}

// ProfileRepository defines the interface for login profile lookups.
// Lookups return (nil, nil) when no profile matches; an error always
// means the backend itself failed.
type ProfileRepository interface {
	AdminByEmail(ctx context.Context, email string) (*AdminProfile, error)
	OwnerByEmail(ctx context.Context, email string) (*OwnerProfile, error)
	OwnerByID(ctx context.Context, ownerID string) (*OwnerProfile, error)
	CreateOwner(ctx context.Context, profile *OwnerProfile) error
}

// JobRepository defines the interface for import job tracking.
type JobRepository interface {
	Create(ctx context.Context, job *models.ImportJob) error
	Update(ctx context.Context, job *models.ImportJob) error
	GetByID(ctx context.Context, id string) (*models.ImportJob, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportJob, error)
	GetPendingJobs(ctx context.Context) ([]*models.ImportJob, error)
	MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Record  RecordRepository
	Profile ProfileRepository
	Job     JobRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Record:  NewRecordRepo(db),
		Profile: NewProfileRepo(db),
		Job:     NewJobRepo(db),
	}
}
