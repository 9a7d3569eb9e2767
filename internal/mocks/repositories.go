// Package mocks provides in-memory repository implementations for tests.
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/coop-records-api/internal/models"
	"github.com/coop-records-api/internal/repository"
)

// MockRecordRepository is an in-memory RecordRepository. Err, when set,
// is returned by every method to simulate a backend outage. QueryFunc
// and InsertFunc override the default behavior when set.
type MockRecordRepository struct {
	mu sync.Mutex

	Err        error
	QueryFunc  func(d models.Domain, f models.QueryFilter, limit int) ([]models.Record, error)
	InsertFunc func(d models.Domain, cols []string, rows [][]any) error

	Records    map[models.Domain][]models.Record
	Columns    map[string][]string
	Plates     map[string]string
	DuesOwners map[string]bool

	InsertedChunks []InsertedChunk
	QueryCalls     []models.QueryFilter
	Truncated      []models.Domain
}

// InsertedChunk captures one InsertChunk call.
type InsertedChunk struct {
	Domain models.Domain
	Cols   []string
	Rows   [][]any
}

// NewMockRecordRepository creates an empty mock record repository.
func NewMockRecordRepository() *MockRecordRepository {
	return &MockRecordRepository{
		Records:    make(map[models.Domain][]models.Record),
		Columns:    make(map[string][]string),
		Plates:     make(map[string]string),
		DuesOwners: make(map[string]bool),
	}
}

func (m *MockRecordRepository) Query(_ context.Context, d models.Domain, f models.QueryFilter, limit int) ([]models.Record, error) {
	m.mu.Lock()
	m.QueryCalls = append(m.QueryCalls, f)
	err := m.Err
	fn := m.QueryFunc
	records := m.Records[d]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	// QueryFunc runs outside the lock so tests can block in it
	if fn != nil {
		return fn(d, f, limit)
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *MockRecordRepository) InsertChunk(_ context.Context, d models.Domain, cols []string, rows [][]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.InsertFunc != nil {
		if err := m.InsertFunc(d, cols, rows); err != nil {
			return err
		}
	}
	m.InsertedChunks = append(m.InsertedChunks, InsertedChunk{Domain: d, Cols: cols, Rows: rows})
	return nil
}

func (m *MockRecordRepository) Truncate(_ context.Context, d models.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Truncated = append(m.Truncated, d)
	m.Records[d] = nil
	return nil
}

func (m *MockRecordRepository) ListColumns(_ context.Context, table string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Columns[table], nil
}

func (m *MockRecordRepository) OwnerPlate(_ context.Context, ownerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.Plates[ownerID], nil
}

func (m *MockRecordRepository) OwnerHasDues(_ context.Context, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	return m.DuesOwners[ownerID], nil
}

func (m *MockRecordRepository) Count(_ context.Context, d models.Domain) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.Records[d]), nil
}

// RowsInserted returns the total row count across captured chunks.
func (m *MockRecordRepository) RowsInserted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, c := range m.InsertedChunks {
		total += len(c.Rows)
	}
	return total
}

// MockProfileRepository is an in-memory ProfileRepository.
type MockProfileRepository struct {
	mu sync.Mutex

	Err    error
	Admins map[string]*repository.AdminProfile
	Owners map[string]*repository.OwnerProfile // keyed by owner ID

	CreatedOwners []*repository.OwnerProfile
}

// NewMockProfileRepository creates an empty mock profile repository.
func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{
		Admins: make(map[string]*repository.AdminProfile),
		Owners: make(map[string]*repository.OwnerProfile),
	}
}

func (m *MockProfileRepository) AdminByEmail(_ context.Context, email string) (*repository.AdminProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Admins[email], nil
}

func (m *MockProfileRepository) OwnerByEmail(_ context.Context, email string) (*repository.OwnerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, o := range m.Owners {
		if o.Email == email {
			return o, nil
		}
	}
	return nil, nil
}

func (m *MockProfileRepository) OwnerByID(_ context.Context, ownerID string) (*repository.OwnerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Owners[ownerID], nil
}

func (m *MockProfileRepository) CreateOwner(_ context.Context, profile *repository.OwnerProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, exists := m.Owners[profile.OwnerID]; exists {
		return fmt.Errorf("owner %s already exists", profile.OwnerID)
	}
	m.Owners[profile.OwnerID] = profile
	m.CreatedOwners = append(m.CreatedOwners, profile)
	return nil
}

// MockJobRepository is an in-memory JobRepository.
type MockJobRepository struct {
	mu   sync.Mutex
	Err  error
	jobs map[string]*models.ImportJob
}

// NewMockJobRepository creates an empty mock job repository.
func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{jobs: make(map[string]*models.ImportJob)}
}

func (m *MockJobRepository) Create(_ context.Context, job *models.ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *MockJobRepository) Update(_ context.Context, job *models.ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *MockJobRepository) GetByID(_ context.Context, id string) (*models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (m *MockJobRepository) GetByIdempotencyKey(_ context.Context, key string) (*models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil || key == "" {
		return nil, m.Err
	}
	for _, job := range m.jobs {
		if job.IdempotencyKey == key {
			copied := *job
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockJobRepository) GetPendingJobs(_ context.Context) ([]*models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var pending []*models.ImportJob
	for _, job := range m.jobs {
		if job.Status == models.JobStatusPending {
			copied := *job
			pending = append(pending, &copied)
		}
	}
	return pending, nil
}

func (m *MockJobRepository) MarkJobAsProcessing(_ context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	job, ok := m.jobs[jobID]
	if !ok || job.Status != models.JobStatusPending {
		return false, nil
	}
	job.Status = models.JobStatusProcessing
	return true, nil
}
