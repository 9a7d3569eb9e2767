package repository

import (
	"context"
	"database/sql"

	"github.com/coop-records-api/internal/database"
)

// profileRepo is the concrete implementation of ProfileRepository
type profileRepo struct {
	db *database.DB
}

// NewProfileRepo creates a new profile repository
func NewProfileRepo(db *database.DB) ProfileRepository {
	return &profileRepo{db: db}
}

// AdminByEmail retrieves an admin profile by email
func (r *profileRepo) AdminByEmail(ctx context.Context, email string) (*AdminProfile, error) {
	query := `SELECT email, password, nombre FROM admins WHERE email = $1`

	var profile AdminProfile
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&profile.Email, &profile.Password, &profile.Name,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

// OwnerByEmail retrieves an owner profile by email
func (r *profileRepo) OwnerByEmail(ctx context.Context, email string) (*OwnerProfile, error) {
	query := `SELECT cedula, COALESCE(email, ''), password FROM propietarios WHERE email = $1`
	return r.scanOwner(r.db.QueryRowContext(ctx, query, email))
}

// OwnerByID retrieves an owner profile by numeric owner ID
func (r *profileRepo) OwnerByID(ctx context.Context, ownerID string) (*OwnerProfile, error) {
	query := `SELECT cedula, COALESCE(email, ''), password FROM propietarios WHERE cedula = $1`
	return r.scanOwner(r.db.QueryRowContext(ctx, query, ownerID))
}

func (r *profileRepo) scanOwner(row *sql.Row) (*OwnerProfile, error) {
	var profile OwnerProfile
	err := row.Scan(&profile.OwnerID, &profile.Email, &profile.Password)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateOwner inserts a new owner profile. Used by self-enrollment;
// email stays NULL when unset.
func (r *profileRepo) CreateOwner(ctx context.Context, profile *OwnerProfile) error {
	query := `INSERT INTO propietarios (cedula, email, password) VALUES ($1, NULLIF($2, ''), $3)`
	_, err := r.db.ExecContext(ctx, query, profile.OwnerID, profile.Email, profile.Password)
	return err
}
