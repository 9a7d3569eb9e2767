// Package auth classifies login attempts into access tiers and carries
// the resolved session across requests.
//
// Credentials are stored and compared in plaintext to match the backing
// dataset; whether the backend encrypts those columns at rest is outside
// this service's control. Introducing hashing here would change the
// login contract for every existing profile row.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coop-records-api/internal/models"
	"github.com/coop-records-api/internal/repository"
	"github.com/rs/zerolog"
)

// Authentication failure taxonomy. Each is user-visible and specific;
// none is retryable without new input.
var (
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrMalformedIdentifier = errors.New("identifier is neither an email nor a numeric owner ID")
	ErrUnknownOwner        = errors.New("owner ID not found")
	ErrUnknownEmail        = errors.New("email not found")
	ErrBackendUnavailable  = errors.New("backend unavailable")
)

// MasterCredential is the hard-coded SuperAdmin bypass pair. It has no
// backing profile row and must stay an isolated check ahead of every
// lookup.
type MasterCredential struct {
	Identifier string
	Secret     string
}

// Resolver classifies a login attempt into one of the access tiers,
// performing just-in-time self-enrollment for unseen vehicle owners.
type Resolver struct {
	profiles repository.ProfileRepository
	records  repository.RecordRepository
	master   MasterCredential
	log      zerolog.Logger
}

// NewResolver creates a session resolver.
func NewResolver(profiles repository.ProfileRepository, records repository.RecordRepository, master MasterCredential, log zerolog.Logger) *Resolver {
	return &Resolver{
		profiles: profiles,
		records:  records,
		master:   master,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

// Resolve turns an identifier/secret pair into a Session or one of the
// taxonomy errors. The identifier is an email when it contains "@" and
// a numeric owner ID otherwise.
func (r *Resolver) Resolve(ctx context.Context, identifier, secret string) (*models.Session, error) {
	identifier = strings.TrimSpace(identifier)

	// Master bypass: always SuperAdmin, no backing-store record.
	if r.isMaster(identifier, secret) {
		r.log.Info().Str("identity", identifier).Msg("Master credential login")
		return &models.Session{Identity: identifier, Tier: models.TierSuperAdmin}, nil
	}

	isEmail := strings.Contains(identifier, "@")
	isNumeric := isNumericID(identifier)
	if !isEmail && !isNumeric {
		return nil, ErrMalformedIdentifier
	}

	if isEmail {
		admin, err := r.profiles.AdminByEmail(ctx, identifier)
		if err != nil {
			return nil, backendErr(err)
		}
		if admin != nil {
			if admin.Password != secret {
				return nil, ErrInvalidCredential
			}
			r.log.Info().Str("identity", identifier).Msg("Admin login")
			return &models.Session{Identity: identifier, Tier: models.TierAdmin}, nil
		}
	}

	var owner *repository.OwnerProfile
	var err error
	if isEmail {
		owner, err = r.profiles.OwnerByEmail(ctx, identifier)
	} else {
		owner, err = r.profiles.OwnerByID(ctx, identifier)
	}
	if err != nil {
		return nil, backendErr(err)
	}

	if owner == nil {
		if isEmail {
			// No self-enrollment for email identifiers.
			return nil, ErrUnknownEmail
		}
		return r.enroll(ctx, identifier, secret)
	}

	if owner.Password != secret {
		return nil, ErrInvalidCredential
	}
	return r.ownerSession(ctx, identifier, owner.OwnerID)
}

// enroll creates an owner profile on the fly for a numeric ID that
// already appears in the dues records. Only numeric-ID owners can
// self-register.
func (r *Resolver) enroll(ctx context.Context, ownerID, secret string) (*models.Session, error) {
	known, err := r.records.OwnerHasDues(ctx, ownerID)
	if err != nil {
		return nil, backendErr(err)
	}
	if !known {
		return nil, ErrUnknownOwner
	}

	profile := &repository.OwnerProfile{OwnerID: ownerID, Password: secret}
	if err := r.profiles.CreateOwner(ctx, profile); err != nil {
		return nil, backendErr(err)
	}

	r.log.Info().Str("owner_id", ownerID).Msg("Owner self-enrolled")
	return r.ownerSession(ctx, ownerID, ownerID)
}

// ownerSession builds an Owner session, resolving the linked plate from
// the dues records. An owner without dues rows gets an empty plate.
func (r *Resolver) ownerSession(ctx context.Context, identity, ownerID string) (*models.Session, error) {
	plate, err := r.records.OwnerPlate(ctx, ownerID)
	if err != nil {
		return nil, backendErr(err)
	}

	r.log.Info().Str("owner_id", ownerID).Str("plate", plate).Msg("Owner login")
	return &models.Session{
		Identity: identity,
		Tier:     models.TierOwner,
		Plate:    plate,
		OwnerID:  ownerID,
	}, nil
}

func (r *Resolver) isMaster(identifier, secret string) bool {
	return r.master.Identifier != "" &&
		identifier == r.master.Identifier &&
		secret == r.master.Secret
}

func isNumericID(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// backendErr keeps transport failures distinct from "no matching
// profile" so callers never conflate the two.
func backendErr(err error) error {
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}
