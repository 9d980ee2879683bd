package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/apperr"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/crypto"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/model"
)

// Credentials carries both trust channels of an inbound request. At most
// one of them resolves; callers never learn which.
type Credentials struct {
	BearerToken string
	Tenant      *TenantCredential
}

type TenantCredential struct {
	InstitutionID string
	Username      string
	Password      string
}

// Strategy resolves one credential channel. Returning (nil, nil) means the
// channel's credential shape is absent from the request.
type Strategy interface {
	Resolve(ctx context.Context, creds Credentials) (*Principal, error)
}

type Resolver struct {
	strategies []Strategy
}

func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (*Principal, error) {
	for _, strategy := range r.strategies {
		principal, err := strategy.Resolve(ctx, creds)
		if err != nil {
			return nil, err
		}
		if principal != nil {
			return principal, nil
		}
	}
	return nil, apperr.New(apperr.Unauthenticated, "missing_credentials")
}

type ProfileReader interface {
	GetUserProfile(ctx context.Context, userID string) (model.UserProfile, error)
}

// TokenStrategy verifies identity-issued bearer tokens and loads the
// user's profile for role and mirrored institution.
type TokenStrategy struct {
	secret   string
	issuer   string
	profiles ProfileReader
}

func NewTokenStrategy(secret, issuer string, profiles ProfileReader) *TokenStrategy {
	return &TokenStrategy{secret: secret, issuer: issuer, profiles: profiles}
}

func (s *TokenStrategy) Resolve(ctx context.Context, creds Credentials) (*Principal, error) {
	if creds.BearerToken == "" {
		return nil, nil
	}
	claims, err := ParseToken(s.secret, s.issuer, creds.BearerToken)
	if err != nil {
		return nil, apperr.New(apperr.Unauthenticated, "invalid_token")
	}
	if claims.UserType == string(KindMainAdmin) {
		return NewPrincipal(KindMainAdmin, claims.UserID, ""), nil
	}

	profile, err := s.profiles.GetUserProfile(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.Unauthenticated, "unknown_user")
		}
		return nil, apperr.New(apperr.CollaboratorFailure, "profile_lookup_failed")
	}

	institutionID := ""
	if profile.InstitutionID != nil {
		institutionID = *profile.InstitutionID
	}
	switch profile.UserType {
	case model.RoleTeacher:
		return NewPrincipal(KindTeacher, profile.UserID, institutionID), nil
	case model.RoleStudent:
		return NewPrincipal(KindStudent, profile.UserID, institutionID), nil
	case model.RoleAdmin:
		return NewPrincipal(KindInstitutionAdmin, profile.UserID, institutionID), nil
	default:
		return nil, apperr.New(apperr.Unauthenticated, "unknown_user_type")
	}
}

type CredentialReader interface {
	GetActiveAdminCredential(ctx context.Context, institutionID, username string) (model.AdminCredential, error)
}

// TenantCredentialStrategy authenticates an institution's self-hosted
// admin by username and password, compared against the stored bcrypt hash.
type TenantCredentialStrategy struct {
	credentials CredentialReader
	throttle    *LoginThrottle
}

func NewTenantCredentialStrategy(credentials CredentialReader, throttle *LoginThrottle) *TenantCredentialStrategy {
	return &TenantCredentialStrategy{credentials: credentials, throttle: throttle}
}

func (s *TenantCredentialStrategy) Resolve(ctx context.Context, creds Credentials) (*Principal, error) {
	tenant := creds.Tenant
	if tenant == nil {
		return nil, nil
	}
	if tenant.InstitutionID == "" || tenant.Username == "" || tenant.Password == "" {
		return nil, apperr.New(apperr.Unauthenticated, "missing_credentials")
	}
	if !s.throttle.Allow(ctx, tenant.InstitutionID, tenant.Username) {
		return nil, apperr.New(apperr.Unauthenticated, "too_many_attempts")
	}

	credential, err := s.credentials.GetActiveAdminCredential(ctx, tenant.InstitutionID, tenant.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.throttle.RecordFailure(ctx, tenant.InstitutionID, tenant.Username)
			return nil, apperr.New(apperr.Unauthenticated, "invalid_credentials")
		}
		return nil, apperr.New(apperr.CollaboratorFailure, "credential_lookup_failed")
	}
	if err := crypto.CheckPassword(credential.PasswordHash, tenant.Password); err != nil {
		s.throttle.RecordFailure(ctx, tenant.InstitutionID, tenant.Username)
		return nil, apperr.New(apperr.Unauthenticated, "invalid_credentials")
	}

	s.throttle.Reset(ctx, tenant.InstitutionID, tenant.Username)
	return NewPrincipal(KindInstitutionAdmin, "", credential.InstitutionID), nil
}
