package membership

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/apperr"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/auth"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/crypto"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/identity"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/model"
)

type Store interface {
	GetInstitution(ctx context.Context, id string) (model.Institution, error)
	GetUserProfile(ctx context.Context, userID string) (model.UserProfile, error)
	GetUserProfileByEmail(ctx context.Context, email string) (model.UserProfile, error)
	CountActiveStudents(ctx context.Context, institutionID string) (int, error)
	GetMembership(ctx context.Context, userID, institutionID string) (model.Membership, error)
	ListActiveMemberships(ctx context.Context, userID string) ([]model.Membership, error)
	SetMembershipActive(ctx context.Context, userID, institutionID string, active bool) error
	UpsertMembership(ctx context.Context, m model.Membership) error
	DeleteMembership(ctx context.Context, userID, institutionID string) error
	DeleteMembershipsByUser(ctx context.Context, userID string) error
	UpsertTeacher(ctx context.Context, teacher model.Teacher) error
	UpsertStudent(ctx context.Context, student model.Student) error
	UpsertUserProfile(ctx context.Context, profile model.UserProfile) error
	GetTeacherRecord(ctx context.Context, userID string) (model.Teacher, error)
	GetStudentRecord(ctx context.Context, userID string) (model.Student, error)
	ClearRoleInstitution(ctx context.Context, userID string) error
	SetProfileInstitution(ctx context.Context, userID string, institutionID *string) error
	DeleteTeacherLinks(ctx context.Context, teacherID string) error
	DeleteStudentLinks(ctx context.Context, studentID string) error
	WithUserLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type Coordinator struct {
	store    Store
	identity identity.Provider
	logger   *zap.Logger
}

func NewCoordinator(store Store, provider identity.Provider, logger *zap.Logger) *Coordinator {
	return &Coordinator{store: store, identity: provider, logger: logger}
}

type MoveRequest struct {
	Email            string
	Name             string
	Role             string
	InstitutionID    string
	DeactivateOthers bool

	// role-specific attributes
	Branch      string
	Grade       string
	ParentName  string
	ParentPhone string
}

type MoveResult struct {
	UserID        string
	InstitutionID string
	Role          string
	Provisioned   bool
}

// MoveOrCreate adds a user to the target institution, moving them out of
// any other institution once the caller confirms with DeactivateOthers.
// Re-invoking with identical arguments is safe: the membership upsert is
// keyed by (user, institution).
func (c *Coordinator) MoveOrCreate(ctx context.Context, principal *auth.Principal, req MoveRequest) (*MoveResult, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	inst, err := c.store.GetInstitution(ctx, req.InstitutionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "institution_not_found")
		}
		return nil, apperr.New(apperr.CollaboratorFailure, "institution_lookup_failed")
	}
	if !inst.IsActive {
		return nil, apperr.New(apperr.Forbidden, "institution_inactive")
	}
	if err := auth.RequireManageInstitution(principal, inst.ID); err != nil {
		return nil, err
	}

	var result *MoveResult
	err = c.store.WithUserLock(ctx, email, func(ctx context.Context) error {
		moved, moveErr := c.moveLocked(ctx, inst, email, req)
		result = moved
		return moveErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Coordinator) moveLocked(ctx context.Context, inst model.Institution, email string, req MoveRequest) (*MoveResult, error) {
	provisioned := false
	profile, err := c.store.GetUserProfileByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.CollaboratorFailure, "user_lookup_failed")
		}
		password, err := crypto.NewDefaultPassword()
		if err != nil {
			return nil, apperr.New(apperr.Unexpected, "password_generation_failed")
		}
		userID, err := c.identity.ProvisionUser(ctx, identity.NewUser{
			Email:    email,
			Name:     req.Name,
			UserType: req.Role,
			Password: password,
		})
		if err != nil {
			return nil, err
		}
		profile = model.UserProfile{UserID: userID, Name: req.Name, Email: email, UserType: req.Role}
		provisioned = true
	}

	// Quota guard runs before any write.
	if req.Role == model.RoleStudent {
		count, err := c.store.CountActiveStudents(ctx, inst.ID)
		if err != nil {
			return nil, apperr.New(apperr.CollaboratorFailure, "quota_check_failed")
		}
		if count >= inst.MaxStudents {
			return nil, apperr.New(apperr.LimitReached, "student_limit_reached")
		}
	}

	active, err := c.store.ListActiveMemberships(ctx, profile.UserID)
	if err != nil {
		return nil, apperr.New(apperr.CollaboratorFailure, "membership_lookup_failed")
	}
	var others []model.Membership
	for _, m := range active {
		if m.InstitutionID != inst.ID {
			others = append(others, m)
		}
	}
	if len(others) > 0 && !req.DeactivateOthers {
		return nil, apperr.WithDetails(apperr.Conflict, "active_membership_elsewhere", c.institutionNames(ctx, others))
	}

	run := &saga{}
	for _, other := range others {
		other := other
		run.bestEffort("deactivate_membership",
			func(ctx context.Context) error {
				return c.store.SetMembershipActive(ctx, other.UserID, other.InstitutionID, false)
			},
			func(ctx context.Context) error {
				return c.store.SetMembershipActive(ctx, other.UserID, other.InstitutionID, true)
			})
	}

	// The membership row is the authorization gate every downstream read
	// depends on; its failure aborts the whole operation.
	run.critical("upsert_membership", func(ctx context.Context) error {
		return c.store.UpsertMembership(ctx, model.Membership{
			UserID:        profile.UserID,
			InstitutionID: inst.ID,
			Role:          req.Role,
			IsActive:      true,
			JoinedAt:      time.Now().UTC(),
		})
	})

	run.bestEffort("upsert_role_record", func(ctx context.Context) error {
		return c.upsertRoleRecord(ctx, profile.UserID, email, inst.ID, req)
	}, nil)

	run.bestEffort("mirror_profile", func(ctx context.Context) error {
		institutionID := inst.ID
		name := req.Name
		if name == "" {
			name = profile.Name
		}
		return c.store.UpsertUserProfile(ctx, model.UserProfile{
			UserID:        profile.UserID,
			Name:          name,
			Email:         email,
			UserType:      req.Role,
			InstitutionID: &institutionID,
		})
	}, nil)

	if err := run.execute(ctx, c.logger); err != nil {
		return nil, apperr.New(apperr.CollaboratorFailure, "membership_write_failed")
	}

	return &MoveResult{
		UserID:        profile.UserID,
		InstitutionID: inst.ID,
		Role:          req.Role,
		Provisioned:   provisioned,
	}, nil
}

func (c *Coordinator) upsertRoleRecord(ctx context.Context, userID, email, institutionID string, req MoveRequest) error {
	if req.Role == model.RoleTeacher {
		record, err := c.store.GetTeacherRecord(ctx, userID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		name := req.Name
		if name == "" {
			name = record.Name
		}
		return c.store.UpsertTeacher(ctx, model.Teacher{
			ID:            record.ID,
			UserID:        userID,
			Name:          name,
			Email:         email,
			InstitutionID: &institutionID,
			Branch:        req.Branch,
		})
	}

	record, err := c.store.GetStudentRecord(ctx, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	name := req.Name
	if name == "" {
		name = record.Name
	}
	return c.store.UpsertStudent(ctx, model.Student{
		ID:            record.ID,
		UserID:        userID,
		Name:          name,
		Email:         email,
		InstitutionID: &institutionID,
		Grade:         req.Grade,
		ParentName:    req.ParentName,
		ParentPhone:   req.ParentPhone,
	})
}

func (c *Coordinator) institutionNames(ctx context.Context, memberships []model.Membership) string {
	names := make([]string, 0, len(memberships))
	for _, m := range memberships {
		inst, err := c.store.GetInstitution(ctx, m.InstitutionID)
		if err != nil {
			names = append(names, m.InstitutionID)
			continue
		}
		names = append(names, inst.Name)
	}
	return strings.Join(names, ", ")
}

// Remove detaches a user from one institution, or from all of them when
// institutionID is empty.
func (c *Coordinator) Remove(ctx context.Context, principal *auth.Principal, userID, institutionID string) error {
	if institutionID == "" {
		if err := auth.RequireManagePlatform(principal); err != nil {
			return err
		}
	} else if err := auth.RequireManageInstitution(principal, institutionID); err != nil {
		return err
	}

	profile, err := c.store.GetUserProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.NotFound, "user_not_found")
		}
		return apperr.New(apperr.CollaboratorFailure, "user_lookup_failed")
	}
	if institutionID != "" {
		if _, err := c.store.GetMembership(ctx, userID, institutionID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.New(apperr.NotFound, "membership_not_found")
			}
			return apperr.New(apperr.CollaboratorFailure, "membership_lookup_failed")
		}
	}

	switch profile.UserType {
	case model.RoleTeacher:
		record, err := c.store.GetTeacherRecord(ctx, userID)
		if err == nil {
			if err := c.store.DeleteTeacherLinks(ctx, record.ID); err != nil {
				return apperr.New(apperr.CollaboratorFailure, "link_cleanup_failed")
			}
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.CollaboratorFailure, "user_lookup_failed")
		}
	case model.RoleStudent:
		record, err := c.store.GetStudentRecord(ctx, userID)
		if err == nil {
			if err := c.store.DeleteStudentLinks(ctx, record.ID); err != nil {
				return apperr.New(apperr.CollaboratorFailure, "link_cleanup_failed")
			}
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.CollaboratorFailure, "user_lookup_failed")
		}
	}

	if err := c.store.ClearRoleInstitution(ctx, userID); err != nil {
		c.logger.Warn("role record mirror clear failed, continuing",
			zap.String("user_id", userID), zap.Error(err))
	}
	if err := c.store.SetProfileInstitution(ctx, userID, nil); err != nil {
		c.logger.Warn("profile mirror clear failed, continuing",
			zap.String("user_id", userID), zap.Error(err))
	}

	if institutionID != "" {
		if err := c.store.DeleteMembership(ctx, userID, institutionID); err != nil {
			return apperr.New(apperr.CollaboratorFailure, "membership_delete_failed")
		}
		return nil
	}
	if err := c.store.DeleteMembershipsByUser(ctx, userID); err != nil {
		return apperr.New(apperr.CollaboratorFailure, "membership_delete_failed")
	}
	return nil
}
