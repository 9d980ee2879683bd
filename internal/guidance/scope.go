package guidance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/apperr"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/auth"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/model"
)

// StudentKey is a typed identifier: the caller states explicitly whether
// it holds a student record id, the owning user's id, or an email. Every
// lookup is scoped to the target institution; a match outside it reads as
// not found, never as a cross-tenant hit.
type StudentKey struct {
	kind  keyKind
	value string
}

type keyKind int

const (
	keyByID keyKind = iota + 1
	keyByUserID
	keyByEmail
)

func ByID(id string) StudentKey       { return StudentKey{kind: keyByID, value: id} }
func ByUserID(id string) StudentKey   { return StudentKey{kind: keyByUserID, value: id} }
func ByEmail(email string) StudentKey { return StudentKey{kind: keyByEmail, value: email} }

func (k StudentKey) Valid() bool {
	return k.kind != 0 && k.value != ""
}

type Store interface {
	GetInstitution(ctx context.Context, id string) (model.Institution, error)
	GetTeacherByUserID(ctx context.Context, institutionID, userID string) (model.Teacher, error)
	GetStudentByID(ctx context.Context, institutionID, id string) (model.Student, error)
	GetStudentByUserID(ctx context.Context, institutionID, userID string) (model.Student, error)
	GetStudentByEmail(ctx context.Context, institutionID, email string) (model.Student, error)
	ListStudentsByInstitution(ctx context.Context, institutionID string) ([]model.Student, error)
	CreatePlan(ctx context.Context, plan model.Plan) error
	UpdatePlanOwned(ctx context.Context, plan model.Plan) (int64, error)
	DeletePlanOwned(ctx context.Context, planID, institutionID, teacherID string) (int64, error)
	ListStudyLogs(ctx context.Context, institutionID, studentID string) ([]model.StudyLog, error)
	CreateMessage(ctx context.Context, msg model.Message) error
}

type Scope struct {
	store Store
}

func NewScope(store Store) *Scope {
	return &Scope{store: store}
}

// authorize re-verifies guidance authority on every invocation; nothing is
// cached across calls.
func (s *Scope) authorize(ctx context.Context, principal *auth.Principal, institutionID string) (model.Teacher, error) {
	if principal == nil || principal.Kind != auth.KindTeacher {
		return model.Teacher{}, apperr.New(apperr.Forbidden, "teacher_only")
	}

	inst, err := s.store.GetInstitution(ctx, institutionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Teacher{}, apperr.New(apperr.NotFound, "institution_not_found")
		}
		return model.Teacher{}, apperr.New(apperr.CollaboratorFailure, "institution_lookup_failed")
	}

	teacher, err := s.store.GetTeacherByUserID(ctx, institutionID, principal.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Teacher{}, apperr.New(apperr.Forbidden, "not_guidance_teacher")
		}
		return model.Teacher{}, apperr.New(apperr.CollaboratorFailure, "teacher_lookup_failed")
	}
	if inst.GuidanceTeacherID == nil || *inst.GuidanceTeacherID != teacher.ID {
		return model.Teacher{}, apperr.New(apperr.Forbidden, "not_guidance_teacher")
	}
	if !inst.IsActive {
		return model.Teacher{}, apperr.New(apperr.Forbidden, "institution_inactive")
	}
	return teacher, nil
}

func (s *Scope) resolveStudent(ctx context.Context, institutionID string, key StudentKey) (model.Student, error) {
	var (
		student model.Student
		err     error
	)
	switch key.kind {
	case keyByID:
		student, err = s.store.GetStudentByID(ctx, institutionID, key.value)
	case keyByUserID:
		student, err = s.store.GetStudentByUserID(ctx, institutionID, key.value)
	case keyByEmail:
		student, err = s.store.GetStudentByEmail(ctx, institutionID, strings.TrimSpace(strings.ToLower(key.value)))
	default:
		return model.Student{}, apperr.New(apperr.NotFound, "student_not_found")
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Student{}, apperr.New(apperr.NotFound, "student_not_found")
		}
		return model.Student{}, apperr.New(apperr.CollaboratorFailure, "student_lookup_failed")
	}
	return student, nil
}

func (s *Scope) ListStudents(ctx context.Context, principal *auth.Principal, institutionID string) ([]model.Student, error) {
	if _, err := s.authorize(ctx, principal, institutionID); err != nil {
		return nil, err
	}
	students, err := s.store.ListStudentsByInstitution(ctx, institutionID)
	if err != nil {
		return nil, apperr.New(apperr.CollaboratorFailure, "student_list_failed")
	}
	return students, nil
}

func (s *Scope) GetStudent(ctx context.Context, principal *auth.Principal, institutionID string, key StudentKey) (model.Student, error) {
	if _, err := s.authorize(ctx, principal, institutionID); err != nil {
		return model.Student{}, err
	}
	return s.resolveStudent(ctx, institutionID, key)
}

type PlanInput struct {
	Student  StudentKey
	Title    string
	Subject  string
	StartsAt time.Time
	EndsAt   time.Time
}

func (s *Scope) CreatePlan(ctx context.Context, principal *auth.Principal, institutionID string, input PlanInput) (*model.Plan, error) {
	teacher, err := s.authorize(ctx, principal, institutionID)
	if err != nil {
		return nil, err
	}
	student, err := s.resolveStudent(ctx, institutionID, input.Student)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	plan := model.Plan{
		ID:            uuid.NewString(),
		InstitutionID: institutionID,
		StudentID:     student.ID,
		TeacherID:     teacher.ID,
		Title:         input.Title,
		Subject:       input.Subject,
		StartsAt:      input.StartsAt,
		EndsAt:        input.EndsAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreatePlan(ctx, plan); err != nil {
		return nil, apperr.New(apperr.CollaboratorFailure, "plan_create_failed")
	}
	return &plan, nil
}

// UpdatePlan enforces ownership inside the write itself: the update is
// filtered on the acting teacher, so a second guidance teacher in the same
// institution cannot alter records that are not theirs.
func (s *Scope) UpdatePlan(ctx context.Context, principal *auth.Principal, institutionID, planID string, input PlanInput) error {
	teacher, err := s.authorize(ctx, principal, institutionID)
	if err != nil {
		return err
	}
	rows, err := s.store.UpdatePlanOwned(ctx, model.Plan{
		ID:            planID,
		InstitutionID: institutionID,
		TeacherID:     teacher.ID,
		Title:         input.Title,
		Subject:       input.Subject,
		StartsAt:      input.StartsAt,
		EndsAt:        input.EndsAt,
		UpdatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return apperr.New(apperr.CollaboratorFailure, "plan_update_failed")
	}
	if rows == 0 {
		return apperr.New(apperr.Forbidden, "not_plan_owner")
	}
	return nil
}

func (s *Scope) DeletePlan(ctx context.Context, principal *auth.Principal, institutionID, planID string) error {
	teacher, err := s.authorize(ctx, principal, institutionID)
	if err != nil {
		return err
	}
	rows, err := s.store.DeletePlanOwned(ctx, planID, institutionID, teacher.ID)
	if err != nil {
		return apperr.New(apperr.CollaboratorFailure, "plan_delete_failed")
	}
	if rows == 0 {
		return apperr.New(apperr.Forbidden, "not_plan_owner")
	}
	return nil
}

func (s *Scope) ListStudyLogs(ctx context.Context, principal *auth.Principal, institutionID string, key StudentKey) ([]model.StudyLog, error) {
	if _, err := s.authorize(ctx, principal, institutionID); err != nil {
		return nil, err
	}
	student, err := s.resolveStudent(ctx, institutionID, key)
	if err != nil {
		return nil, err
	}
	logs, err := s.store.ListStudyLogs(ctx, institutionID, student.ID)
	if err != nil {
		return nil, apperr.New(apperr.CollaboratorFailure, "study_log_list_failed")
	}
	return logs, nil
}

func (s *Scope) SendMessage(ctx context.Context, principal *auth.Principal, institutionID string, key StudentKey, body string) (*model.Message, error) {
	teacher, err := s.authorize(ctx, principal, institutionID)
	if err != nil {
		return nil, err
	}
	student, err := s.resolveStudent(ctx, institutionID, key)
	if err != nil {
		return nil, err
	}

	msg := model.Message{
		ID:                 uuid.NewString(),
		InstitutionID:      institutionID,
		SenderTeacherID:    teacher.ID,
		RecipientStudentID: student.ID,
		Body:               body,
		SentAt:             time.Now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, apperr.New(apperr.CollaboratorFailure, "message_send_failed")
	}
	return &msg, nil
}
