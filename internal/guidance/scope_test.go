package guidance

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/apperr"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/auth"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/model"
)

type fakeGuidanceStore struct {
	institutions map[string]model.Institution
	teachers     map[string]model.Teacher
	students     map[string]model.Student
	plans        map[string]model.Plan
	logs         []model.StudyLog
	messages     []model.Message
}

func newFakeGuidanceStore() *fakeGuidanceStore {
	return &fakeGuidanceStore{
		institutions: map[string]model.Institution{},
		teachers:     map[string]model.Teacher{},
		students:     map[string]model.Student{},
		plans:        map[string]model.Plan{},
	}
}

func (f *fakeGuidanceStore) GetInstitution(_ context.Context, id string) (model.Institution, error) {
	inst, ok := f.institutions[id]
	if !ok {
		return model.Institution{}, pgx.ErrNoRows
	}
	return inst, nil
}

func (f *fakeGuidanceStore) GetTeacherByUserID(_ context.Context, institutionID, userID string) (model.Teacher, error) {
	for _, teacher := range f.teachers {
		if teacher.UserID == userID && teacher.InstitutionID != nil && *teacher.InstitutionID == institutionID {
			return teacher, nil
		}
	}
	return model.Teacher{}, pgx.ErrNoRows
}

func (f *fakeGuidanceStore) GetStudentByID(_ context.Context, institutionID, id string) (model.Student, error) {
	student, ok := f.students[id]
	if !ok || student.InstitutionID == nil || *student.InstitutionID != institutionID {
		return model.Student{}, pgx.ErrNoRows
	}
	return student, nil
}

func (f *fakeGuidanceStore) GetStudentByUserID(_ context.Context, institutionID, userID string) (model.Student, error) {
	for _, student := range f.students {
		if student.UserID == userID && student.InstitutionID != nil && *student.InstitutionID == institutionID {
			return student, nil
		}
	}
	return model.Student{}, pgx.ErrNoRows
}

func (f *fakeGuidanceStore) GetStudentByEmail(_ context.Context, institutionID, email string) (model.Student, error) {
	for _, student := range f.students {
		if student.Email == email && student.InstitutionID != nil && *student.InstitutionID == institutionID {
			return student, nil
		}
	}
	return model.Student{}, pgx.ErrNoRows
}

func (f *fakeGuidanceStore) ListStudentsByInstitution(_ context.Context, institutionID string) ([]model.Student, error) {
	var out []model.Student
	for _, student := range f.students {
		if student.InstitutionID != nil && *student.InstitutionID == institutionID {
			out = append(out, student)
		}
	}
	return out, nil
}

func (f *fakeGuidanceStore) CreatePlan(_ context.Context, plan model.Plan) error {
	f.plans[plan.ID] = plan
	return nil
}

func (f *fakeGuidanceStore) UpdatePlanOwned(_ context.Context, plan model.Plan) (int64, error) {
	existing, ok := f.plans[plan.ID]
	if !ok || existing.InstitutionID != plan.InstitutionID || existing.TeacherID != plan.TeacherID {
		return 0, nil
	}
	existing.Title = plan.Title
	existing.Subject = plan.Subject
	existing.StartsAt = plan.StartsAt
	existing.EndsAt = plan.EndsAt
	f.plans[plan.ID] = existing
	return 1, nil
}

func (f *fakeGuidanceStore) DeletePlanOwned(_ context.Context, planID, institutionID, teacherID string) (int64, error) {
	existing, ok := f.plans[planID]
	if !ok || existing.InstitutionID != institutionID || existing.TeacherID != teacherID {
		return 0, nil
	}
	delete(f.plans, planID)
	return 1, nil
}

func (f *fakeGuidanceStore) ListStudyLogs(_ context.Context, institutionID, studentID string) ([]model.StudyLog, error) {
	var out []model.StudyLog
	for _, entry := range f.logs {
		if entry.InstitutionID == institutionID && entry.StudentID == studentID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeGuidanceStore) CreateMessage(_ context.Context, msg model.Message) error {
	f.messages = append(f.messages, msg)
	return nil
}

func guidanceFixture() (*fakeGuidanceStore, *Scope, *auth.Principal) {
	store := newFakeGuidanceStore()
	instID := "inst-a"
	guideID := "teacher-1"
	store.institutions[instID] = model.Institution{ID: instID, Name: "Institution A", IsActive: true, GuidanceTeacherID: &guideID}
	store.teachers[guideID] = model.Teacher{ID: guideID, UserID: "guide-user", InstitutionID: &instID}
	store.teachers["teacher-2"] = model.Teacher{ID: "teacher-2", UserID: "plain-user", InstitutionID: &instID}
	store.students["student-1"] = model.Student{ID: "student-1", UserID: "kid-user", Email: "kid@example.com", InstitutionID: &instID}

	scope := NewScope(store)
	guide := auth.NewPrincipal(auth.KindTeacher, "guide-user", instID)
	return store, scope, guide
}

func TestOnlyGuidanceTeacherIsAuthorized(t *testing.T) {
	_, scope, guide := guidanceFixture()

	if _, err := scope.ListStudents(context.Background(), guide, "inst-a"); err != nil {
		t.Fatalf("guidance teacher should be authorized: %v", err)
	}

	plain := auth.NewPrincipal(auth.KindTeacher, "plain-user", "inst-a")
	_, err := scope.ListStudents(context.Background(), plain, "inst-a")
	if apperr.CodeOf(err) != "not_guidance_teacher" {
		t.Fatalf("expected not_guidance_teacher, got %v", err)
	}

	student := auth.NewPrincipal(auth.KindStudent, "kid-user", "inst-a")
	_, err = scope.ListStudents(context.Background(), student, "inst-a")
	if apperr.CodeOf(err) != "teacher_only" {
		t.Fatalf("expected teacher_only, got %v", err)
	}
}

func TestInactiveInstitutionBlocksGuidance(t *testing.T) {
	store, scope, guide := guidanceFixture()
	inst := store.institutions["inst-a"]
	inst.IsActive = false
	store.institutions["inst-a"] = inst

	_, err := scope.ListStudents(context.Background(), guide, "inst-a")
	if apperr.CodeOf(err) != "institution_inactive" {
		t.Fatalf("expected institution_inactive, got %v", err)
	}
}

func TestStudentKeyVariants(t *testing.T) {
	_, scope, guide := guidanceFixture()

	for _, key := range []StudentKey{
		ByID("student-1"),
		ByUserID("kid-user"),
		ByEmail("KID@Example.com"),
	} {
		student, err := scope.GetStudent(context.Background(), guide, "inst-a", key)
		if err != nil {
			t.Fatalf("lookup failed for %+v: %v", key, err)
		}
		if student.ID != "student-1" {
			t.Fatalf("expected student-1, got %+v", student)
		}
	}

	_, err := scope.GetStudent(context.Background(), guide, "inst-a", ByID("student-elsewhere"))
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCrossTenantStudentReadsAsNotFound(t *testing.T) {
	store, scope, guide := guidanceFixture()
	otherInst := "inst-b"
	store.students["student-2"] = model.Student{ID: "student-2", UserID: "other-kid", InstitutionID: &otherInst}

	_, err := scope.GetStudent(context.Background(), guide, "inst-a", ByID("student-2"))
	if apperr.KindOf(err) != apperr.NotFound || apperr.CodeOf(err) != "student_not_found" {
		t.Fatalf("expected student_not_found, got %v", err)
	}
}

func TestCreatePlanStampsOwner(t *testing.T) {
	store, scope, guide := guidanceFixture()

	plan, err := scope.CreatePlan(context.Background(), guide, "inst-a", PlanInput{
		Student:  ByID("student-1"),
		Title:    "Math review",
		Subject:  "math",
		StartsAt: time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.TeacherID != "teacher-1" || plan.StudentID != "student-1" {
		t.Fatalf("plan should carry owner and student, got %+v", plan)
	}
	if _, ok := store.plans[plan.ID]; !ok {
		t.Fatalf("plan should be stored")
	}
}

func TestPlanWritesAreOwnerFiltered(t *testing.T) {
	store, scope, guide := guidanceFixture()
	store.plans["plan-1"] = model.Plan{ID: "plan-1", InstitutionID: "inst-a", StudentID: "student-1", TeacherID: "someone-else"}

	err := scope.UpdatePlan(context.Background(), guide, "inst-a", "plan-1", PlanInput{
		Title:    "Hijack",
		StartsAt: time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	})
	if apperr.CodeOf(err) != "not_plan_owner" {
		t.Fatalf("expected not_plan_owner, got %v", err)
	}
	if store.plans["plan-1"].Title == "Hijack" {
		t.Fatalf("foreign plan must not be modified")
	}

	err = scope.DeletePlan(context.Background(), guide, "inst-a", "plan-1")
	if apperr.CodeOf(err) != "not_plan_owner" {
		t.Fatalf("expected not_plan_owner on delete, got %v", err)
	}
}

func TestSendMessageToScopedStudent(t *testing.T) {
	store, scope, guide := guidanceFixture()

	msg, err := scope.SendMessage(context.Background(), guide, "inst-a", ByEmail("kid@example.com"), "see you at 9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.SenderTeacherID != "teacher-1" || msg.RecipientStudentID != "student-1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if len(store.messages) != 1 {
		t.Fatalf("expected one stored message")
	}
}

func TestListStudyLogsScopes(t *testing.T) {
	store, scope, guide := guidanceFixture()
	store.logs = []model.StudyLog{
		{ID: "log-1", InstitutionID: "inst-a", StudentID: "student-1", Subject: "math", Minutes: 45},
		{ID: "log-2", InstitutionID: "inst-b", StudentID: "student-1", Subject: "math", Minutes: 30},
	}

	logs, err := scope.ListStudyLogs(context.Background(), guide, "inst-a", ByID("student-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 1 || logs[0].ID != "log-1" {
		t.Fatalf("expected only inst-a logs, got %+v", logs)
	}
}
