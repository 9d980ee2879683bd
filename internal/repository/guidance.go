package repository

import (
	"context"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/model"
)

// Guidance reads join through institution_memberships so that a student is
// only visible inside the institution they actively belong to; mirrors on
// the role record are never trusted alone.

const studentColumns = `s.id, s.user_id, s.name, s.email, s.institution_id, s.grade, s.parent_name, s.parent_phone`

func (s *Store) GetStudentByID(ctx context.Context, institutionID, id string) (model.Student, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students s
		JOIN institution_memberships m ON m.user_id = s.user_id
			AND m.institution_id = $1 AND m.is_active = true
		WHERE s.id = $2
	`, institutionID, id)
	return scanStudent(row)
}

func (s *Store) GetStudentByUserID(ctx context.Context, institutionID, userID string) (model.Student, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students s
		JOIN institution_memberships m ON m.user_id = s.user_id
			AND m.institution_id = $1 AND m.is_active = true
		WHERE s.user_id = $2
	`, institutionID, userID)
	return scanStudent(row)
}

func (s *Store) GetStudentByEmail(ctx context.Context, institutionID, email string) (model.Student, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students s
		JOIN institution_memberships m ON m.user_id = s.user_id
			AND m.institution_id = $1 AND m.is_active = true
		WHERE s.email = $2
	`, institutionID, email)
	return scanStudent(row)
}

func (s *Store) ListStudentsByInstitution(ctx context.Context, institutionID string) ([]model.Student, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+studentColumns+`
		FROM students s
		JOIN institution_memberships m ON m.user_id = s.user_id
			AND m.institution_id = $1 AND m.is_active = true
		ORDER BY s.name
	`, institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var student model.Student
		if err := rows.Scan(&student.ID, &student.UserID, &student.Name, &student.Email,
			&student.InstitutionID, &student.Grade, &student.ParentName, &student.ParentPhone); err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, rows.Err()
}

func (s *Store) GetTeacherByUserID(ctx context.Context, institutionID, userID string) (model.Teacher, error) {
	var teacher model.Teacher
	row := s.pool.QueryRow(ctx, `
		SELECT t.id, t.user_id, t.name, t.email, t.institution_id, t.branch
		FROM teachers t
		JOIN institution_memberships m ON m.user_id = t.user_id
			AND m.institution_id = $1 AND m.is_active = true
		WHERE t.user_id = $2
	`, institutionID, userID)
	err := row.Scan(&teacher.ID, &teacher.UserID, &teacher.Name, &teacher.Email, &teacher.InstitutionID, &teacher.Branch)
	return teacher, err
}

// Plans

func (s *Store) CreatePlan(ctx context.Context, plan model.Plan) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO plans (id, institution_id, student_id, teacher_id, title, subject, starts_at, ends_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, plan.ID, plan.InstitutionID, plan.StudentID, plan.TeacherID, plan.Title, plan.Subject,
		plan.StartsAt, plan.EndsAt, plan.CreatedAt, plan.UpdatedAt)
	return err
}

// UpdatePlanOwned carries the owning-teacher filter in the write itself;
// zero rows affected means the plan is not the caller's to change.
func (s *Store) UpdatePlanOwned(ctx context.Context, plan model.Plan) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE plans
		SET title = $1, subject = $2, starts_at = $3, ends_at = $4, updated_at = $5
		WHERE id = $6 AND institution_id = $7 AND teacher_id = $8
	`, plan.Title, plan.Subject, plan.StartsAt, plan.EndsAt, plan.UpdatedAt,
		plan.ID, plan.InstitutionID, plan.TeacherID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeletePlanOwned(ctx context.Context, planID, institutionID, teacherID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM plans
		WHERE id = $1 AND institution_id = $2 AND teacher_id = $3
	`, planID, institutionID, teacherID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Study logs

func (s *Store) ListStudyLogs(ctx context.Context, institutionID, studentID string) ([]model.StudyLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, student_id, institution_id, subject, minutes, logged_on
		FROM study_logs
		WHERE institution_id = $1 AND student_id = $2
		ORDER BY logged_on DESC
	`, institutionID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.StudyLog
	for rows.Next() {
		var entry model.StudyLog
		if err := rows.Scan(&entry.ID, &entry.StudentID, &entry.InstitutionID,
			&entry.Subject, &entry.Minutes, &entry.LoggedOn); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// Messages

func (s *Store) CreateMessage(ctx context.Context, msg model.Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, institution_id, sender_teacher_id, recipient_student_id, body, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.InstitutionID, msg.SenderTeacherID, msg.RecipientStudentID, msg.Body, msg.SentAt)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row rowScanner) (model.Student, error) {
	var student model.Student
	err := row.Scan(&student.ID, &student.UserID, &student.Name, &student.Email,
		&student.InstitutionID, &student.Grade, &student.ParentName, &student.ParentPhone)
	return student, err
}
