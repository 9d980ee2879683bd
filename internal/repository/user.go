package repository

import (
	"context"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/model"
)

// Admin credentials

func (s *Store) CreateAdminCredential(ctx context.Context, cred model.AdminCredential) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO institution_admin_credentials (institution_id, admin_username, password_hash, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (institution_id, admin_username)
		DO UPDATE SET password_hash = EXCLUDED.password_hash, is_active = EXCLUDED.is_active
	`, cred.InstitutionID, cred.Username, cred.PasswordHash, cred.IsActive)
	return err
}

func (s *Store) GetActiveAdminCredential(ctx context.Context, institutionID, username string) (model.AdminCredential, error) {
	var cred model.AdminCredential
	row := s.pool.QueryRow(ctx, `
		SELECT institution_id, admin_username, password_hash, is_active
		FROM institution_admin_credentials
		WHERE institution_id = $1 AND admin_username = $2 AND is_active = true
	`, institutionID, username)
	err := row.Scan(&cred.InstitutionID, &cred.Username, &cred.PasswordHash, &cred.IsActive)
	return cred, err
}

func (s *Store) UpdateAdminPassword(ctx context.Context, institutionID, username, passwordHash string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE institution_admin_credentials
		SET password_hash = $1
		WHERE institution_id = $2 AND admin_username = $3 AND is_active = true
	`, passwordHash, institutionID, username)
	return err
}

// User profiles

func (s *Store) GetUserProfile(ctx context.Context, userID string) (model.UserProfile, error) {
	var profile model.UserProfile
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, name, email, user_type, institution_id
		FROM user_profiles
		WHERE user_id = $1
	`, userID)
	err := row.Scan(&profile.UserID, &profile.Name, &profile.Email, &profile.UserType, &profile.InstitutionID)
	return profile, err
}

func (s *Store) GetUserProfileByEmail(ctx context.Context, email string) (model.UserProfile, error) {
	var profile model.UserProfile
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, name, email, user_type, institution_id
		FROM user_profiles
		WHERE email = $1
	`, email)
	err := row.Scan(&profile.UserID, &profile.Name, &profile.Email, &profile.UserType, &profile.InstitutionID)
	return profile, err
}

func (s *Store) UpsertUserProfile(ctx context.Context, profile model.UserProfile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_profiles (user_id, name, email, user_type, institution_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id)
		DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email,
			user_type = EXCLUDED.user_type, institution_id = EXCLUDED.institution_id
	`, profile.UserID, profile.Name, profile.Email, profile.UserType, profile.InstitutionID)
	return err
}

// Role records, keyed by user, never duplicated per institution.

func (s *Store) UpsertTeacher(ctx context.Context, teacher model.Teacher) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO teachers (id, user_id, name, email, institution_id, branch)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id)
		DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email,
			institution_id = EXCLUDED.institution_id, branch = EXCLUDED.branch
	`, teacher.ID, teacher.UserID, teacher.Name, teacher.Email, teacher.InstitutionID, teacher.Branch)
	return err
}

func (s *Store) UpsertStudent(ctx context.Context, student model.Student) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO students (id, user_id, name, email, institution_id, grade, parent_name, parent_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id)
		DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email,
			institution_id = EXCLUDED.institution_id, grade = EXCLUDED.grade,
			parent_name = EXCLUDED.parent_name, parent_phone = EXCLUDED.parent_phone
	`, student.ID, student.UserID, student.Name, student.Email, student.InstitutionID,
		student.Grade, student.ParentName, student.ParentPhone)
	return err
}

func (s *Store) GetTeacherRecord(ctx context.Context, userID string) (model.Teacher, error) {
	var teacher model.Teacher
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, email, institution_id, branch
		FROM teachers
		WHERE user_id = $1
	`, userID)
	err := row.Scan(&teacher.ID, &teacher.UserID, &teacher.Name, &teacher.Email, &teacher.InstitutionID, &teacher.Branch)
	return teacher, err
}

func (s *Store) GetStudentRecord(ctx context.Context, userID string) (model.Student, error) {
	var student model.Student
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, email, institution_id, grade, parent_name, parent_phone
		FROM students
		WHERE user_id = $1
	`, userID)
	err := row.Scan(&student.ID, &student.UserID, &student.Name, &student.Email,
		&student.InstitutionID, &student.Grade, &student.ParentName, &student.ParentPhone)
	return student, err
}

// ClearRoleInstitution nulls the mirror on whichever role record the user
// owns; at most one of the two statements matches a row.
func (s *Store) ClearRoleInstitution(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `UPDATE teachers SET institution_id = NULL WHERE user_id = $1`, userID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `UPDATE students SET institution_id = NULL WHERE user_id = $1`, userID)
	return err
}

func (s *Store) SetProfileInstitution(ctx context.Context, userID string, institutionID *string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE user_profiles
		SET institution_id = $1
		WHERE user_id = $2
	`, institutionID, userID)
	return err
}

// Teacher/student link rows

func (s *Store) DeleteTeacherLinks(ctx context.Context, teacherID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM student_teachers WHERE teacher_id = $1`, teacherID)
	return err
}

func (s *Store) DeleteStudentLinks(ctx context.Context, studentID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM student_teachers WHERE student_id = $1`, studentID)
	return err
}
