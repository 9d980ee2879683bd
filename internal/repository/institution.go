package repository

import (
	"context"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/model"
)

func (s *Store) CreateInstitution(ctx context.Context, inst model.Institution) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO institutions (id, name, contact_email, max_students, contract_start_date, contract_end_date,
			payment_status, is_active, is_premium, guidance_teacher_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, inst.ID, inst.Name, inst.ContactEmail, inst.MaxStudents, inst.ContractStart, inst.ContractEnd,
		inst.PaymentStatus, inst.IsActive, inst.IsPremium, inst.GuidanceTeacherID, inst.CreatedAt, inst.UpdatedAt)
	return err
}

func (s *Store) GetInstitution(ctx context.Context, id string) (model.Institution, error) {
	var inst model.Institution
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, contact_email, max_students, contract_start_date, contract_end_date,
			payment_status, is_active, is_premium, guidance_teacher_id, created_at, updated_at
		FROM institutions
		WHERE id = $1
	`, id)
	err := row.Scan(
		&inst.ID,
		&inst.Name,
		&inst.ContactEmail,
		&inst.MaxStudents,
		&inst.ContractStart,
		&inst.ContractEnd,
		&inst.PaymentStatus,
		&inst.IsActive,
		&inst.IsPremium,
		&inst.GuidanceTeacherID,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	return inst, err
}

func (s *Store) ListInstitutions(ctx context.Context) ([]model.Institution, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, contact_email, max_students, contract_start_date, contract_end_date,
			payment_status, is_active, is_premium, guidance_teacher_id, created_at, updated_at
		FROM institutions
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var institutions []model.Institution
	for rows.Next() {
		var inst model.Institution
		if err := rows.Scan(
			&inst.ID,
			&inst.Name,
			&inst.ContactEmail,
			&inst.MaxStudents,
			&inst.ContractStart,
			&inst.ContractEnd,
			&inst.PaymentStatus,
			&inst.IsActive,
			&inst.IsPremium,
			&inst.GuidanceTeacherID,
			&inst.CreatedAt,
			&inst.UpdatedAt,
		); err != nil {
			return nil, err
		}
		institutions = append(institutions, inst)
	}
	return institutions, rows.Err()
}

// UpdateInstitution writes the contract and contact fields; the derived
// is_active/is_premium pair is owned by UpdateInstitutionStatus.
func (s *Store) UpdateInstitution(ctx context.Context, inst model.Institution) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE institutions
		SET name = $1, contact_email = $2, max_students = $3, contract_start_date = $4,
			contract_end_date = $5, payment_status = $6, guidance_teacher_id = $7, updated_at = $8
		WHERE id = $9
	`, inst.Name, inst.ContactEmail, inst.MaxStudents, inst.ContractStart,
		inst.ContractEnd, inst.PaymentStatus, inst.GuidanceTeacherID, inst.UpdatedAt, inst.ID)
	return err
}

func (s *Store) UpdateInstitutionStatus(ctx context.Context, id string, active, premium bool) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE institutions
		SET is_active = $1, is_premium = $2, updated_at = now()
		WHERE id = $3
	`, active, premium, id)
	return err
}
