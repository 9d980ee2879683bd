package repository

import (
	"context"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/model"
)

func (s *Store) GetMembership(ctx context.Context, userID, institutionID string) (model.Membership, error) {
	var m model.Membership
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, institution_id, role, is_active, joined_at
		FROM institution_memberships
		WHERE user_id = $1 AND institution_id = $2
	`, userID, institutionID)
	err := row.Scan(&m.UserID, &m.InstitutionID, &m.Role, &m.IsActive, &m.JoinedAt)
	return m, err
}

func (s *Store) ListActiveMemberships(ctx context.Context, userID string) ([]model.Membership, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, institution_id, role, is_active, joined_at
		FROM institution_memberships
		WHERE user_id = $1 AND is_active = true
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []model.Membership
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(&m.UserID, &m.InstitutionID, &m.Role, &m.IsActive, &m.JoinedAt); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (s *Store) SetMembershipActive(ctx context.Context, userID, institutionID string, active bool) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE institution_memberships
		SET is_active = $1
		WHERE user_id = $2 AND institution_id = $3
	`, active, userID, institutionID)
	return err
}

// UpsertMembership is the idempotence anchor: the (user_id, institution_id)
// key reactivates an existing row instead of duplicating it.
func (s *Store) UpsertMembership(ctx context.Context, m model.Membership) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO institution_memberships (user_id, institution_id, role, is_active, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, institution_id)
		DO UPDATE SET role = EXCLUDED.role, is_active = EXCLUDED.is_active
	`, m.UserID, m.InstitutionID, m.Role, m.IsActive, m.JoinedAt)
	return err
}

func (s *Store) DeleteMembership(ctx context.Context, userID, institutionID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM institution_memberships
		WHERE user_id = $1 AND institution_id = $2
	`, userID, institutionID)
	return err
}

func (s *Store) DeleteMembershipsByUser(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM institution_memberships WHERE user_id = $1`, userID)
	return err
}

func (s *Store) CascadeMembershipActive(ctx context.Context, institutionID string, active bool) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE institution_memberships
		SET is_active = $1
		WHERE institution_id = $2
	`, active, institutionID)
	return err
}

// CountActiveStudents counts through the membership table, the source of
// truth, rather than the role-record mirror.
func (s *Store) CountActiveStudents(ctx context.Context, institutionID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM institution_memberships
		WHERE institution_id = $1 AND role = 'student' AND is_active = true
	`, institutionID).Scan(&count)
	return count, err
}

func (s *Store) CountActiveMembers(ctx context.Context, institutionID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM institution_memberships
		WHERE institution_id = $1 AND is_active = true
	`, institutionID).Scan(&count)
	return count, err
}
