package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/apperr"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/auth"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/crypto"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/lifecycle"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/model"
)

const contractDateLayout = "2006-01-02"

type institutionSummary struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	ContactEmail      string  `json:"contact_email"`
	MaxStudents       int     `json:"max_students"`
	ContractStartDate *string `json:"contract_start_date"`
	ContractEndDate   *string `json:"contract_end_date"`
	PaymentStatus     string  `json:"payment_status"`
	IsActive          bool    `json:"is_active"`
	IsPremium         bool    `json:"is_premium"`
	GuidanceTeacherID *string `json:"guidance_teacher_id,omitempty"`
	ActiveMembers     *int    `json:"active_members,omitempty"`
	ActiveStudents    *int    `json:"active_students,omitempty"`
}

func mapInstitution(inst model.Institution) institutionSummary {
	return institutionSummary{
		ID:                inst.ID,
		Name:              inst.Name,
		ContactEmail:      inst.ContactEmail,
		MaxStudents:       inst.MaxStudents,
		ContractStartDate: formatDate(inst.ContractStart),
		ContractEndDate:   formatDate(inst.ContractEnd),
		PaymentStatus:     inst.PaymentStatus,
		IsActive:          inst.IsActive,
		IsPremium:         inst.IsPremium,
		GuidanceTeacherID: inst.GuidanceTeacherID,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.UTC().Format(contractDateLayout)
	return &formatted
}

func parseDate(value string) (*time.Time, error) {
	parsed, err := time.Parse(contractDateLayout, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

type createInstitutionRequest struct {
	Name              string  `json:"name"`
	ContactEmail      string  `json:"contact_email"`
	MaxStudents       int     `json:"max_students"`
	ContractStartDate *string `json:"contract_start_date,omitempty"`
	ContractEndDate   *string `json:"contract_end_date,omitempty"`
	PaymentStatus     string  `json:"payment_status"`
	IsPremium         bool    `json:"is_premium"`
	AdminUsername     string  `json:"admin_username"`
	AdminPassword     string  `json:"admin_password"`
}

func (s *Server) handleCreateInstitution(w http.ResponseWriter, r *http.Request) {
	var req createInstitutionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request")
		return
	}

	principal, err := s.resolvePrincipal(r, tenantAuth{})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := auth.RequireManagePlatform(principal); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.ContactEmail = strings.TrimSpace(strings.ToLower(req.ContactEmail))
	req.AdminUsername = strings.TrimSpace(req.AdminUsername)
	if req.Name == "" || req.ContactEmail == "" || req.AdminUsername == "" || req.AdminPassword == "" {
		writeBadRequest(w, "missing_fields")
		return
	}
	if req.MaxStudents <= 0 {
		writeBadRequest(w, "invalid_max_students")
		return
	}

	var start, end *time.Time
	if req.ContractStartDate != nil && *req.ContractStartDate != "" {
		if start, err = parseDate(*req.ContractStartDate); err != nil {
			writeBadRequest(w, "invalid_contract_start_date")
			return
		}
	}
	if req.ContractEndDate != nil && *req.ContractEndDate != "" {
		if end, err = parseDate(*req.ContractEndDate); err != nil {
			writeBadRequest(w, "invalid_contract_end_date")
			return
		}
	}

	now := time.Now().UTC()
	status := lifecycle.ComputeStatus(start, end, lifecycle.Status{Active: true, Premium: req.IsPremium}, now)
	inst := model.Institution{
		ID:            uuid.NewString(),
		Name:          req.Name,
		ContactEmail:  req.ContactEmail,
		MaxStudents:   req.MaxStudents,
		ContractStart: start,
		ContractEnd:   end,
		PaymentStatus: req.PaymentStatus,
		IsActive:      status.Active,
		IsPremium:     status.Premium,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateInstitution(r.Context(), inst); err != nil {
		s.writeAppError(w, r, apperr.New(apperr.CollaboratorFailure, "institution_create_failed"))
		return
	}

	hash, err := crypto.HashPassword(req.AdminPassword)
	if err != nil {
		s.writeAppError(w, r, apperr.New(apperr.Unexpected, "password_hash_failed"))
		return
	}
	if err := s.store.CreateAdminCredential(r.Context(), model.AdminCredential{
		InstitutionID: inst.ID,
		Username:      req.AdminUsername,
		PasswordHash:  hash,
		IsActive:      true,
	}); err != nil {
		s.writeAppError(w, r, apperr.New(apperr.CollaboratorFailure, "credential_create_failed"))
		return
	}

	writeData(w, mapInstitution(inst))
}

type updateInstitutionRequest struct {
	InstitutionID     string  `json:"institution_id"`
	Name              *string `json:"name,omitempty"`
	ContactEmail      *string `json:"contact_email,omitempty"`
	MaxStudents       *int    `json:"max_students,omitempty"`
	ContractStartDate *string `json:"contract_start_date,omitempty"`
	ContractEndDate   *string `json:"contract_end_date,omitempty"`
	PaymentStatus     *string `json:"payment_status,omitempty"`
	GuidanceTeacherID *string `json:"guidance_teacher_id,omitempty"`
	AdminUsername     *string `json:"admin_username,omitempty"`
	AdminPassword     *string `json:"admin_password,omitempty"`
}

func (s *Server) handleUpdateInstitution(w http.ResponseWriter, r *http.Request) {
	var req updateInstitutionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request")
		return
	}
	if req.InstitutionID == "" {
		writeBadRequest(w, "missing_institution_id")
		return
	}

	principal, err := s.resolvePrincipal(r, tenantAuth{})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := auth.RequireManagePlatform(principal); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	inst, err := s.store.GetInstitution(r.Context(), req.InstitutionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.writeAppError(w, r, apperr.New(apperr.NotFound, "institution_not_found"))
			return
		}
		s.writeAppError(w, r, apperr.New(apperr.CollaboratorFailure, "institution_lookup_failed"))
		return
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		inst.Name = strings.TrimSpace(*req.Name)
	}
	if req.ContactEmail != nil && strings.TrimSpace(*req.ContactEmail) != "" {
		inst.ContactEmail = strings.TrimSpace(strings.ToLower(*req.ContactEmail))
	}
	if req.MaxStudents != nil && *req.MaxStudents > 0 {
		inst.MaxStudents = *req.MaxStudents
	}
	if req.GuidanceTeacherID != nil {
		if *req.GuidanceTeacherID == "" {
			inst.GuidanceTeacherID = nil
		} else {
			inst.GuidanceTeacherID = req.GuidanceTeacherID
		}
	}

	contractTouched := false
	if req.ContractStartDate != nil {
		contractTouched = true
		if *req.ContractStartDate == "" {
			inst.ContractStart = nil
		} else {
			start, err := parseDate(*req.ContractStartDate)
			if err != nil {
				writeBadRequest(w, "invalid_contract_start_date")
				return
			}
			inst.ContractStart = start
		}
	}
	if req.ContractEndDate != nil {
		contractTouched = true
		if *req.ContractEndDate == "" {
			inst.ContractEnd = nil
		} else {
			end, err := parseDate(*req.ContractEndDate)
			if err != nil {
				writeBadRequest(w, "invalid_contract_end_date")
				return
			}
			inst.ContractEnd = end
		}
	}
	if req.PaymentStatus != nil {
		contractTouched = true
		inst.PaymentStatus = *req.PaymentStatus
	}

	inst.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateInstitution(r.Context(), inst); err != nil {
		s.writeAppError(w, r, apperr.New(apperr.CollaboratorFailure, "institution_update_failed"))
		return
	}

	// Any contract-field update recomputes entitlement and wins over a
	// prior manual toggle.
	if contractTouched {
		if err := s.lifecycle.ApplyContractUpdate(r.Context(), &inst, time.Now().UTC()); err != nil {
			s.writeAppError(w, r, apperr.New(apperr.CollaboratorFailure, "status_update_failed"))
			return
		}
	}

	if req.AdminUsername != nil && req.AdminPassword != nil &&
		strings.TrimSpace(*req.AdminUsername) != "" && *req.AdminPassword != "" {
		hash, err := crypto.HashPassword(*req.AdminPassword)
		if err != nil {
			s.writeAppError(w, r, apperr.New(apperr.Unexpected, "password_hash_failed"))
			return
		}
		if err := s.store.CreateAdminCredential(r.Context(), model.AdminCredential{
			InstitutionID: inst.ID,
			Username:      strings.TrimSpace(*req.AdminUsername),
			PasswordHash:  hash,
			IsActive:      true,
		}); err != nil {
			s.writeAppError(w, r, apperr.New(apperr.CollaboratorFailure, "credential_update_failed"))
			return
		}
	}

	writeData(w, mapInstitution(inst))
}

type toggleInstitutionRequest struct {
	InstitutionID string `json:"institution_id"`
	IsActive      bool   `json:"is_active"`
}

func (s *Server) handleToggleInstitution(w http.ResponseWriter, r *http.Request) {
	var req toggleInstitutionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request")
		return
	}
	if req.InstitutionID == "" {
		writeBadRequest(w, "missing_institution_id")
		return
	}

	principal, err := s.resolvePrincipal(r, tenantAuth{})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := auth.RequireManagePlatform(principal); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	inst, err := s.store.GetInstitution(r.Context(), req.InstitutionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.writeAppError(w, r, apperr.New(apperr.NotFound, "institution_not_found"))
			return
		}
		s.writeAppError(w, r, apperr.New(apperr.CollaboratorFailure, "institution_lookup_failed"))
		return
	}

	if err := s.lifecycle.SetActiveManual(r.Context(), &inst, req.IsActive); err != nil {
		s.writeAppError(w, r, apperr.New(apperr.CollaboratorFailure, "status_update_failed"))
		return
	}

	writeData(w, mapInstitution(inst))
}

func (s *Server) handleListInstitutions(w http.ResponseWriter, r *http.Request) {
	principal, err := s.resolvePrincipal(r, tenantAuth{})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if err := auth.RequireManagePlatform(principal); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	institutions, err := s.store.ListInstitutions(r.Context())
	if err != nil {
		s.writeAppError(w, r, apperr.New(apperr.CollaboratorFailure, "institution_list_failed"))
		return
	}

	// Per-institution counts fan out concurrently; one failed branch fails
	// the whole response, there is no partial-result mode.
	summaries := make([]institutionSummary, len(institutions))
	group, ctx := errgroup.WithContext(r.Context())
	for i, inst := range institutions {
		i, inst := i, inst
		group.Go(func() error {
			members, err := s.store.CountActiveMembers(ctx, inst.ID)
			if err != nil {
				return err
			}
			students, err := s.store.CountActiveStudents(ctx, inst.ID)
			if err != nil {
				return err
			}
			summary := mapInstitution(inst)
			summary.ActiveMembers = &members
			summary.ActiveStudents = &students
			summaries[i] = summary
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		s.writeAppError(w, r, apperr.New(apperr.CollaboratorFailure, "institution_stats_failed"))
		return
	}

	writeData(w, summaries)
}

type changePasswordRequest struct {
	tenantAuth
	NewPassword string `json:"new_password"`
}

// Self-service password change for an institution's own admin; the main
// administrator resets credentials through the institution update instead.
func (s *Server) handleChangeAdminPassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request")
		return
	}
	if req.credential() == nil {
		writeBadRequest(w, "missing_credentials")
		return
	}
	if req.NewPassword == "" {
		writeBadRequest(w, "missing_new_password")
		return
	}

	principal, err := s.resolvePrincipal(r, req.tenantAuth)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if principal.Kind != auth.KindInstitutionAdmin || principal.InstitutionID != req.InstitutionID {
		s.writeAppError(w, r, apperr.New(apperr.Forbidden, "wrong_tenant"))
		return
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		s.writeAppError(w, r, apperr.New(apperr.Unexpected, "password_hash_failed"))
		return
	}
	if err := s.store.UpdateAdminPassword(r.Context(), req.InstitutionID, req.AdminUsername, hash); err != nil {
		s.writeAppError(w, r, apperr.New(apperr.CollaboratorFailure, "password_update_failed"))
		return
	}

	writeData(w, map[string]string{"status": "password_changed"})
}
