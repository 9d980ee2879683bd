package http

import (
	"net/http"
	"strings"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/membership"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/model"
)

type addMemberRequest struct {
	tenantAuth
	Email               string `json:"email"`
	Name                string `json:"name"`
	Role                string `json:"role"`
	TargetInstitutionID string `json:"target_institution_id"`
	DeactivateOthers    bool   `json:"deactivate_others"`
	Branch              string `json:"branch,omitempty"`
	Grade               string `json:"grade,omitempty"`
	ParentName          string `json:"parent_name,omitempty"`
	ParentPhone         string `json:"parent_phone,omitempty"`
}

type memberResponse struct {
	UserID        string `json:"user_id"`
	InstitutionID string `json:"institution_id"`
	Role          string `json:"role"`
	Provisioned   bool   `json:"provisioned"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request")
		return
	}

	principal, err := s.resolvePrincipal(r, req.tenantAuth)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		writeBadRequest(w, "missing_email")
		return
	}
	if req.Role != model.RoleTeacher && req.Role != model.RoleStudent {
		writeBadRequest(w, "invalid_role")
		return
	}
	target := req.TargetInstitutionID
	if target == "" {
		target = principal.InstitutionID
	}
	if target == "" {
		writeBadRequest(w, "missing_institution_id")
		return
	}

	result, err := s.members.MoveOrCreate(r.Context(), principal, membership.MoveRequest{
		Email:            req.Email,
		Name:             strings.TrimSpace(req.Name),
		Role:             req.Role,
		InstitutionID:    target,
		DeactivateOthers: req.DeactivateOthers,
		Branch:           req.Branch,
		Grade:            req.Grade,
		ParentName:       req.ParentName,
		ParentPhone:      req.ParentPhone,
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	writeData(w, memberResponse{
		UserID:        result.UserID,
		InstitutionID: result.InstitutionID,
		Role:          result.Role,
		Provisioned:   result.Provisioned,
	})
}

type removeMemberRequest struct {
	tenantAuth
	UserID              string `json:"user_id"`
	TargetInstitutionID string `json:"target_institution_id"`
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	var req removeMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request")
		return
	}
	if req.UserID == "" {
		writeBadRequest(w, "missing_user_id")
		return
	}

	principal, err := s.resolvePrincipal(r, req.tenantAuth)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	target := req.TargetInstitutionID
	if target == "" && principal.InstitutionID != "" {
		target = principal.InstitutionID
	}

	if err := s.members.Remove(r.Context(), principal, req.UserID, target); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	writeData(w, map[string]string{"status": "removed"})
}
