package auth

import (
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/apperr"
)

type Kind string

const (
	KindMainAdmin        Kind = "main_admin"
	KindInstitutionAdmin Kind = "institution_admin"
	KindTeacher          Kind = "teacher"
	KindStudent          Kind = "student"
)

type Action string

const (
	ActionManagePlatform    Action = "manage_platform"
	ActionManageInstitution Action = "manage_institution"
	ActionGuideStudents     Action = "guide_students"
	ActionSelf              Action = "self"
)

// Capability is the single authority object consulted by every operation.
// TenantID is empty for platform-wide principals.
type Capability struct {
	TenantID string
	Actions  []Action
}

func (c Capability) Allows(action Action, tenantID string) bool {
	for _, a := range c.Actions {
		if a == ActionManagePlatform {
			return true
		}
	}
	for _, a := range c.Actions {
		if a != action {
			continue
		}
		if tenantID == "" || c.TenantID == tenantID {
			return true
		}
	}
	return false
}

// Principal is the result of credential resolution; it is derived per
// request and never stored.
type Principal struct {
	Kind          Kind
	UserID        string
	InstitutionID string
	Capability    Capability
}

func NewPrincipal(kind Kind, userID, institutionID string) *Principal {
	p := &Principal{Kind: kind, UserID: userID, InstitutionID: institutionID}
	switch kind {
	case KindMainAdmin:
		p.Capability = Capability{Actions: []Action{ActionManagePlatform}}
	case KindInstitutionAdmin:
		p.Capability = Capability{TenantID: institutionID, Actions: []Action{ActionManageInstitution, ActionSelf}}
	case KindTeacher:
		p.Capability = Capability{TenantID: institutionID, Actions: []Action{ActionGuideStudents, ActionSelf}}
	default:
		p.Capability = Capability{TenantID: institutionID, Actions: []Action{ActionSelf}}
	}
	return p
}

func RequireManagePlatform(p *Principal) error {
	if p == nil || !p.Capability.Allows(ActionManagePlatform, "") {
		return apperr.New(apperr.Forbidden, "main_admin_only")
	}
	return nil
}

func RequireManageInstitution(p *Principal, institutionID string) error {
	if p == nil || !p.Capability.Allows(ActionManageInstitution, institutionID) {
		return apperr.New(apperr.Forbidden, "wrong_tenant")
	}
	return nil
}
