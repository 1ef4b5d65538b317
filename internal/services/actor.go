package services

import "github.com/matterdesk/matterdesk/internal/models"

// Actor is the resolved authorization context for one request.
// It is built once at the HTTP boundary and passed into every operation.
type Actor struct {
	ID     uint   `json:"id"`
	FirmID *uint  `json:"firm_id"`
	Role   string `json:"role"`
	Status string `json:"status"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type Permission string

const (
	PermTransitionMatter  Permission = "matter.transition"
	PermAssignMatter      Permission = "matter.assign"
	PermFileForClient     Permission = "matter.file_for_client"
	PermFileOwnMatter     Permission = "matter.file_own"
	PermViewFirmMatters   Permission = "matter.view_firm"
	PermManageMatterFiles Permission = "matter.manage_files"
	PermInviteAnyRole     Permission = "staff.invite_any"
	PermInviteAssociate   Permission = "staff.invite_associate"
	PermListStaff         Permission = "staff.list"
	PermManageStaff       Permission = "staff.manage"
	PermManageFirm        Permission = "firm.manage"
	PermViewAudit         Permission = "audit.view"
)

var rolePermissions = map[string]map[Permission]bool{
	models.RoleAdminManager: {
		PermAssignMatter:      true,
		PermFileForClient:     true,
		PermViewFirmMatters:   true,
		PermManageMatterFiles: true,
		PermInviteAnyRole:     true,
		PermInviteAssociate:   true,
		PermListStaff:         true,
		PermManageStaff:       true,
		PermManageFirm:        true,
		PermViewAudit:         true,
	},
	models.RoleCaseManager: {
		PermTransitionMatter:  true,
		PermAssignMatter:      true,
		PermFileForClient:     true,
		PermViewFirmMatters:   true,
		PermManageMatterFiles: true,
		PermInviteAssociate:   true,
		PermListStaff:         true,
	},
	models.RoleAssociateLawyer: {
		PermManageMatterFiles: true,
	},
	models.RoleClient: {
		PermFileOwnMatter: true,
	},
}

// Can is a pure function of role and status. Any non-active status grants nothing.
func (a *Actor) Can(p Permission) bool {
	if a == nil || a.Status != models.StatusActive {
		return false
	}
	return rolePermissions[a.Role][p]
}

func (a *Actor) IsInternal() bool {
	return a != nil && models.IsFirmRole(a.Role)
}

func (a *Actor) IsClient() bool {
	return a != nil && a.Role == models.RoleClient
}

// InFirm reports whether the actor belongs to firmID. A nil firm matches nobody.
func (a *Actor) InFirm(firmID *uint) bool {
	return a != nil && a.FirmID != nil && firmID != nil && *a.FirmID == *firmID
}

// ActorFromProfile builds an Actor without any validation.
func ActorFromProfile(p *models.Profile) *Actor {
	return &Actor{
		ID:     p.ID,
		FirmID: p.FirmID,
		Role:   p.Role,
		Status: p.Status,
		Email:  p.Email,
		Name:   p.FullName(),
	}
}
