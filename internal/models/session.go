// internal/models/session.go
package models

import (
	"github.com/google/uuid"
)

// Session is the authenticated identity handed down by the external auth
// collaborator. CompanyID is trusted as the acting buyer/seller company.
type Session struct {
	UserID      uuid.UUID
	CompanyID   uuid.UUID
	Role        string
	Permissions []string
}

const (
	RoleMember   = "member"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

func (s *Session) HasPermission(permission string) bool {
	for _, p := range s.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func (s *Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
