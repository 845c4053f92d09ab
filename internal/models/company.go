// internal/models/company.go
package models

import (
	"github.com/lib/pq"
)

// Company is a read model for buyer/seller identity. Provisioning and
// onboarding live outside this service; orders reference companies by id.
type Company struct {
	BaseModel
	Name        string         `json:"name" gorm:"size:255;not null"`
	Status      CompanyStatus  `json:"status" gorm:"type:varchar(20);default:'ACTIVE';index"`
	Permissions pq.StringArray `json:"permissions" gorm:"type:text[]"`
	TrustTier   TrustTier      `json:"trust_tier" gorm:"type:varchar(1);default:'C'"`
}

func (c *Company) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
