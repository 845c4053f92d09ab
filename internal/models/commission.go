// internal/models/commission.go
package models

import (
	"github.com/google/uuid"
)

// CommissionPlan owns an ordered set of rules. At most one active default
// plan exists per scope; COMPANY_OVERRIDE plans bind to one seller company
// and take precedence over the GLOBAL default.
type CommissionPlan struct {
	BaseModel
	Name      string     `json:"name" gorm:"size:255;not null"`
	Scope     PlanScope  `json:"scope" gorm:"type:varchar(20);not null;index"`
	CompanyID *uuid.UUID `json:"company_id" gorm:"type:uuid;index"`
	IsDefault bool       `json:"is_default" gorm:"default:false;index"`
	Active    bool       `json:"active" gorm:"default:true;index"`

	// Relationships
	Rules []CommissionRule `json:"rules,omitempty" gorm:"foreignKey:PlanID"`
}

// CommissionRule matches by category or brand, falling back to the plan's
// DEFAULT rule. Higher priority wins; equal priorities inside one plan are a
// configuration error rejected at admin write time, never tie-broken here.
type CommissionRule struct {
	BaseModel
	PlanID         uuid.UUID     `json:"plan_id" gorm:"type:uuid;not null;index"`
	MatchType      RuleMatchType `json:"match_type" gorm:"type:varchar(20);not null"`
	Category       string        `json:"category,omitempty" gorm:"size:100"`
	Brand          string        `json:"brand,omitempty" gorm:"size:100"`
	RatePercentage float64       `json:"rate_percentage" gorm:"type:decimal(6,3);not null"`
	FixedFee       float64       `json:"fixed_fee" gorm:"type:decimal(12,2);not null;default:0"`
	TaxPercentage  float64       `json:"tax_percentage" gorm:"type:decimal(6,3);not null;default:0"`
	Priority       int           `json:"priority" gorm:"not null;default:0"`
}
