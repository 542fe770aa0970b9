package student

import (
	"time"

	"github.com/trezcool/shule/core"
)

type Student struct {
	ID             int       `json:"id"`
	OrganizationID int       `json:"organization_id"`
	BranchID       *int      `json:"branch_id,omitempty"`
	ClassID        *int      `json:"class_id,omitempty"`
	Name           string    `json:"name"`
	AdmissionNo    string    `json:"admission_no"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

type NewStudent struct {
	OrganizationID int    `json:"organization_id" validate:"required"`
	BranchID       *int   `json:"branch_id"`
	ClassID        *int   `json:"class_id"`
	Name           string `json:"name" validate:"required"`
	AdmissionNo    string `json:"admission_no" validate:"required,alphanum_"`
}

func (ns *NewStudent) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.AdmissionNo = core.CleanString(ns.AdmissionNo, true /* lower */)
	return core.Validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an
// existing Student. Zero values are left unchanged.
type UpdateStudent struct {
	Name     string `json:"name"`
	ClassID  *int   `json:"class_id"`
	BranchID *int   `json:"branch_id"`
	IsActive *bool  `json:"is_active"`
}

func (us *UpdateStudent) Validate() error {
	us.Name = core.CleanString(us.Name)
	return core.Validate.Struct(us)
}
