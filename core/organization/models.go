package organization

import (
	"time"

	"github.com/trezcool/shule/core"
)

// Organization is one tenant school. Its catalog visibility is the union of
// the entries it enabled and the private entries it owns; the enabled set
// itself lives in storage as a join table keyed by (organization, entry).
type Organization struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Motto     string    `json:"motto,omitempty"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Branch is a campus/site of an organization; it narrows the placement scope
// of catalog entries created under it.
type Branch struct {
	ID             int       `json:"id"`
	OrganizationID int       `json:"organization_id"`
	Name           string    `json:"name"`
	Address        string    `json:"address,omitempty"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

// NewOrganization contains information needed to create a new Organization.
type NewOrganization struct {
	Name    string `json:"name" validate:"required,max=255"`
	Motto   string `json:"motto" validate:"omitempty,max=255"`
	Address string `json:"address"`
}

func (no *NewOrganization) Validate() error {
	no.Name = core.CleanString(no.Name)
	no.Motto = core.CleanString(no.Motto)
	no.Address = core.CleanString(no.Address)
	return core.Validate.Struct(no)
}

// UpdateOrganization defines what information may be provided to modify an
// existing Organization. Zero values are left unchanged.
type UpdateOrganization struct {
	Name     string `json:"name" validate:"omitempty,max=255"`
	Motto    string `json:"motto" validate:"omitempty,max=255"`
	Address  string `json:"address"`
	IsActive *bool  `json:"is_active"`
}

func (uo *UpdateOrganization) Validate() error {
	uo.Name = core.CleanString(uo.Name)
	uo.Motto = core.CleanString(uo.Motto)
	uo.Address = core.CleanString(uo.Address)
	return core.Validate.Struct(uo)
}

// NewBranch contains information needed to create a new Branch.
type NewBranch struct {
	OrganizationID int    `json:"organization_id" validate:"required,gt=0"`
	Name           string `json:"name" validate:"required,max=255"`
	Address        string `json:"address"`
}

func (nb *NewBranch) Validate() error {
	nb.Name = core.CleanString(nb.Name)
	nb.Address = core.CleanString(nb.Address)
	return core.Validate.Struct(nb)
}
