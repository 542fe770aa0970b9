package catalog

import (
	"strings"
	"time"

	"github.com/trezcool/shule/core"
)

// Kind discriminates the selectable catalog entry families. All kinds share
// the same entitlement rules; storage supplies the per-kind usage bindings.
type Kind string

const (
	KindDepartment Kind = "department"
	KindSubject    Kind = "subject"
	KindFeeType    Kind = "fee_type"
	KindClass      Kind = "class"
)

var Kinds = []Kind{KindDepartment, KindSubject, KindFeeType, KindClass}

func (k Kind) Valid() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Label returns a human readable name for the kind.
func (k Kind) Label() string {
	return strings.ReplaceAll(string(k), "_", " ")
}

// Entity is one selectable catalog definition. A nil OwnerOrganizationID
// makes it global (available to every organization through its enabled set);
// otherwise it is private to the owning organization.
// IsPrivate is stored independently but must always equal
// `OwnerOrganizationID != nil`.
type Entity struct {
	ID                  int       `json:"id"`
	Kind                Kind      `json:"kind"`
	Name                string    `json:"name"`
	Code                string    `json:"code,omitempty"`
	Description         string    `json:"description,omitempty"`
	OwnerOrganizationID *int      `json:"owner_organization_id,omitempty"`
	BranchID            *int      `json:"branch_id,omitempty"`
	IsPrivate           bool      `json:"is_private"`
	IsDeleted           bool      `json:"is_deleted"`
	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
}

func (e Entity) IsGlobal() bool { return e.OwnerOrganizationID == nil }

func (e Entity) OwnedBy(orgID int) bool {
	return e.OwnerOrganizationID != nil && *e.OwnerOrganizationID == orgID
}

// NewEntity contains information needed to create a new Entity.
type NewEntity struct {
	Kind                Kind   `json:"kind" validate:"required,catalogkind"`
	Name                string `json:"name" validate:"required,max=255"`
	Code                string `json:"code" validate:"omitempty,max=64,entrycode"`
	Description         string `json:"description"`
	OwnerOrganizationID *int   `json:"owner_organization_id"`
	BranchID            *int   `json:"branch_id"`
	IsPrivate           bool   `json:"is_private"`
}

func (ne *NewEntity) Validate() error {
	ne.Name = core.CleanString(ne.Name)
	ne.Code = core.CleanString(ne.Code, true /* lower */)
	ne.Description = core.CleanString(ne.Description)

	// ownership grants privacy; a private entry cannot be ownerless
	if ne.OwnerOrganizationID != nil {
		ne.IsPrivate = true
	}

	if err := core.Validate.Struct(ne); err != nil {
		return err
	}
	if ne.IsPrivate && ne.OwnerOrganizationID == nil {
		return core.NewValidationError(nil, core.FieldError{
			Field: "owner_organization_id",
			Error: "a private entry requires an owner organization",
		})
	}
	if ne.BranchID != nil && ne.OwnerOrganizationID == nil {
		return core.NewValidationError(nil, core.FieldError{
			Field: "branch_id",
			Error: "a branch placement requires an owner organization",
		})
	}
	return nil
}

// UpdateEntity defines what information may be provided to modify an existing
// Entity. Zero values are left unchanged.
type UpdateEntity struct {
	Name        string `json:"name" validate:"omitempty,max=255"`
	Code        string `json:"code" validate:"omitempty,max=64,entrycode"`
	Description string `json:"description"`
}

func (ue *UpdateEntity) Validate() error {
	ue.Name = core.CleanString(ue.Name)
	ue.Code = core.CleanString(ue.Code, true /* lower */)
	ue.Description = core.CleanString(ue.Description)
	return core.Validate.Struct(ue)
}

type RemovalType string

const (
	RemovalDelete RemovalType = "delete" // soft-delete the entity itself
	RemovalRemove RemovalType = "remove" // only unenroll it from the org's enabled set
)

// Removal actions as reported after commit.
const (
	ActionDeleted = "deleted"
	ActionRemoved = "removed"
)

// RemovalPlan is the advisory outcome of classifying a removal request.
// It is informational for UIs; the commit path re-classifies inside its own
// transaction before mutating anything.
type RemovalPlan struct {
	RemovalType RemovalType `json:"removal_type"`
	CanRemove   bool        `json:"can_remove"`
	Reason      string      `json:"reason,omitempty"`
	UsageCount  int         `json:"usage_count"`
}

// RemovalResult reports the action taken by a committed removal,
// for audit/logging by the caller.
type RemovalResult struct {
	Action         string `json:"action"` // ActionDeleted | ActionRemoved
	EntityID       int    `json:"entity_id"`
	OrganizationID int    `json:"organization_id"`
}
