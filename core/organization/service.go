package organization

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound       = errors.New("organization not found")
	ErrBranchNotFound = errors.New("branch not found")
	ErrNameExists     = errors.New("an organization with this name already exists")
)

type (
	Repository interface {
		// CheckNameUniqueness does a case-insensitive check of `name` against
		// existing organizations. Returns ErrNameExists on conflict.
		CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...int) error
		CreateOrganization(ctx context.Context, org Organization) (Organization, error)
		QueryAllOrganizations(ctx context.Context) ([]Organization, error)
		GetOrganizationByID(ctx context.Context, id int) (Organization, error)
		UpdateOrganization(ctx context.Context, org Organization, isActive *bool) (Organization, error)
		CreateBranch(ctx context.Context, br Branch) (Branch, error)
		QueryBranches(ctx context.Context, orgID int) ([]Branch, error)
		GetBranchByID(ctx context.Context, id int) (Branch, error)
	}

	Service interface {
		Create(ctx context.Context, no NewOrganization) (Organization, error)
		QueryAll(ctx context.Context) ([]Organization, error)
		GetByID(ctx context.Context, id int) (Organization, error)
		Update(ctx context.Context, id int, uo UpdateOrganization) (Organization, error)
		CreateBranch(ctx context.Context, nb NewBranch) (Branch, error)
		QueryBranches(ctx context.Context, orgID int) ([]Branch, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, no NewOrganization) (Organization, error) {
	if err := no.Validate(); err != nil {
		return Organization{}, err
	}
	if err := svc.repo.CheckNameUniqueness(ctx, no.Name); err != nil {
		return Organization{}, err
	}

	now := time.Now().UTC()
	org := Organization{
		Name:      no.Name,
		Motto:     no.Motto,
		Address:   no.Address,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateOrganization(ctx, org)
}

func (svc *service) QueryAll(ctx context.Context) ([]Organization, error) {
	return svc.repo.QueryAllOrganizations(ctx)
}

func (svc *service) GetByID(ctx context.Context, id int) (Organization, error) {
	return svc.repo.GetOrganizationByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id int, uo UpdateOrganization) (Organization, error) {
	if err := uo.Validate(); err != nil {
		return Organization{}, err
	}
	if uo.Name != "" {
		if err := svc.repo.CheckNameUniqueness(ctx, uo.Name, id); err != nil {
			return Organization{}, err
		}
	}

	org := Organization{
		ID:        id,
		Name:      uo.Name,
		Motto:     uo.Motto,
		Address:   uo.Address,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateOrganization(ctx, org, uo.IsActive)
}

func (svc *service) CreateBranch(ctx context.Context, nb NewBranch) (Branch, error) {
	if err := nb.Validate(); err != nil {
		return Branch{}, err
	}
	if _, err := svc.repo.GetOrganizationByID(ctx, nb.OrganizationID); err != nil {
		return Branch{}, err
	}

	br := Branch{
		OrganizationID: nb.OrganizationID,
		Name:           nb.Name,
		Address:        nb.Address,
		CreatedAt:      time.Now().UTC(),
	}
	return svc.repo.CreateBranch(ctx, br)
}

func (svc *service) QueryBranches(ctx context.Context, orgID int) ([]Branch, error) {
	if _, err := svc.repo.GetOrganizationByID(ctx, orgID); err != nil {
		return nil, err
	}
	return svc.repo.QueryBranches(ctx, orgID)
}
