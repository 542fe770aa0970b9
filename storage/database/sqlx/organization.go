package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/organization"
)

type organizationRepository struct {
	exec core.DBExecutor
}

var _ organization.Repository = (*organizationRepository)(nil) // interface compliance check

func NewOrganizationRepository(exec core.DBExecutor) *organizationRepository {
	return &organizationRepository{exec: exec}
}

type organizationRow struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	Motto     string    `db:"motto"`
	Address   string    `db:"address"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row organizationRow) organization() organization.Organization {
	return organization.Organization{
		ID:        row.ID,
		Name:      row.Name,
		Motto:     row.Motto,
		Address:   row.Address,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type branchRow struct {
	ID             int       `db:"id"`
	OrganizationID int       `db:"organization_id"`
	Name           string    `db:"name"`
	Address        string    `db:"address"`
	CreatedAt      time.Time `db:"created_at"`
}

func (row branchRow) branch() organization.Branch {
	return organization.Branch{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		Name:           row.Name,
		Address:        row.Address,
		CreatedAt:      row.CreatedAt,
	}
}

func (repo organizationRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return organization.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo organizationRepository) CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...int) error {
	excluded := excludedIDs
	if excluded == nil {
		excluded = []int{0}
	}

	var exists bool
	err := repo.exec.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM organizations WHERE lower(name) = lower($1) AND NOT (id = ANY($2)))`,
		name, pq.Array(excluded))
	if err != nil {
		return errors.Wrap(err, "checking organization name uniqueness")
	}
	if exists {
		return organization.ErrNameExists
	}
	return nil
}

func (repo organizationRepository) CreateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	err := repo.exec.GetContext(ctx, &org.ID,
		`INSERT INTO organizations (name, motto, address, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		org.Name, org.Motto, org.Address, org.IsActive, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return organization.Organization{}, errors.Wrap(err, "inserting organization")
	}
	return org, nil
}

func (repo organizationRepository) QueryAllOrganizations(ctx context.Context) ([]organization.Organization, error) {
	var rows []organizationRow
	err := repo.exec.SelectContext(ctx, &rows,
		`SELECT id, name, motto, address, is_active, created_at, updated_at FROM organizations ORDER BY lower(name), id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying organizations")
	}
	orgs := make([]organization.Organization, 0, len(rows))
	for _, row := range rows {
		orgs = append(orgs, row.organization())
	}
	return orgs, nil
}

func (repo organizationRepository) GetOrganizationByID(ctx context.Context, id int) (organization.Organization, error) {
	var row organizationRow
	err := repo.exec.GetContext(ctx, &row,
		`SELECT id, name, motto, address, is_active, created_at, updated_at FROM organizations WHERE id = $1`, id)
	if err != nil {
		return organization.Organization{}, repo.trapNoRowsErr(err, "getting organization")
	}
	return row.organization(), nil
}

func (repo organizationRepository) UpdateOrganization(ctx context.Context, org organization.Organization, isActive *bool) (organization.Organization, error) {
	current, err := repo.GetOrganizationByID(ctx, org.ID)
	if err != nil {
		return organization.Organization{}, err
	}
	if org.Name != "" {
		current.Name = org.Name
	}
	if org.Motto != "" {
		current.Motto = org.Motto
	}
	if org.Address != "" {
		current.Address = org.Address
	}
	if isActive != nil {
		current.IsActive = *isActive
	}
	current.UpdatedAt = org.UpdatedAt

	_, err = repo.exec.ExecContext(ctx,
		`UPDATE organizations SET name = $2, motto = $3, address = $4, is_active = $5, updated_at = $6 WHERE id = $1`,
		current.ID, current.Name, current.Motto, current.Address, current.IsActive, current.UpdatedAt)
	if err != nil {
		return organization.Organization{}, errors.Wrap(err, "updating organization")
	}
	return current, nil
}

func (repo organizationRepository) CreateBranch(ctx context.Context, br organization.Branch) (organization.Branch, error) {
	err := repo.exec.GetContext(ctx, &br.ID,
		`INSERT INTO branches (organization_id, name, address, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		br.OrganizationID, br.Name, br.Address, br.CreatedAt)
	if err != nil {
		return organization.Branch{}, errors.Wrap(err, "inserting branch")
	}
	return br, nil
}

func (repo organizationRepository) QueryBranches(ctx context.Context, orgID int) ([]organization.Branch, error) {
	var rows []branchRow
	err := repo.exec.SelectContext(ctx, &rows,
		`SELECT id, organization_id, name, address, created_at FROM branches WHERE organization_id = $1 ORDER BY lower(name), id`, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "querying branches")
	}
	brs := make([]organization.Branch, 0, len(rows))
	for _, row := range rows {
		brs = append(brs, row.branch())
	}
	return brs, nil
}

func (repo organizationRepository) GetBranchByID(ctx context.Context, id int) (organization.Branch, error) {
	var row branchRow
	err := repo.exec.GetContext(ctx, &row,
		`SELECT id, organization_id, name, address, created_at FROM branches WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return organization.Branch{}, organization.ErrBranchNotFound
		}
		return organization.Branch{}, errors.Wrap(err, "getting branch")
	}
	return row.branch(), nil
}
