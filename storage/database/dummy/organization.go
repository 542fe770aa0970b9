package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/shule/core/organization"
)

type organizationRepository struct {
	db *DB
}

var _ organization.Repository = (*organizationRepository)(nil) // interface compliance check

func NewOrganizationRepository(db *DB) organization.Repository {
	return &organizationRepository{db: db}
}

func (repo *organizationRepository) query() []organization.Organization {
	orgs := make([]organization.Organization, 0, len(repo.db.organization.table))
	for _, org := range repo.db.organization.table {
		orgs = append(orgs, *org)
	}
	return orgs
}

func (repo *organizationRepository) CheckNameUniqueness(ctx context.Context, name string, excludedIDs ...int) error {
	repo.db.organization.RLock()
	defer repo.db.organization.RUnlock()

	excluded := make(map[int]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	for _, org := range repo.query() {
		if strings.EqualFold(org.Name, name) && !excluded[org.ID] {
			return organization.ErrNameExists
		}
	}
	return nil
}

func (repo *organizationRepository) CreateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	repo.db.organization.Lock()
	defer repo.db.organization.Unlock()

	repo.db.organization.orgSeq++
	org.ID = repo.db.organization.orgSeq
	repo.db.organization.table[org.ID] = &org
	return org, nil
}

func (repo *organizationRepository) QueryAllOrganizations(ctx context.Context) ([]organization.Organization, error) {
	repo.db.organization.RLock()
	defer repo.db.organization.RUnlock()

	orgs := repo.query()
	sort.Slice(orgs, func(i, j int) bool {
		ni, nj := strings.ToLower(orgs[i].Name), strings.ToLower(orgs[j].Name)
		if ni != nj {
			return ni < nj
		}
		return orgs[i].ID < orgs[j].ID
	})
	return orgs, nil
}

func (repo *organizationRepository) GetOrganizationByID(ctx context.Context, id int) (organization.Organization, error) {
	repo.db.organization.RLock()
	defer repo.db.organization.RUnlock()

	if org, ok := repo.db.organization.table[id]; ok {
		return *org, nil
	}
	return organization.Organization{}, organization.ErrNotFound
}

func (repo *organizationRepository) UpdateOrganization(ctx context.Context, org organization.Organization, isActive *bool) (organization.Organization, error) {
	repo.db.organization.Lock()
	defer repo.db.organization.Unlock()

	current, ok := repo.db.organization.table[org.ID]
	if !ok {
		return organization.Organization{}, organization.ErrNotFound
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
	return *current, nil
}

func (repo *organizationRepository) CreateBranch(ctx context.Context, br organization.Branch) (organization.Branch, error) {
	repo.db.organization.Lock()
	defer repo.db.organization.Unlock()

	repo.db.organization.branchSeq++
	br.ID = repo.db.organization.branchSeq
	repo.db.organization.branches[br.ID] = &br
	return br, nil
}

func (repo *organizationRepository) QueryBranches(ctx context.Context, orgID int) ([]organization.Branch, error) {
	repo.db.organization.RLock()
	defer repo.db.organization.RUnlock()

	var brs []organization.Branch
	for _, br := range repo.db.organization.branches {
		if br.OrganizationID == orgID {
			brs = append(brs, *br)
		}
	}
	sort.Slice(brs, func(i, j int) bool {
		ni, nj := strings.ToLower(brs[i].Name), strings.ToLower(brs[j].Name)
		if ni != nj {
			return ni < nj
		}
		return brs[i].ID < brs[j].ID
	})
	return brs, nil
}

func (repo *organizationRepository) GetBranchByID(ctx context.Context, id int) (organization.Branch, error) {
	repo.db.organization.RLock()
	defer repo.db.organization.RUnlock()

	if br, ok := repo.db.organization.branches[id]; ok {
		return *br, nil
	}
	return organization.Branch{}, organization.ErrBranchNotFound
}
