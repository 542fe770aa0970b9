package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/catalog"
)

type catalogRepository struct {
	db *DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) catalog.Repository {
	return &catalogRepository{db: db}
}

func (repo *catalogRepository) query() []catalog.Entity {
	ents := make([]catalog.Entity, 0, len(repo.db.catalog.table))
	for _, ent := range repo.db.catalog.table {
		ents = append(ents, *ent)
	}
	return ents
}

func sortEntities(ents []catalog.Entity) {
	sort.Slice(ents, func(i, j int) bool {
		if ents[i].Kind != ents[j].Kind {
			return ents[i].Kind < ents[j].Kind
		}
		ni, nj := strings.ToLower(ents[i].Name), strings.ToLower(ents[j].Name)
		if ni != nj {
			return ni < nj
		}
		return ents[i].ID < ents[j].ID
	})
}

func (repo *catalogRepository) GetEntity(ctx context.Context, id int, exec ...core.DBExecutor) (catalog.Entity, error) {
	repo.db.catalog.RLock()
	defer repo.db.catalog.RUnlock()

	if ent, ok := repo.db.catalog.table[id]; ok {
		return *ent, nil
	}
	return catalog.Entity{}, catalog.ErrNotFound
}

func (repo *catalogRepository) QueryVisibleEntities(ctx context.Context, orgID int, exec ...core.DBExecutor) ([]catalog.Entity, error) {
	repo.db.catalog.RLock()
	defer repo.db.catalog.RUnlock()

	enabled := repo.db.catalog.enabled[orgID]
	var visible []catalog.Entity
	for _, ent := range repo.query() {
		switch {
		case ent.OwnedBy(orgID):
			visible = append(visible, ent)
		case !ent.IsDeleted && enabled[ent.ID]:
			visible = append(visible, ent)
		}
	}
	sortEntities(visible)
	return visible, nil
}

func sameIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (repo *catalogRepository) CheckUniqueness(ctx context.Context, ent catalog.Entity, excludedIDs []int, exec ...core.DBExecutor) error {
	repo.db.catalog.RLock()
	defer repo.db.catalog.RUnlock()

	excluded := make(map[int]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}

	for _, other := range repo.query() {
		if other.IsDeleted || other.Kind != ent.Kind || excluded[other.ID] {
			continue
		}
		// code is optional; only a provided code can clash
		if ent.Code != "" && strings.EqualFold(other.Code, ent.Code) && sameIntPtr(other.OwnerOrganizationID, ent.OwnerOrganizationID) {
			return catalog.ErrCodeExists
		}
		if !strings.EqualFold(other.Name, ent.Name) {
			continue
		}
		// name scope: branch when set, else owner organization, else global
		switch {
		case ent.BranchID != nil:
			if sameIntPtr(other.BranchID, ent.BranchID) {
				return catalog.ErrNameExists
			}
		case ent.OwnerOrganizationID != nil:
			if other.BranchID == nil && sameIntPtr(other.OwnerOrganizationID, ent.OwnerOrganizationID) {
				return catalog.ErrNameExists
			}
		default:
			if other.OwnerOrganizationID == nil {
				return catalog.ErrNameExists
			}
		}
	}
	return nil
}

func (repo *catalogRepository) CreateEntity(ctx context.Context, ent catalog.Entity, exec ...core.DBExecutor) (catalog.Entity, error) {
	repo.db.catalog.Lock()
	defer repo.db.catalog.Unlock()

	repo.db.catalog.seq++
	ent.ID = repo.db.catalog.seq
	repo.db.catalog.table[ent.ID] = &ent
	return ent, nil
}

func (repo *catalogRepository) UpdateEntity(ctx context.Context, ent catalog.Entity, exec ...core.DBExecutor) (catalog.Entity, error) {
	repo.db.catalog.Lock()
	defer repo.db.catalog.Unlock()

	current, ok := repo.db.catalog.table[ent.ID]
	if !ok {
		return catalog.Entity{}, catalog.ErrNotFound
	}
	current.Name = ent.Name
	current.Code = ent.Code
	current.Description = ent.Description
	current.UpdatedAt = ent.UpdatedAt
	return *current, nil
}

func (repo *catalogRepository) SetEntityDeleted(ctx context.Context, id int, deleted bool, exec ...core.DBExecutor) error {
	repo.db.catalog.Lock()
	defer repo.db.catalog.Unlock()

	ent, ok := repo.db.catalog.table[id]
	if !ok {
		return catalog.ErrNotFound
	}
	ent.IsDeleted = deleted
	return nil
}

func (repo *catalogRepository) OrganizationExists(ctx context.Context, orgID int, exec ...core.DBExecutor) (bool, error) {
	repo.db.organization.RLock()
	defer repo.db.organization.RUnlock()

	_, ok := repo.db.organization.table[orgID]
	return ok, nil
}

func (repo *catalogRepository) AddEnabledEntity(ctx context.Context, orgID, entityID int, exec ...core.DBExecutor) error {
	repo.db.catalog.Lock()
	defer repo.db.catalog.Unlock()

	set, ok := repo.db.catalog.enabled[orgID]
	if !ok {
		set = make(map[int]bool)
		repo.db.catalog.enabled[orgID] = set
	}
	set[entityID] = true
	return nil
}

func (repo *catalogRepository) RemoveEnabledEntity(ctx context.Context, orgID, entityID int, exec ...core.DBExecutor) error {
	repo.db.catalog.Lock()
	defer repo.db.catalog.Unlock()

	delete(repo.db.catalog.enabled[orgID], entityID)
	return nil
}

func (repo *catalogRepository) RemoveEnabledEntityForAll(ctx context.Context, entityID int, exec ...core.DBExecutor) error {
	repo.db.catalog.Lock()
	defer repo.db.catalog.Unlock()

	for _, set := range repo.db.catalog.enabled {
		delete(set, entityID)
	}
	return nil
}

func (repo *catalogRepository) EntityEnabled(ctx context.Context, orgID, entityID int, exec ...core.DBExecutor) (bool, error) {
	repo.db.catalog.RLock()
	defer repo.db.catalog.RUnlock()

	return repo.db.catalog.enabled[orgID][entityID], nil
}

func (repo *catalogRepository) CountActiveUsage(ctx context.Context, kind catalog.Kind, entityID int, exec ...core.DBExecutor) (int, error) {
	var count int
	switch kind {
	case catalog.KindDepartment:
		repo.db.staff.RLock()
		defer repo.db.staff.RUnlock()
		for _, stf := range repo.db.staff.table {
			if stf.IsActive && stf.DepartmentID != nil && *stf.DepartmentID == entityID {
				count++
			}
		}
	case catalog.KindSubject:
		repo.db.staff.RLock()
		defer repo.db.staff.RUnlock()
		for staffID, set := range repo.db.staff.subjects {
			if stf, ok := repo.db.staff.table[staffID]; ok && stf.IsActive && set[entityID] {
				count++
			}
		}
	case catalog.KindClass:
		repo.db.student.RLock()
		defer repo.db.student.RUnlock()
		for _, std := range repo.db.student.table {
			if std.IsActive && std.ClassID != nil && *std.ClassID == entityID {
				count++
			}
		}
	case catalog.KindFeeType:
		repo.db.billing.RLock()
		defer repo.db.billing.RUnlock()
		for _, fi := range repo.db.billing.table {
			if fi.FeeTypeID == entityID && !fi.IsSettled() {
				count++
			}
		}
	}
	return count, nil
}
