package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/staff"
)

type staffRepository struct {
	db *DB
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *DB) staff.Repository {
	return &staffRepository{db: db}
}

func (repo *staffRepository) query() []staff.Staff {
	stfs := make([]staff.Staff, 0, len(repo.db.staff.table))
	for _, stf := range repo.db.staff.table {
		stfs = append(stfs, *stf)
	}
	return stfs
}

func sortStaff(stfs []staff.Staff) {
	sort.Slice(stfs, func(i, j int) bool {
		ni, nj := strings.ToLower(stfs[i].Name), strings.ToLower(stfs[j].Name)
		if ni != nj {
			return ni < nj
		}
		return stfs[i].ID < stfs[j].ID
	})
}

func (repo *staffRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedStaff ...staff.Staff) error {
	repo.db.staff.RLock()
	defer repo.db.staff.RUnlock()

	excluded := make(map[int]bool, len(excludedStaff))
	for _, stf := range excludedStaff {
		excluded[stf.ID] = true
	}
	for _, stf := range repo.query() {
		if strings.EqualFold(stf.Email, email) && !excluded[stf.ID] {
			return staff.ErrEmailExists
		}
	}
	return nil
}

func (repo *staffRepository) CreateStaff(ctx context.Context, stf staff.Staff) (staff.Staff, error) {
	repo.db.staff.Lock()
	defer repo.db.staff.Unlock()

	repo.db.staff.seq++
	stf.ID = repo.db.staff.seq
	repo.db.staff.table[stf.ID] = &stf
	return stf, nil
}

func (repo *staffRepository) QueryAllStaff(ctx context.Context, ordering ...core.DBOrdering) ([]staff.Staff, error) {
	repo.db.staff.RLock()
	defer repo.db.staff.RUnlock()

	stfs := repo.query()
	if len(ordering) > 0 {
		sortStaffBy(stfs, ordering[0])
	} else {
		sortStaff(stfs)
	}
	return stfs, nil
}

func sortStaffBy(stfs []staff.Staff, ord core.DBOrdering) {
	sort.Slice(stfs, func(i, j int) bool {
		a, b := stfs[i], stfs[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "email":
			return strings.ToLower(a.Email) < strings.ToLower(b.Email)
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		case "last_login":
			return a.LastLogin.Before(b.LastLogin)
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	})
}

func (repo *staffRepository) QueryStaffByOrganization(ctx context.Context, orgID int) ([]staff.Staff, error) {
	repo.db.staff.RLock()
	defer repo.db.staff.RUnlock()

	var stfs []staff.Staff
	for _, stf := range repo.query() {
		if stf.OrganizationID != nil && *stf.OrganizationID == orgID {
			stfs = append(stfs, stf)
		}
	}
	sortStaff(stfs)
	return stfs, nil
}

func (repo *staffRepository) GetStaffByID(ctx context.Context, id int) (staff.Staff, error) {
	repo.db.staff.RLock()
	defer repo.db.staff.RUnlock()

	if stf, ok := repo.db.staff.table[id]; ok {
		return *stf, nil
	}
	return staff.Staff{}, staff.ErrNotFound
}

func (repo *staffRepository) GetStaffByEmail(ctx context.Context, email string) (staff.Staff, error) {
	repo.db.staff.RLock()
	defer repo.db.staff.RUnlock()

	for _, stf := range repo.query() {
		if strings.EqualFold(stf.Email, email) {
			return stf, nil
		}
	}
	return staff.Staff{}, staff.ErrNotFound
}

func (repo *staffRepository) UpdateStaff(ctx context.Context, stf staff.Staff, isActive *bool) (staff.Staff, error) {
	repo.db.staff.Lock()
	defer repo.db.staff.Unlock()

	current, ok := repo.db.staff.table[stf.ID]
	if !ok {
		return staff.Staff{}, staff.ErrNotFound
	}
	if stf.Name != "" {
		current.Name = stf.Name
	}
	if stf.Email != "" {
		current.Email = stf.Email
	}
	if stf.Roles != nil {
		current.Roles = stf.Roles
	}
	if stf.PasswordHash != nil {
		current.PasswordHash = stf.PasswordHash
	}
	if !stf.LastLogin.IsZero() {
		current.LastLogin = stf.LastLogin
	}
	if isActive != nil {
		current.IsActive = *isActive
	}
	if !stf.UpdatedAt.IsZero() {
		current.UpdatedAt = stf.UpdatedAt
	}
	return *current, nil
}

func (repo *staffRepository) DeleteStaffByID(ctx context.Context, ids ...int) error {
	repo.db.staff.Lock()
	defer repo.db.staff.Unlock()

	for _, id := range ids {
		delete(repo.db.staff.table, id)
		delete(repo.db.staff.subjects, id)
	}
	return nil
}

func (repo *staffRepository) SetStaffDepartment(ctx context.Context, staffID int, deptID *int) (staff.Staff, error) {
	repo.db.staff.Lock()
	defer repo.db.staff.Unlock()

	stf, ok := repo.db.staff.table[staffID]
	if !ok {
		return staff.Staff{}, staff.ErrNotFound
	}
	stf.DepartmentID = deptID
	return *stf, nil
}

func (repo *staffRepository) SetStaffSubjects(ctx context.Context, staffID int, subjectIDs []int) error {
	repo.db.staff.Lock()
	defer repo.db.staff.Unlock()

	if _, ok := repo.db.staff.table[staffID]; !ok {
		return staff.ErrNotFound
	}
	set := make(map[int]bool, len(subjectIDs))
	for _, id := range subjectIDs {
		set[id] = true
	}
	repo.db.staff.subjects[staffID] = set
	return nil
}

func (repo *staffRepository) QueryStaffSubjectIDs(ctx context.Context, staffID int) ([]int, error) {
	repo.db.staff.RLock()
	defer repo.db.staff.RUnlock()

	var ids []int
	for id := range repo.db.staff.subjects[staffID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}
