package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/shule/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) query() []student.Student {
	stds := make([]student.Student, 0, len(repo.db.student.table))
	for _, std := range repo.db.student.table {
		stds = append(stds, *std)
	}
	return stds
}

func sortStudents(stds []student.Student) {
	sort.Slice(stds, func(i, j int) bool {
		ni, nj := strings.ToLower(stds[i].Name), strings.ToLower(stds[j].Name)
		if ni != nj {
			return ni < nj
		}
		return stds[i].ID < stds[j].ID
	})
}

func (repo *studentRepository) CheckAdmissionNoUniqueness(ctx context.Context, orgID int, admissionNo string, excludedIDs ...int) error {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	excluded := make(map[int]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	for _, std := range repo.query() {
		if std.OrganizationID == orgID && strings.EqualFold(std.AdmissionNo, admissionNo) && !excluded[std.ID] {
			return student.ErrAdmissionNoExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	repo.db.student.seq++
	std.ID = repo.db.student.seq
	repo.db.student.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) QueryStudentsByOrganization(ctx context.Context, orgID int) ([]student.Student, error) {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	var stds []student.Student
	for _, std := range repo.query() {
		if std.OrganizationID == orgID {
			stds = append(stds, std)
		}
	}
	sortStudents(stds)
	return stds, nil
}

func (repo *studentRepository) QueryStudentsByClass(ctx context.Context, orgID, classID int) ([]student.Student, error) {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	var stds []student.Student
	for _, std := range repo.query() {
		if std.OrganizationID == orgID && std.ClassID != nil && *std.ClassID == classID {
			stds = append(stds, std)
		}
	}
	sortStudents(stds)
	return stds, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id int) (student.Student, error) {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	if std, ok := repo.db.student.table[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student, classID, branchID *int, isActive *bool) (student.Student, error) {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	current, ok := repo.db.student.table[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if std.Name != "" {
		current.Name = std.Name
	}
	if classID != nil {
		current.ClassID = classID
	}
	if branchID != nil {
		current.BranchID = branchID
	}
	if isActive != nil {
		current.IsActive = *isActive
	}
	if !std.UpdatedAt.IsZero() {
		current.UpdatedAt = std.UpdatedAt
	}
	return *current, nil
}

func (repo *studentRepository) DeleteStudentByID(ctx context.Context, ids ...int) error {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	for _, id := range ids {
		delete(repo.db.student.table, id)
	}
	return nil
}
