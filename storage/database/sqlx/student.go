package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

type studentRow struct {
	ID             int       `db:"id"`
	OrganizationID int       `db:"organization_id"`
	BranchID       null.Int  `db:"branch_id"`
	ClassID        null.Int  `db:"class_id"`
	Name           string    `db:"name"`
	AdmissionNo    string    `db:"admission_no"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (row studentRow) student() student.Student {
	return student.Student{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		BranchID:       intPtr(row.BranchID),
		ClassID:        intPtr(row.ClassID),
		Name:           row.Name,
		AdmissionNo:    row.AdmissionNo,
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func studentSlice(rows []studentRow) []student.Student {
	stds := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		stds = append(stds, row.student())
	}
	return stds
}

func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const studentColumns = `id, organization_id, branch_id, class_id, name, admission_no, is_active, created_at, updated_at`

func (repo studentRepository) CheckAdmissionNoUniqueness(ctx context.Context, orgID int, admissionNo string, excludedIDs ...int) error {
	excluded := excludedIDs
	if excluded == nil {
		excluded = []int{0}
	}

	var exists bool
	err := repo.exec.GetContext(ctx, &exists,
		`SELECT EXISTS (
			SELECT 1 FROM students
			WHERE organization_id = $1 AND lower(admission_no) = lower($2) AND NOT (id = ANY($3))
		)`, orgID, admissionNo, pq.Array(excluded))
	if err != nil {
		return errors.Wrap(err, "checking admission number uniqueness")
	}
	if exists {
		return student.ErrAdmissionNoExists
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	err := repo.exec.GetContext(ctx, &std.ID,
		`INSERT INTO students (organization_id, branch_id, class_id, name, admission_no, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		std.OrganizationID, nullIntFromPtr(std.BranchID), nullIntFromPtr(std.ClassID),
		std.Name, std.AdmissionNo, std.IsActive, std.CreatedAt, std.UpdatedAt)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo studentRepository) QueryStudentsByOrganization(ctx context.Context, orgID int) ([]student.Student, error) {
	var rows []studentRow
	err := repo.exec.SelectContext(ctx, &rows,
		`SELECT `+studentColumns+` FROM students WHERE organization_id = $1 ORDER BY lower(name), id`, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return studentSlice(rows), nil
}

func (repo studentRepository) QueryStudentsByClass(ctx context.Context, orgID, classID int) ([]student.Student, error) {
	var rows []studentRow
	err := repo.exec.SelectContext(ctx, &rows,
		`SELECT `+studentColumns+` FROM students WHERE organization_id = $1 AND class_id = $2 ORDER BY lower(name), id`,
		orgID, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return studentSlice(rows), nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id int) (student.Student, error) {
	var row studentRow
	err := repo.exec.GetContext(ctx, &row, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	if err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "getting student")
	}
	return row.student(), nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student, classID, branchID *int, isActive *bool) (student.Student, error) {
	current, err := repo.GetStudentByID(ctx, std.ID)
	if err != nil {
		return student.Student{}, err
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

	_, err = repo.exec.ExecContext(ctx,
		`UPDATE students SET branch_id = $2, class_id = $3, name = $4, is_active = $5, updated_at = $6 WHERE id = $1`,
		current.ID, nullIntFromPtr(current.BranchID), nullIntFromPtr(current.ClassID),
		current.Name, current.IsActive, current.UpdatedAt)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	return current, nil
}

func (repo studentRepository) DeleteStudentByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.exec.ExecContext(ctx, `DELETE FROM students WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting students")
}
