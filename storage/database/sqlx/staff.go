package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/staff"
)

type staffRepository struct {
	exec core.DBExecutor
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(exec core.DBExecutor) *staffRepository {
	return &staffRepository{exec: exec}
}

type staffRow struct {
	ID             int            `db:"id"`
	OrganizationID null.Int       `db:"organization_id"`
	DepartmentID   null.Int       `db:"department_id"`
	Name           string         `db:"name"`
	Email          string         `db:"email"`
	IsActive       bool           `db:"is_active"`
	Roles          pq.StringArray `db:"roles"`
	PasswordHash   []byte         `db:"password_hash"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	LastLogin      null.Time      `db:"last_login"`
}

func (row staffRow) staff() staff.Staff {
	return staff.Staff{
		ID:             row.ID,
		OrganizationID: intPtr(row.OrganizationID),
		DepartmentID:   intPtr(row.DepartmentID),
		Name:           row.Name,
		Email:          row.Email,
		IsActive:       row.IsActive,
		Roles:          row.Roles,
		PasswordHash:   row.PasswordHash,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		LastLogin:      row.LastLogin.Time,
	}
}

func staffSlice(rows []staffRow) []staff.Staff {
	stfs := make([]staff.Staff, 0, len(rows))
	for _, row := range rows {
		stfs = append(stfs, row.staff())
	}
	return stfs
}

func (repo staffRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return staff.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const staffColumns = `id, organization_id, department_id, name, email, is_active, roles, password_hash, created_at, updated_at, last_login`

func (repo staffRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedStaff ...staff.Staff) error {
	excluded := []int{0}
	for _, stf := range excludedStaff {
		excluded = append(excluded, stf.ID)
	}

	var exists bool
	err := repo.exec.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM staff WHERE lower(email) = lower($1) AND NOT (id = ANY($2)))`,
		email, pq.Array(excluded))
	if err != nil {
		return errors.Wrap(err, "checking staff email uniqueness")
	}
	if exists {
		return staff.ErrEmailExists
	}
	return nil
}

func (repo staffRepository) CreateStaff(ctx context.Context, stf staff.Staff) (staff.Staff, error) {
	err := repo.exec.GetContext(ctx, &stf.ID,
		`INSERT INTO staff (organization_id, department_id, name, email, is_active, roles, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		nullIntFromPtr(stf.OrganizationID), nullIntFromPtr(stf.DepartmentID), stf.Name, stf.Email,
		stf.IsActive, pq.StringArray(stf.Roles), stf.PasswordHash, stf.CreatedAt, stf.UpdatedAt)
	if err != nil {
		return staff.Staff{}, errors.Wrap(err, "inserting staff")
	}
	return stf, nil
}

// orderable staff columns, anything else is ignored
var staffOrderings = map[string]string{
	"name":       "lower(name)",
	"email":      "lower(email)",
	"created_at": "created_at",
	"last_login": "last_login",
}

func staffOrderBy(ordering []core.DBOrdering) string {
	var clauses []string
	for _, ord := range ordering {
		col, ok := staffOrderings[ord.Field]
		if !ok {
			continue
		}
		direction := "DESC"
		if ord.Ascending {
			direction = "ASC"
		}
		clauses = append(clauses, col+" "+direction)
	}
	if len(clauses) == 0 {
		clauses = append(clauses, "lower(name) ASC")
	}
	clauses = append(clauses, "id ASC")
	return " ORDER BY " + strings.Join(clauses, ", ")
}

func (repo staffRepository) QueryAllStaff(ctx context.Context, ordering ...core.DBOrdering) ([]staff.Staff, error) {
	var rows []staffRow
	err := repo.exec.SelectContext(ctx, &rows,
		`SELECT `+staffColumns+` FROM staff`+staffOrderBy(ordering))
	if err != nil {
		return nil, errors.Wrap(err, "querying staff")
	}
	return staffSlice(rows), nil
}

func (repo staffRepository) QueryStaffByOrganization(ctx context.Context, orgID int) ([]staff.Staff, error) {
	var rows []staffRow
	err := repo.exec.SelectContext(ctx, &rows,
		`SELECT `+staffColumns+` FROM staff WHERE organization_id = $1 ORDER BY lower(name), id`, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "querying staff")
	}
	return staffSlice(rows), nil
}

func (repo staffRepository) GetStaffByID(ctx context.Context, id int) (staff.Staff, error) {
	var row staffRow
	err := repo.exec.GetContext(ctx, &row, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id)
	if err != nil {
		return staff.Staff{}, repo.trapNoRowsErr(err, "getting staff")
	}
	return row.staff(), nil
}

func (repo staffRepository) GetStaffByEmail(ctx context.Context, email string) (staff.Staff, error) {
	var row staffRow
	err := repo.exec.GetContext(ctx, &row, `SELECT `+staffColumns+` FROM staff WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return staff.Staff{}, repo.trapNoRowsErr(err, "getting staff")
	}
	return row.staff(), nil
}

func (repo staffRepository) UpdateStaff(ctx context.Context, stf staff.Staff, isActive *bool) (staff.Staff, error) {
	current, err := repo.GetStaffByID(ctx, stf.ID)
	if err != nil {
		return staff.Staff{}, err
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

	_, err = repo.exec.ExecContext(ctx,
		`UPDATE staff SET name = $2, email = $3, is_active = $4, roles = $5, password_hash = $6, updated_at = $7, last_login = $8
		 WHERE id = $1`,
		current.ID, current.Name, current.Email, current.IsActive, pq.StringArray(current.Roles),
		current.PasswordHash, current.UpdatedAt, null.NewTime(current.LastLogin, !current.LastLogin.IsZero()))
	if err != nil {
		return staff.Staff{}, errors.Wrap(err, "updating staff")
	}
	return current, nil
}

func (repo staffRepository) DeleteStaffByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.exec.ExecContext(ctx, `DELETE FROM staff WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting staff")
}

func (repo staffRepository) SetStaffDepartment(ctx context.Context, staffID int, deptID *int) (staff.Staff, error) {
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE staff SET department_id = $2, updated_at = now() WHERE id = $1`,
		staffID, nullIntFromPtr(deptID))
	if err != nil {
		return staff.Staff{}, errors.Wrap(err, "assigning staff department")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return staff.Staff{}, staff.ErrNotFound
	}
	return repo.GetStaffByID(ctx, staffID)
}

func (repo staffRepository) SetStaffSubjects(ctx context.Context, staffID int, subjectIDs []int) error {
	if _, err := repo.GetStaffByID(ctx, staffID); err != nil {
		return err
	}
	if _, err := repo.exec.ExecContext(ctx,
		`DELETE FROM staff_subjects WHERE staff_id = $1 AND NOT (subject_id = ANY($2))`,
		staffID, pq.Array(subjectIDs)); err != nil {
		return errors.Wrap(err, "clearing staff subjects")
	}
	for _, subjID := range subjectIDs {
		if _, err := repo.exec.ExecContext(ctx,
			`INSERT INTO staff_subjects (staff_id, subject_id) VALUES ($1, $2)
			 ON CONFLICT (staff_id, subject_id) DO NOTHING`, staffID, subjID); err != nil {
			return errors.Wrap(err, "adding staff subject")
		}
	}
	return nil
}

func (repo staffRepository) QueryStaffSubjectIDs(ctx context.Context, staffID int) ([]int, error) {
	var ids []int
	err := repo.exec.SelectContext(ctx, &ids,
		`SELECT subject_id FROM staff_subjects WHERE staff_id = $1 ORDER BY subject_id`, staffID)
	if err != nil {
		return nil, errors.Wrap(err, "querying staff subjects")
	}
	return ids, nil
}
