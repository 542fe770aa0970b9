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
	"github.com/trezcool/shule/core/catalog"
)

type catalogRepository struct {
	exec core.DBExecutor
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(exec core.DBExecutor) *catalogRepository {
	return &catalogRepository{exec: exec}
}

type catalogEntityRow struct {
	ID                  int       `db:"id"`
	Kind                string    `db:"kind"`
	Name                string    `db:"name"`
	Code                string    `db:"code"`
	Description         string    `db:"description"`
	OwnerOrganizationID null.Int  `db:"owner_organization_id"`
	BranchID            null.Int  `db:"branch_id"`
	IsPrivate           bool      `db:"is_private"`
	IsDeleted           bool      `db:"is_deleted"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func (row catalogEntityRow) entity() catalog.Entity {
	return catalog.Entity{
		ID:                  row.ID,
		Kind:                catalog.Kind(row.Kind),
		Name:                row.Name,
		Code:                row.Code,
		Description:         row.Description,
		OwnerOrganizationID: intPtr(row.OwnerOrganizationID),
		BranchID:            intPtr(row.BranchID),
		IsPrivate:           row.IsPrivate,
		IsDeleted:           row.IsDeleted,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
}

func entities(rows []catalogEntityRow) []catalog.Entity {
	ents := make([]catalog.Entity, 0, len(rows))
	for _, row := range rows {
		ents = append(ents, row.entity())
	}
	return ents
}

// trapNoRowsErr maps psql "no rows" err to catalog.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return catalog.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// trapUniqueViolation maps partial unique index violations to the service's
// conflict errors in case a concurrent writer slips past CheckUniqueness.
func trapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch {
		case strings.Contains(pqErr.Constraint, "_code_"):
			return catalog.ErrCodeExists
		case strings.Contains(pqErr.Constraint, "_name_"):
			return catalog.ErrNameExists
		}
	}
	return err
}

const catalogEntityColumns = `id, kind, name, code, description, owner_organization_id, branch_id, is_private, is_deleted, created_at, updated_at`

func (repo catalogRepository) GetEntity(ctx context.Context, id int, exec ...core.DBExecutor) (catalog.Entity, error) {
	var row catalogEntityRow
	err := getExec(repo.exec, exec).GetContext(ctx, &row,
		`SELECT `+catalogEntityColumns+` FROM catalog_entities WHERE id = $1`, id)
	if err != nil {
		return catalog.Entity{}, trapNoRowsErr(err, "getting catalog entry")
	}
	return row.entity(), nil
}

func (repo catalogRepository) QueryVisibleEntities(ctx context.Context, orgID int, exec ...core.DBExecutor) ([]catalog.Entity, error) {
	var rows []catalogEntityRow
	err := getExec(repo.exec, exec).SelectContext(ctx, &rows,
		`SELECT `+catalogEntityColumns+` FROM catalog_entities e
		 WHERE e.owner_organization_id = $1
		    OR (NOT e.is_deleted AND EXISTS (
		        SELECT 1 FROM organization_catalog oc
		        WHERE oc.entity_id = e.id AND oc.organization_id = $1))
		 ORDER BY e.kind, lower(e.name), e.id`, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "querying visible catalog entries")
	}
	return entities(rows), nil
}

func (repo catalogRepository) CheckUniqueness(ctx context.Context, ent catalog.Entity, excludedIDs []int, exec ...core.DBExecutor) error {
	ex := getExec(repo.exec, exec)

	excluded := excludedIDs
	if excluded == nil {
		excluded = []int{0} // empty NOT IN is invalid SQL
	}

	// code clashes within the owner scope; code is optional
	var exists bool
	if ent.Code != "" {
		codeQ := `SELECT EXISTS (
			SELECT 1 FROM catalog_entities
			WHERE NOT is_deleted AND kind = $1 AND lower(code) = lower($2)
			  AND owner_organization_id IS NOT DISTINCT FROM $3
			  AND NOT (id = ANY($4))
		)`
		err := ex.GetContext(ctx, &exists, codeQ, string(ent.Kind), ent.Code, nullIntFromPtr(ent.OwnerOrganizationID), pq.Array(excluded))
		if err != nil {
			return errors.Wrap(err, "checking catalog code uniqueness")
		}
		if exists {
			return catalog.ErrCodeExists
		}
	}

	// name clashes within the placement scope (branch > organization > global)
	var nameQ string
	args := []interface{}{string(ent.Kind), ent.Name}
	switch {
	case ent.BranchID != nil:
		nameQ = `SELECT EXISTS (
			SELECT 1 FROM catalog_entities
			WHERE NOT is_deleted AND kind = $1 AND lower(name) = lower($2)
			  AND branch_id = $3 AND NOT (id = ANY($4))
		)`
		args = append(args, *ent.BranchID, pq.Array(excluded))
	case ent.OwnerOrganizationID != nil:
		nameQ = `SELECT EXISTS (
			SELECT 1 FROM catalog_entities
			WHERE NOT is_deleted AND kind = $1 AND lower(name) = lower($2)
			  AND owner_organization_id = $3 AND branch_id IS NULL AND NOT (id = ANY($4))
		)`
		args = append(args, *ent.OwnerOrganizationID, pq.Array(excluded))
	default:
		nameQ = `SELECT EXISTS (
			SELECT 1 FROM catalog_entities
			WHERE NOT is_deleted AND kind = $1 AND lower(name) = lower($2)
			  AND owner_organization_id IS NULL AND NOT (id = ANY($3))
		)`
		args = append(args, pq.Array(excluded))
	}

	if err := ex.GetContext(ctx, &exists, nameQ, args...); err != nil {
		return errors.Wrap(err, "checking catalog name uniqueness")
	}
	if exists {
		return catalog.ErrNameExists
	}
	return nil
}

func (repo catalogRepository) CreateEntity(ctx context.Context, ent catalog.Entity, exec ...core.DBExecutor) (catalog.Entity, error) {
	err := getExec(repo.exec, exec).GetContext(ctx, &ent.ID,
		`INSERT INTO catalog_entities
		 (kind, name, code, description, owner_organization_id, branch_id, is_private, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		string(ent.Kind), ent.Name, ent.Code, ent.Description,
		nullIntFromPtr(ent.OwnerOrganizationID), nullIntFromPtr(ent.BranchID),
		ent.IsPrivate, ent.CreatedAt, ent.UpdatedAt)
	if err != nil {
		return catalog.Entity{}, errors.Wrap(trapUniqueViolation(err), "inserting catalog entry")
	}
	return ent, nil
}

func (repo catalogRepository) UpdateEntity(ctx context.Context, ent catalog.Entity, exec ...core.DBExecutor) (catalog.Entity, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx,
		`UPDATE catalog_entities SET name = $2, code = $3, description = $4, updated_at = $5 WHERE id = $1`,
		ent.ID, ent.Name, ent.Code, ent.Description, ent.UpdatedAt)
	if err != nil {
		return catalog.Entity{}, errors.Wrap(trapUniqueViolation(err), "updating catalog entry")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.Entity{}, catalog.ErrNotFound
	}
	return ent, nil
}

func (repo catalogRepository) SetEntityDeleted(ctx context.Context, id int, deleted bool, exec ...core.DBExecutor) error {
	res, err := getExec(repo.exec, exec).ExecContext(ctx,
		`UPDATE catalog_entities SET is_deleted = $2, updated_at = now() WHERE id = $1`, id, deleted)
	if err != nil {
		return errors.Wrap(err, "flagging catalog entry")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (repo catalogRepository) OrganizationExists(ctx context.Context, orgID int, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	err := getExec(repo.exec, exec).GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM organizations WHERE id = $1)`, orgID)
	if err != nil {
		return false, errors.Wrap(err, "checking organization")
	}
	return exists, nil
}

func (repo catalogRepository) AddEnabledEntity(ctx context.Context, orgID, entityID int, exec ...core.DBExecutor) error {
	_, err := getExec(repo.exec, exec).ExecContext(ctx,
		`INSERT INTO organization_catalog (organization_id, entity_id) VALUES ($1, $2)
		 ON CONFLICT (organization_id, entity_id) DO NOTHING`, orgID, entityID)
	return errors.Wrap(err, "enabling catalog entry")
}

func (repo catalogRepository) RemoveEnabledEntity(ctx context.Context, orgID, entityID int, exec ...core.DBExecutor) error {
	_, err := getExec(repo.exec, exec).ExecContext(ctx,
		`DELETE FROM organization_catalog WHERE organization_id = $1 AND entity_id = $2`, orgID, entityID)
	return errors.Wrap(err, "disabling catalog entry")
}

func (repo catalogRepository) RemoveEnabledEntityForAll(ctx context.Context, entityID int, exec ...core.DBExecutor) error {
	_, err := getExec(repo.exec, exec).ExecContext(ctx,
		`DELETE FROM organization_catalog WHERE entity_id = $1`, entityID)
	return errors.Wrap(err, "disabling catalog entry for all organizations")
}

func (repo catalogRepository) EntityEnabled(ctx context.Context, orgID, entityID int, exec ...core.DBExecutor) (bool, error) {
	var enabled bool
	err := getExec(repo.exec, exec).GetContext(ctx, &enabled,
		`SELECT EXISTS (SELECT 1 FROM organization_catalog WHERE organization_id = $1 AND entity_id = $2)`,
		orgID, entityID)
	if err != nil {
		return false, errors.Wrap(err, "checking enabled catalog entry")
	}
	return enabled, nil
}

func (repo catalogRepository) CountActiveUsage(ctx context.Context, kind catalog.Kind, entityID int, exec ...core.DBExecutor) (int, error) {
	var q string
	switch kind {
	case catalog.KindDepartment:
		q = `SELECT COUNT(*) FROM staff WHERE department_id = $1 AND is_active`
	case catalog.KindSubject:
		q = `SELECT COUNT(*) FROM staff_subjects ss JOIN staff s ON s.id = ss.staff_id WHERE ss.subject_id = $1 AND s.is_active`
	case catalog.KindClass:
		q = `SELECT COUNT(*) FROM students WHERE class_id = $1 AND is_active`
	case catalog.KindFeeType:
		q = `SELECT COUNT(*) FROM fee_items WHERE fee_type_id = $1 AND status NOT IN ('paid', 'voided')`
	default:
		return 0, errors.Errorf("unknown catalog kind %q", kind)
	}

	var count int
	if err := getExec(repo.exec, exec).GetContext(ctx, &count, q, entityID); err != nil {
		return 0, errors.Wrap(err, "counting active usage")
	}
	return count, nil
}
