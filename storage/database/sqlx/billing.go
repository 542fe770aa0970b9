package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/billing"
)

type billingRepository struct {
	exec core.DBExecutor
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(exec core.DBExecutor) *billingRepository {
	return &billingRepository{exec: exec}
}

type feeItemRow struct {
	ID             int       `db:"id"`
	Reference      string    `db:"reference"`
	OrganizationID int       `db:"organization_id"`
	StudentID      int       `db:"student_id"`
	FeeTypeID      int       `db:"fee_type_id"`
	Amount         int64     `db:"amount"`
	Status         string    `db:"status"`
	DueDate        time.Time `db:"due_date"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (row feeItemRow) feeItem() billing.FeeItem {
	return billing.FeeItem{
		ID:             row.ID,
		Reference:      row.Reference,
		OrganizationID: row.OrganizationID,
		StudentID:      row.StudentID,
		FeeTypeID:      row.FeeTypeID,
		Amount:         row.Amount,
		Status:         row.Status,
		DueDate:        row.DueDate,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func feeItemSlice(rows []feeItemRow) []billing.FeeItem {
	fis := make([]billing.FeeItem, 0, len(rows))
	for _, row := range rows {
		fis = append(fis, row.feeItem())
	}
	return fis
}

func (repo billingRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return billing.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const feeItemColumns = `id, reference, organization_id, student_id, fee_type_id, amount, status, due_date, created_at, updated_at`

func (repo billingRepository) CreateFeeItem(ctx context.Context, fi billing.FeeItem) (billing.FeeItem, error) {
	err := repo.exec.GetContext(ctx, &fi.ID,
		`INSERT INTO fee_items (reference, organization_id, student_id, fee_type_id, amount, status, due_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		fi.Reference, fi.OrganizationID, fi.StudentID, fi.FeeTypeID, fi.Amount, fi.Status,
		fi.DueDate, fi.CreatedAt, fi.UpdatedAt)
	if err != nil {
		return billing.FeeItem{}, errors.Wrap(err, "inserting fee item")
	}
	return fi, nil
}

func (repo billingRepository) QueryFeeItemsByStudent(ctx context.Context, studentID int) ([]billing.FeeItem, error) {
	var rows []feeItemRow
	err := repo.exec.SelectContext(ctx, &rows,
		`SELECT `+feeItemColumns+` FROM fee_items WHERE student_id = $1 ORDER BY due_date, id`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying fee items")
	}
	return feeItemSlice(rows), nil
}

func (repo billingRepository) QueryFeeItemsByOrganization(ctx context.Context, orgID int) ([]billing.FeeItem, error) {
	var rows []feeItemRow
	err := repo.exec.SelectContext(ctx, &rows,
		`SELECT `+feeItemColumns+` FROM fee_items WHERE organization_id = $1 ORDER BY due_date, id`, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "querying fee items")
	}
	return feeItemSlice(rows), nil
}

func (repo billingRepository) GetFeeItemByID(ctx context.Context, id int) (billing.FeeItem, error) {
	var row feeItemRow
	err := repo.exec.GetContext(ctx, &row, `SELECT `+feeItemColumns+` FROM fee_items WHERE id = $1`, id)
	if err != nil {
		return billing.FeeItem{}, repo.trapNoRowsErr(err, "getting fee item")
	}
	return row.feeItem(), nil
}

func (repo billingRepository) SetFeeItemStatus(ctx context.Context, id int, status string) (billing.FeeItem, error) {
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE fee_items SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return billing.FeeItem{}, errors.Wrap(err, "updating fee item status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.FeeItem{}, billing.ErrNotFound
	}
	return repo.GetFeeItemByID(ctx, id)
}
