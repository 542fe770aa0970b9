package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/catalog"
)

var (
	// errors
	ErrNotFound          = errors.New("fee item not found")
	ErrFeeTypeNotEnabled = errors.New("this fee type is not enabled for the organization")
	ErrAlreadySettled    = errors.New("fee item is already settled")
)

type (
	Repository interface {
		CreateFeeItem(ctx context.Context, fi FeeItem) (FeeItem, error)
		QueryFeeItemsByStudent(ctx context.Context, studentID int) ([]FeeItem, error)
		QueryFeeItemsByOrganization(ctx context.Context, orgID int) ([]FeeItem, error)
		GetFeeItemByID(ctx context.Context, id int) (FeeItem, error)
		SetFeeItemStatus(ctx context.Context, id int, status string) (FeeItem, error)
	}

	// CatalogChecker is the slice of the catalog service needed to validate
	// fee type references.
	CatalogChecker interface {
		Visible(ctx context.Context, orgID int, kind catalog.Kind, entityID int) error
	}

	Service interface {
		Create(ctx context.Context, nfi NewFeeItem) (FeeItem, error)
		QueryByStudent(ctx context.Context, studentID int) ([]FeeItem, error)
		QueryByOrganization(ctx context.Context, orgID int) ([]FeeItem, error)
		GetByID(ctx context.Context, id int) (FeeItem, error)
		MarkPaid(ctx context.Context, id int) (FeeItem, error)
		Void(ctx context.Context, id int) (FeeItem, error)
	}

	service struct {
		repo       Repository
		catalogSvc CatalogChecker
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, catalogSvc CatalogChecker) Service {
	return &service{repo: repo, catalogSvc: catalogSvc}
}

func (svc *service) Create(ctx context.Context, nfi NewFeeItem) (FeeItem, error) {
	if err := nfi.Validate(); err != nil {
		return FeeItem{}, err
	}
	if err := svc.catalogSvc.Visible(ctx, nfi.OrganizationID, catalog.KindFeeType, nfi.FeeTypeID); err != nil {
		return FeeItem{}, core.NewValidationError(ErrFeeTypeNotEnabled, core.FieldError{Field: "fee_type_id", Error: ErrFeeTypeNotEnabled.Error()})
	}
	now := time.Now().UTC()
	fi := FeeItem{
		Reference:      uuid.New().String(),
		OrganizationID: nfi.OrganizationID,
		StudentID:      nfi.StudentID,
		FeeTypeID:      nfi.FeeTypeID,
		Amount:         nfi.Amount,
		Status:         StatusPending,
		DueDate:        nfi.DueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateFeeItem(ctx, fi)
}

func (svc *service) QueryByStudent(ctx context.Context, studentID int) ([]FeeItem, error) {
	return svc.repo.QueryFeeItemsByStudent(ctx, studentID)
}

func (svc *service) QueryByOrganization(ctx context.Context, orgID int) ([]FeeItem, error) {
	return svc.repo.QueryFeeItemsByOrganization(ctx, orgID)
}

func (svc *service) GetByID(ctx context.Context, id int) (FeeItem, error) {
	return svc.repo.GetFeeItemByID(ctx, id)
}

func (svc *service) MarkPaid(ctx context.Context, id int) (FeeItem, error) {
	return svc.setStatus(ctx, id, StatusPaid)
}

func (svc *service) Void(ctx context.Context, id int) (FeeItem, error) {
	return svc.setStatus(ctx, id, StatusVoided)
}

func (svc *service) setStatus(ctx context.Context, id int, status string) (FeeItem, error) {
	fi, err := svc.repo.GetFeeItemByID(ctx, id)
	if err != nil {
		return FeeItem{}, err
	}
	if fi.IsSettled() {
		return FeeItem{}, ErrAlreadySettled
	}
	return svc.repo.SetFeeItemStatus(ctx, id, status)
}
