package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/catalog"
)

var (
	// errors
	ErrNotFound          = errors.New("student not found")
	ErrAdmissionNoExists = errors.New("a student with this admission number already exists")
	ErrClassNotEnabled   = errors.New("this class is not enabled for the organization")
)

type (
	Repository interface {
		// CheckAdmissionNoUniqueness checks `admissionNo` against existing
		// students of the same organization.
		CheckAdmissionNoUniqueness(ctx context.Context, orgID int, admissionNo string, excludedIDs ...int) error
		CreateStudent(ctx context.Context, std Student) (Student, error)
		QueryStudentsByOrganization(ctx context.Context, orgID int) ([]Student, error)
		QueryStudentsByClass(ctx context.Context, orgID, classID int) ([]Student, error)
		GetStudentByID(ctx context.Context, id int) (Student, error)
		UpdateStudent(ctx context.Context, std Student, classID, branchID *int, isActive *bool) (Student, error)
		DeleteStudentByID(ctx context.Context, ids ...int) error
	}

	// CatalogChecker is the slice of the catalog service needed to validate
	// class assignments.
	CatalogChecker interface {
		Visible(ctx context.Context, orgID int, kind catalog.Kind, entityID int) error
	}

	Service interface {
		Create(ctx context.Context, ns NewStudent) (Student, error)
		QueryByOrganization(ctx context.Context, orgID int) ([]Student, error)
		QueryByClass(ctx context.Context, orgID, classID int) ([]Student, error)
		GetByID(ctx context.Context, id int) (Student, error)
		Update(ctx context.Context, id int, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, ids ...int) error
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

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(); err != nil {
		return Student{}, err
	}
	if err := svc.repo.CheckAdmissionNoUniqueness(ctx, ns.OrganizationID, ns.AdmissionNo); err != nil {
		if errors.Cause(err) == ErrAdmissionNoExists {
			return Student{}, core.NewValidationError(err, core.FieldError{Field: "admission_no", Error: err.Error()})
		}
		return Student{}, err
	}
	if err := svc.checkClass(ctx, ns.OrganizationID, ns.ClassID); err != nil {
		return Student{}, err
	}
	now := time.Now().UTC()
	std := Student{
		OrganizationID: ns.OrganizationID,
		BranchID:       ns.BranchID,
		ClassID:        ns.ClassID,
		Name:           ns.Name,
		AdmissionNo:    ns.AdmissionNo,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *service) QueryByOrganization(ctx context.Context, orgID int) ([]Student, error) {
	return svc.repo.QueryStudentsByOrganization(ctx, orgID)
}

func (svc *service) QueryByClass(ctx context.Context, orgID, classID int) ([]Student, error) {
	return svc.repo.QueryStudentsByClass(ctx, orgID, classID)
}

func (svc *service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	if err := us.Validate(); err != nil {
		return Student{}, err
	}
	std, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if us.ClassID != nil {
		if err = svc.checkClass(ctx, std.OrganizationID, us.ClassID); err != nil {
			return Student{}, err
		}
	}
	std.Name = us.Name
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, std, us.ClassID, us.BranchID, us.IsActive)
}

func (svc *service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteStudentByID(ctx, ids...)
}

// checkClass ensures a class assignment only references a class the
// organization can actually see.
func (svc *service) checkClass(ctx context.Context, orgID int, classID *int) error {
	if classID == nil {
		return nil
	}
	if err := svc.catalogSvc.Visible(ctx, orgID, catalog.KindClass, *classID); err != nil {
		return core.NewValidationError(ErrClassNotEnabled, core.FieldError{Field: "class_id", Error: ErrClassNotEnabled.Error()})
	}
	return nil
}
