package staff

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound    = errors.New("staff not found")
	ErrEmailExists = errors.New("a staff member with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedStaff ...Staff) error
		CreateStaff(ctx context.Context, stf Staff) (Staff, error)
		QueryAllStaff(ctx context.Context, ordering ...core.DBOrdering) ([]Staff, error)
		QueryStaffByOrganization(ctx context.Context, orgID int) ([]Staff, error)
		GetStaffByID(ctx context.Context, id int) (Staff, error)
		GetStaffByEmail(ctx context.Context, email string) (Staff, error)
		UpdateStaff(ctx context.Context, stf Staff, isActive *bool) (Staff, error)
		DeleteStaffByID(ctx context.Context, ids ...int) error
		// SetStaffDepartment points the staff at a catalog department
		// (nil clears the assignment).
		SetStaffDepartment(ctx context.Context, staffID int, deptID *int) (Staff, error)
		// SetStaffSubjects replaces the staff's teaching assignments.
		SetStaffSubjects(ctx context.Context, staffID int, subjectIDs []int) error
		QueryStaffSubjectIDs(ctx context.Context, staffID int) ([]int, error)
	}

	Service interface {
		CheckEmailUniqueness(ctx context.Context, email string, excl ...Staff) error
		Create(ctx context.Context, ns NewStaff) (Staff, error)
		QueryAll(ctx context.Context, ordering ...core.DBOrdering) ([]Staff, error)
		QueryByOrganization(ctx context.Context, orgID int) ([]Staff, error)
		GetByID(ctx context.Context, id int) (Staff, error)
		GetByEmail(ctx context.Context, email string) (Staff, error)
		Update(ctx context.Context, id int, us UpdateStaff) (Staff, error)
		Delete(ctx context.Context, ids ...int) error
		SetLastLogin(ctx context.Context, stf Staff) (Staff, error)
		AssignDepartment(ctx context.Context, staffID int, deptID *int) (Staff, error)
		SetSubjects(ctx context.Context, staffID int, subjectIDs []int) error
		QuerySubjectIDs(ctx context.Context, staffID int) ([]int, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rsp ResetStaffPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService) Service {
	return &service{repo: repo, mailSvc: mailSvc}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, excl ...Staff) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excl...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewStaff) (Staff, error) {
	stf, err := svc.create(ctx, ns)
	if err != nil {
		return Staff{}, err
	}
	go svc.sendWelcomeMail(stf)
	return stf, nil
}

func (svc *service) create(ctx context.Context, ns NewStaff) (Staff, error) {
	now := time.Now().UTC()
	stf := Staff{
		Name:           ns.Name,
		Email:          ns.Email,
		OrganizationID: ns.OrganizationID,
		DepartmentID:   ns.DepartmentID,
		IsActive:       true,
		Roles:          ns.Roles,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := stf.SetPassword(ns.Password); err != nil {
		return Staff{}, err
	}
	return svc.repo.CreateStaff(ctx, stf)
}

func (svc *service) QueryAll(ctx context.Context, ordering ...core.DBOrdering) ([]Staff, error) {
	return svc.repo.QueryAllStaff(ctx, ordering...)
}

func (svc *service) QueryByOrganization(ctx context.Context, orgID int) ([]Staff, error) {
	return svc.repo.QueryStaffByOrganization(ctx, orgID)
}

func (svc *service) GetByID(ctx context.Context, id int) (Staff, error) {
	return svc.repo.GetStaffByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Staff, error) {
	return svc.repo.GetStaffByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Update(ctx context.Context, id int, us UpdateStaff) (Staff, error) {
	stf := Staff{
		ID:        id,
		Name:      us.Name,
		Email:     us.Email,
		Roles:     us.Roles,
		UpdatedAt: time.Now().UTC(),
	}
	if us.Password != "" {
		if err := stf.SetPassword(us.Password); err != nil {
			return Staff{}, err
		}
	}
	return svc.repo.UpdateStaff(ctx, stf, us.IsActive)
}

func (svc *service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteStaffByID(ctx, ids...)
}

func (svc *service) SetLastLogin(ctx context.Context, stf Staff) (Staff, error) {
	stf.LastLogin = time.Now().UTC()
	return svc.repo.UpdateStaff(ctx, Staff{ID: stf.ID, LastLogin: stf.LastLogin}, nil)
}

func (svc *service) AssignDepartment(ctx context.Context, staffID int, deptID *int) (Staff, error) {
	return svc.repo.SetStaffDepartment(ctx, staffID, deptID)
}

func (svc *service) SetSubjects(ctx context.Context, staffID int, subjectIDs []int) error {
	return svc.repo.SetStaffSubjects(ctx, staffID, subjectIDs)
}

func (svc *service) QuerySubjectIDs(ctx context.Context, staffID int) ([]int, error) {
	return svc.repo.QueryStaffSubjectIDs(ctx, staffID)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	stf, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(stf)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rsp ResetStaffPassword) error {
	id, err := decodeUID(rsp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	stf, err := svc.repo.GetStaffByID(ctx, id)
	if err != nil {
		return err
	}
	if err = verifyToken(stf, rsp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = stf.SetPassword(rsp.Password); err != nil {
		return err
	}
	stf.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateStaff(ctx, stf, nil)
	return err
}

func (svc *service) sendWelcomeMail(stf Staff) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: stf.Name, Address: stf.Email}},
		Subject:      "Welcome aboard!",
		TemplateName: "staff-welcome",
		TemplateData: struct{ Name string }{stf.Name},
	})
}

func (svc *service) sendPasswordResetMail(stf Staff) {
	token, err := MakeToken(stf)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: stf.Name, Address: stf.Email}},
		Subject:      "Password Reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{stf.Name, EncodeUID(stf), token},
	})
}
