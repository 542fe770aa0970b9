package staff

import (
	"context"

	"github.com/trezcool/shule/core"
)

type serviceMock struct {
	service
}

func NewServiceMock(repo Repository, mailSvc core.EmailService) Service {
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
		},
	}
}

func (svc *serviceMock) Create(ctx context.Context, ns NewStaff) (Staff, error) {
	stf, err := svc.service.create(ctx, ns)
	if err != nil {
		return Staff{}, err
	}
	// run synchronously
	svc.sendWelcomeMail(stf)
	return stf, nil
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	stf, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(stf)
	return nil
}
