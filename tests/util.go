package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/catalog"
	"github.com/trezcool/shule/core/organization"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
)

func CreateOrganization(t *testing.T, repo organization.Repository, name string) organization.Organization {
	t.Helper()

	now := time.Now().UTC()
	org, err := repo.CreateOrganization(context.Background(), organization.Organization{
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateOrganization() failed: %v", err)
	}
	return org
}

func CreateBranch(t *testing.T, repo organization.Repository, orgID int, name string) organization.Branch {
	t.Helper()

	br, err := repo.CreateBranch(context.Background(), organization.Branch{
		OrganizationID: orgID,
		Name:           name,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateBranch() failed: %v", err)
	}
	return br
}

func CreateEntity(
	t *testing.T,
	repo catalog.Repository,
	kind catalog.Kind,
	name, code string,
	owner *int,
) catalog.Entity {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()
	ent, err := repo.CreateEntity(ctx, catalog.Entity{
		Kind:                kind,
		Name:                name,
		Code:                code,
		OwnerOrganizationID: owner,
		IsPrivate:           owner != nil,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		t.Fatalf("CreateEntity() failed: %v", err)
	}
	if owner != nil {
		if err := repo.AddEnabledEntity(ctx, *owner, ent.ID); err != nil {
			t.Fatalf("AddEnabledEntity() failed: %v", err)
		}
	}
	return ent
}

func CreateStaff(
	t *testing.T,
	repo staff.Repository,
	name, email, pwd string,
	orgID *int,
	roles []string,
	isActive bool,
) staff.Staff {
	t.Helper()

	now := time.Now().UTC()
	stf := staff.Staff{
		Name:           name,
		Email:          email,
		OrganizationID: orgID,
		Roles:          roles,
		IsActive:       isActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if pwd != "" {
		if err := stf.SetPassword(pwd); err != nil {
			t.Fatalf("CreateStaff() failed: %v", err)
		}
	}
	stf, err := repo.CreateStaff(context.Background(), stf)
	if err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}
	return stf
}

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	orgID int,
	name, admissionNo string,
	classID *int,
	isActive bool,
) student.Student {
	t.Helper()

	now := time.Now().UTC()
	std, err := repo.CreateStudent(context.Background(), student.Student{
		OrganizationID: orgID,
		ClassID:        classID,
		Name:           name,
		AdmissionNo:    admissionNo,
		IsActive:       isActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func CreateFeeItem(
	t *testing.T,
	repo billing.Repository,
	orgID, studentID, feeTypeID int,
	amount int64,
	status string,
) billing.FeeItem {
	t.Helper()

	now := time.Now().UTC()
	item, err := repo.CreateFeeItem(context.Background(), billing.FeeItem{
		Reference:      uuid.New().String(),
		OrganizationID: orgID,
		StudentID:      studentID,
		FeeTypeID:      feeTypeID,
		Amount:         amount,
		Status:         status,
		DueDate:        now.AddDate(0, 1, 0),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("CreateFeeItem() failed: %v", err)
	}
	return item
}

func IntPtr(i int) *int { return &i }
