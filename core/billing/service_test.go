package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/catalog"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
	testutil "github.com/trezcool/shule/tests"
)

type fixtures struct {
	svc        billing.Service
	catalogSvc catalog.Service
	db         *dummydb.DB
	org        int
	student    int
	feeType    int
}

func setup(t *testing.T) fixtures {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}

	org := testutil.CreateOrganization(t, dummydb.NewOrganizationRepository(db), "Mikumi Academy")
	ft := testutil.CreateEntity(t, dummydb.NewCatalogRepository(db), catalog.KindFeeType, "Tuition", "tuition", &org.ID)
	std := testutil.CreateStudent(t, dummydb.NewStudentRepository(db), org.ID, "Asha", "adm001", nil, true)

	catalogSvc := catalog.NewService(nil, dummydb.NewCatalogRepository(db))
	return fixtures{
		svc:        billing.NewService(dummydb.NewBillingRepository(db), catalogSvc),
		catalogSvc: catalogSvc,
		db:         db,
		org:        org.ID,
		student:    std.ID,
		feeType:    ft.ID,
	}
}

func Test_service_Create(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	due := time.Now().UTC().AddDate(0, 1, 0)

	t.Run("charge against an enabled fee type", func(t *testing.T) {
		fi, err := fx.svc.Create(ctx, billing.NewFeeItem{
			OrganizationID: fx.org,
			StudentID:      fx.student,
			FeeTypeID:      fx.feeType,
			Amount:         150_000,
			DueDate:        due,
		})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if fi.Reference == "" {
			t.Error("Reference must be generated")
		}
		if fi.Status != billing.StatusPending {
			t.Errorf("Status = %q, want %q", fi.Status, billing.StatusPending)
		}
	})

	t.Run("fee type not enabled for the organization", func(t *testing.T) {
		otherOrg := testutil.CreateOrganization(t, dummydb.NewOrganizationRepository(fx.db), "Selous High")
		_, err := fx.svc.Create(ctx, billing.NewFeeItem{
			OrganizationID: otherOrg.ID,
			StudentID:      fx.student,
			FeeTypeID:      fx.feeType,
			Amount:         150_000,
			DueDate:        due,
		})
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Create() error = %v, want validation error on fee_type_id", err)
		}
	})

	t.Run("zero amount rejected", func(t *testing.T) {
		_, err := fx.svc.Create(ctx, billing.NewFeeItem{
			OrganizationID: fx.org,
			StudentID:      fx.student,
			FeeTypeID:      fx.feeType,
			DueDate:        due,
		})
		if err == nil {
			t.Error("Create() must reject a zero amount")
		}
	})
}

func Test_service_settlement(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	repo := dummydb.NewBillingRepository(fx.db)

	t.Run("mark paid", func(t *testing.T) {
		fi := testutil.CreateFeeItem(t, repo, fx.org, fx.student, fx.feeType, 150_000, billing.StatusPending)

		paid, err := fx.svc.MarkPaid(ctx, fi.ID)
		if err != nil {
			t.Fatalf("MarkPaid() failed: %v", err)
		}
		if paid.Status != billing.StatusPaid {
			t.Errorf("Status = %q, want %q", paid.Status, billing.StatusPaid)
		}

		// settled items are frozen
		if _, err = fx.svc.MarkPaid(ctx, fi.ID); errors.Cause(err) != billing.ErrAlreadySettled {
			t.Errorf("MarkPaid() error = %v, want %v", err, billing.ErrAlreadySettled)
		}
		if _, err = fx.svc.Void(ctx, fi.ID); errors.Cause(err) != billing.ErrAlreadySettled {
			t.Errorf("Void() error = %v, want %v", err, billing.ErrAlreadySettled)
		}
	})

	t.Run("void pending", func(t *testing.T) {
		fi := testutil.CreateFeeItem(t, repo, fx.org, fx.student, fx.feeType, 50_000, billing.StatusPending)

		voided, err := fx.svc.Void(ctx, fi.ID)
		if err != nil {
			t.Fatalf("Void() failed: %v", err)
		}
		if voided.Status != billing.StatusVoided {
			t.Errorf("Status = %q, want %q", voided.Status, billing.StatusVoided)
		}
	})

	t.Run("overdue items can still be settled", func(t *testing.T) {
		fi := testutil.CreateFeeItem(t, repo, fx.org, fx.student, fx.feeType, 50_000, billing.StatusOverdue)

		if _, err := fx.svc.MarkPaid(ctx, fi.ID); err != nil {
			t.Fatalf("MarkPaid() failed: %v", err)
		}
	})

	t.Run("unknown fee item", func(t *testing.T) {
		if _, err := fx.svc.MarkPaid(ctx, 999); errors.Cause(err) != billing.ErrNotFound {
			t.Errorf("MarkPaid() error = %v, want %v", err, billing.ErrNotFound)
		}
	})
}

func Test_service_unsettled_usage_blocks_fee_type_removal(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	repo := dummydb.NewBillingRepository(fx.db)

	pending := testutil.CreateFeeItem(t, repo, fx.org, fx.student, fx.feeType, 150_000, billing.StatusPending)

	_, err := fx.catalogSvc.RemoveOrDelete(ctx, fx.feeType, fx.org)
	var blocked *catalog.RemovalBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("RemoveOrDelete() error = %v, want *RemovalBlockedError", err)
	}
	if blocked.UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1", blocked.UsageCount)
	}

	// settled items do not count as usage
	if _, err = fx.svc.Void(ctx, pending.ID); err != nil {
		t.Fatalf("Void() failed: %v", err)
	}
	res, err := fx.catalogSvc.RemoveOrDelete(ctx, fx.feeType, fx.org)
	if err != nil {
		t.Fatalf("RemoveOrDelete() failed: %v", err)
	}
	if res.Action != catalog.ActionDeleted {
		t.Errorf("Action = %q, want %q", res.Action, catalog.ActionDeleted)
	}
}
