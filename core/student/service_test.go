package student_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/catalog"
	"github.com/trezcool/shule/core/student"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
	testutil "github.com/trezcool/shule/tests"
)

func setup(t *testing.T) (student.Service, *dummydb.DB, catalog.Service) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	catalogSvc := catalog.NewService(nil, dummydb.NewCatalogRepository(db))
	return student.NewService(dummydb.NewStudentRepository(db), catalogSvc), db, catalogSvc
}

func Test_service_Create(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	orgRepo := dummydb.NewOrganizationRepository(db)
	catRepo := dummydb.NewCatalogRepository(db)

	org := testutil.CreateOrganization(t, orgRepo, "Mikumi Academy")
	other := testutil.CreateOrganization(t, orgRepo, "Selous High")

	class := testutil.CreateEntity(t, catRepo, catalog.KindClass, "Form 1", "f1", &org.ID)
	foreignClass := testutil.CreateEntity(t, catRepo, catalog.KindClass, "Form 1", "f1", &other.ID)
	subject := testutil.CreateEntity(t, catRepo, catalog.KindSubject, "Math", "math", &org.ID)

	t.Run("enrolled into a visible class", func(t *testing.T) {
		std, err := svc.Create(ctx, student.NewStudent{
			OrganizationID: org.ID,
			ClassID:        &class.ID,
			Name:           "Asha",
			AdmissionNo:    "ADM001",
		})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if !std.IsActive {
			t.Error("new student must be active")
		}
		if std.AdmissionNo != "adm001" {
			t.Errorf("AdmissionNo = %q, want normalized %q", std.AdmissionNo, "adm001")
		}
	})

	t.Run("duplicate admission number in the same organization", func(t *testing.T) {
		_, err := svc.Create(ctx, student.NewStudent{
			OrganizationID: org.ID,
			Name:           "Dup",
			AdmissionNo:    " ADM001 ",
		})
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Create() error = %v, want validation error", err)
		}
	})

	t.Run("same admission number in another organization is fine", func(t *testing.T) {
		if _, err := svc.Create(ctx, student.NewStudent{
			OrganizationID: other.ID,
			Name:           "Twin",
			AdmissionNo:    "ADM001",
		}); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	})

	tests := []struct {
		name    string
		ns      student.NewStudent
		noVErr  bool
		wantErr error
	}{
		{
			name: "class of another organization",
			ns:   student.NewStudent{OrganizationID: org.ID, Name: "Lost", AdmissionNo: "ADM002", ClassID: &foreignClass.ID},
		},
		{
			name: "class id pointing at a non-class entry",
			ns:   student.NewStudent{OrganizationID: org.ID, Name: "Lost", AdmissionNo: "ADM003", ClassID: &subject.ID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.ns)
			var vErr *core.ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("Create() error = %v, want validation error on class_id", err)
			}
		})
	}
}

func Test_service_Update(t *testing.T) {
	svc, db, catalogSvc := setup(t)
	ctx := context.Background()
	orgRepo := dummydb.NewOrganizationRepository(db)
	catRepo := dummydb.NewCatalogRepository(db)
	studentRepo := dummydb.NewStudentRepository(db)

	org := testutil.CreateOrganization(t, orgRepo, "Mikumi Academy")
	class := testutil.CreateEntity(t, catRepo, catalog.KindClass, "Form 1", "f1", &org.ID)
	std := testutil.CreateStudent(t, studentRepo, org.ID, "Asha", "adm001", nil, true)

	t.Run("assign a visible class", func(t *testing.T) {
		updated, err := svc.Update(ctx, std.ID, student.UpdateStudent{ClassID: &class.ID})
		if err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		if updated.ClassID == nil || *updated.ClassID != class.ID {
			t.Error("class assignment lost")
		}
	})

	t.Run("deleted class can no longer be assigned", func(t *testing.T) {
		// deactivate the student first so the class deletion is not blocked
		inactive := false
		if _, err := svc.Update(ctx, std.ID, student.UpdateStudent{IsActive: &inactive}); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		if _, err := catalogSvc.RemoveOrDelete(ctx, class.ID, org.ID); err != nil {
			t.Fatalf("RemoveOrDelete() failed: %v", err)
		}

		_, err := svc.Update(ctx, std.ID, student.UpdateStudent{ClassID: &class.ID})
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Update() error = %v, want validation error on class_id", err)
		}
	})

	t.Run("unknown student", func(t *testing.T) {
		if _, err := svc.Update(ctx, 999, student.UpdateStudent{Name: "x"}); errors.Cause(err) != student.ErrNotFound {
			t.Errorf("Update() error = %v, want %v", err, student.ErrNotFound)
		}
	})
}

func Test_service_active_usage_blocks_class_removal(t *testing.T) {
	_, db, catalogSvc := setup(t)
	ctx := context.Background()
	orgRepo := dummydb.NewOrganizationRepository(db)
	catRepo := dummydb.NewCatalogRepository(db)
	studentRepo := dummydb.NewStudentRepository(db)

	org := testutil.CreateOrganization(t, orgRepo, "Mikumi Academy")
	class := testutil.CreateEntity(t, catRepo, catalog.KindClass, "Form 1", "f1", &org.ID)
	testutil.CreateStudent(t, studentRepo, org.ID, "Asha", "adm001", &class.ID, true)

	_, err := catalogSvc.RemoveOrDelete(ctx, class.ID, org.ID)
	var blocked *catalog.RemovalBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("RemoveOrDelete() error = %v, want *RemovalBlockedError", err)
	}
	if blocked.UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1", blocked.UsageCount)
	}
}
