package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/trezcool/shule/core/catalog"
	"github.com/trezcool/shule/core/staff"
	testutil "github.com/trezcool/shule/tests"
)

func Test_catalogApi_list(t *testing.T) {
	env := setup(t)

	org := testutil.CreateOrganization(t, env.orgRepo, "Mikumi Academy")
	other := testutil.CreateOrganization(t, env.orgRepo, "Selous High")

	dept := testutil.CreateEntity(t, env.catalogRepo, catalog.KindDepartment, "Sciences", "", &org.ID)
	foreign := testutil.CreateEntity(t, env.catalogRepo, catalog.KindDepartment, "Arts", "", &other.ID)
	global := testutil.CreateEntity(t, env.catalogRepo, catalog.KindSubject, "Mathematics", "math", nil)
	if err := env.catalogSvc.Enable(context.Background(), global.ID, org.ID); err != nil {
		t.Fatalf("Enable() failed: %v", err)
	}

	teacher := testutil.CreateStaff(t, env.staffRepo, "Teacher", "teacher@test.cd", "pwd", &org.ID, []string{staff.RoleTeacher}, true)
	platform := testutil.CreateStaff(t, env.staffRepo, "Root", "root@test.cd", "pwd", nil, []string{staff.RoleAdmin}, true)

	tests := []httpTest{
		{
			name: "Auth required", path: "/v1/departments",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Tenant sees own and enabled of its kind", path: "/v1/departments", token: getToken(t, teacher),
			wantCode: http.StatusOK, wantData: marchallList(t, dept),
		},
		{
			name: "Enabled global entry listed under its kind", path: "/v1/subjects", token: getToken(t, teacher),
			wantCode: http.StatusOK, wantData: marchallList(t, global),
		},
		{
			name: "Platform staff must name an organization", path: "/v1/departments", token: getToken(t, platform),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"organization_id": "required"}),
		},
		{
			name: "Platform staff lists on behalf", path: fmt.Sprintf("/v1/departments?organization_id=%d", other.ID),
			token:    getToken(t, platform),
			wantCode: http.StatusOK, wantData: marchallList(t, foreign),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_catalogApi_create(t *testing.T) {
	env := setup(t)

	org := testutil.CreateOrganization(t, env.orgRepo, "Mikumi Academy")
	admin := testutil.CreateStaff(t, env.staffRepo, "Admin", "admin@test.cd", "pwd", &org.ID, []string{staff.RoleAdmin}, true)
	teacher := testutil.CreateStaff(t, env.staffRepo, "Teacher", "teacher@test.cd", "pwd", &org.ID, []string{staff.RoleTeacher}, true)
	platform := testutil.CreateStaff(t, env.staffRepo, "Root", "root@test.cd", "pwd", nil, []string{staff.RoleAdmin}, true)

	t.Run("Admin required", func(t *testing.T) {
		body := marchallObj(t, catalog.NewEntity{Name: "Sciences"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/departments", getToken(t, teacher), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("Tenant admin creates a private entry", func(t *testing.T) {
		body := marchallObj(t, catalog.NewEntity{Name: "Sciences"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/departments", getToken(t, admin), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var ent catalog.Entity
		if err := json.Unmarshal(rec.Body.Bytes(), &ent); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if !ent.IsPrivate || ent.OwnerOrganizationID == nil || *ent.OwnerOrganizationID != org.ID {
			t.Error("tenant-created entry must be private and owned by the caller's organization")
		}
		if ent.Kind != catalog.KindDepartment {
			t.Errorf("Kind = %v, want %v (from path)", ent.Kind, catalog.KindDepartment)
		}
	})

	t.Run("Duplicate name in the same scope", func(t *testing.T) {
		body := marchallObj(t, catalog.NewEntity{Name: " sciences "})
		req, rec := newAuthRequest(http.MethodPost, "/v1/departments", getToken(t, admin), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("code = %v, want %v; body %s", rec.Code, http.StatusConflict, rec.Body.String())
		}
	})

	t.Run("Platform admin creates a global entry", func(t *testing.T) {
		body := marchallObj(t, catalog.NewEntity{Name: "Tuition", Code: "tui"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/fee-types", getToken(t, platform), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var ent catalog.Entity
		if err := json.Unmarshal(rec.Body.Bytes(), &ent); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if ent.IsPrivate || ent.OwnerOrganizationID != nil {
			t.Error("platform-created entry without an owner must be global")
		}
	})
}

func Test_catalogApi_retrieve(t *testing.T) {
	env := setup(t)

	org := testutil.CreateOrganization(t, env.orgRepo, "Mikumi Academy")
	other := testutil.CreateOrganization(t, env.orgRepo, "Selous High")

	dept := testutil.CreateEntity(t, env.catalogRepo, catalog.KindDepartment, "Sciences", "", &org.ID)

	teacher := testutil.CreateStaff(t, env.staffRepo, "Teacher", "teacher@test.cd", "pwd", &org.ID, []string{staff.RoleTeacher}, true)
	outsider := testutil.CreateStaff(t, env.staffRepo, "Out", "out@test.cd", "pwd", &other.ID, []string{staff.RoleTeacher}, true)

	tests := []httpTest{
		{
			name: "Owner staff", path: fmt.Sprintf("/v1/departments/%d", dept.ID), token: getToken(t, teacher),
			wantCode: http.StatusOK, wantData: marchallObj(t, dept),
		},
		{
			name: "Private entries hidden from other organizations", path: fmt.Sprintf("/v1/departments/%d", dept.ID),
			token:    getToken(t, outsider),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Wrong kind path", path: fmt.Sprintf("/v1/subjects/%d", dept.ID), token: getToken(t, teacher),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Unknown id", path: "/v1/departments/999", token: getToken(t, teacher),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: catalog.ErrNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_catalogApi_removal(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	org := testutil.CreateOrganization(t, env.orgRepo, "Mikumi Academy")
	other := testutil.CreateOrganization(t, env.orgRepo, "Selous High")

	admin := testutil.CreateStaff(t, env.staffRepo, "Admin", "admin@test.cd", "pwd", &org.ID, []string{staff.RoleAdmin}, true)
	otherAdmin := testutil.CreateStaff(t, env.staffRepo, "Other", "other@test.cd", "pwd", &other.ID, []string{staff.RoleAdmin}, true)

	dept := testutil.CreateEntity(t, env.catalogRepo, catalog.KindDepartment, "Languages", "", &org.ID)
	stf := testutil.CreateStaff(t, env.staffRepo, "Jane", "jane@test.cd", "pwd", &org.ID, []string{staff.RoleTeacher}, true)
	if _, err := env.staffRepo.SetStaffDepartment(ctx, stf.ID, &dept.ID); err != nil {
		t.Fatalf("SetStaffDepartment() failed: %v", err)
	}

	global := testutil.CreateEntity(t, env.catalogRepo, catalog.KindSubject, "History", "his", nil)
	if err := env.catalogSvc.Enable(ctx, global.ID, org.ID); err != nil {
		t.Fatalf("Enable() failed: %v", err)
	}

	t.Run("Removal plan reports blocked deletion", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/departments/%d/removal-plan", dept.ID), getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		var plan catalog.RemovalPlan
		if err := json.Unmarshal(rec.Body.Bytes(), &plan); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if plan.RemovalType != catalog.RemovalDelete || plan.CanRemove || plan.UsageCount != 1 {
			t.Errorf("plan = %+v, want blocked delete with usage 1", plan)
		}
	})

	t.Run("Blocked deletion returns the usage count", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/departments/%d", dept.ID), getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}

		var payload struct {
			Error      string `json:"error"`
			UsageCount int    `json:"usage_count"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if payload.UsageCount != 1 || payload.Error == "" {
			t.Errorf("payload = %+v, want error text and usage_count 1", payload)
		}
	})

	t.Run("Foreign private entry", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/departments/%d", dept.ID), getToken(t, otherAdmin))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v, want %v; body %s", rec.Code, http.StatusForbidden, rec.Body.String())
		}
	})

	t.Run("Unreferenced private entry is deleted", func(t *testing.T) {
		if _, err := env.staffRepo.SetStaffDepartment(ctx, stf.ID, nil); err != nil {
			t.Fatalf("SetStaffDepartment() failed: %v", err)
		}

		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/departments/%d", dept.ID), getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		var res catalog.RemovalResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if res.Action != catalog.ActionDeleted {
			t.Errorf("Action = %q, want %q", res.Action, catalog.ActionDeleted)
		}
	})

	t.Run("Global entry is only removed from the enabled set", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/subjects/%d", global.ID), getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		var res catalog.RemovalResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if res.Action != catalog.ActionRemoved {
			t.Errorf("Action = %q, want %q", res.Action, catalog.ActionRemoved)
		}

		ent, err := env.catalogRepo.GetEntity(ctx, global.ID)
		if err != nil {
			t.Fatalf("GetEntity() failed: %v", err)
		}
		if ent.IsDeleted {
			t.Error("global entry must survive a tenant removal")
		}
	})
}

func Test_catalogApi_restore_enable(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	org := testutil.CreateOrganization(t, env.orgRepo, "Mikumi Academy")
	admin := testutil.CreateStaff(t, env.staffRepo, "Admin", "admin@test.cd", "pwd", &org.ID, []string{staff.RoleAdmin}, true)

	class := testutil.CreateEntity(t, env.catalogRepo, catalog.KindClass, "Form 2", "f2", &org.ID)
	if _, err := env.catalogSvc.RemoveOrDelete(ctx, class.ID, org.ID); err != nil {
		t.Fatalf("RemoveOrDelete() failed: %v", err)
	}

	t.Run("Restore", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/classes/%d/restore", class.ID), getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		var ent catalog.Entity
		if err := json.Unmarshal(rec.Body.Bytes(), &ent); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if ent.IsDeleted {
			t.Error("restored entry still marked deleted")
		}
	})

	t.Run("Enable is idempotent", func(t *testing.T) {
		global := testutil.CreateEntity(t, env.catalogRepo, catalog.KindClass, "Form 3", "f3", nil)
		for i := 0; i < 2; i++ {
			req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/classes/%d/enable", global.ID), getToken(t, admin))
			env.app.ServeHTTP(rec, req)
			if rec.Code != http.StatusNoContent {
				t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusNoContent, rec.Body.String())
			}
		}

		enabled, err := env.catalogRepo.EntityEnabled(ctx, org.ID, global.ID)
		if err != nil {
			t.Fatalf("EntityEnabled() failed: %v", err)
		}
		if !enabled {
			t.Error("entry not enabled")
		}
	})
}
