package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/trezcool/shule/core/staff"
	emailsvc "github.com/trezcool/shule/services/email"
	testutil "github.com/trezcool/shule/tests"
)

func Test_staffApi_login(t *testing.T) {
	env := setup(t)

	org := testutil.CreateOrganization(t, env.orgRepo, "Mikumi Academy")
	testutil.CreateStaff(t, env.staffRepo, "Jane", "jane@test.cd", "pwd", &org.ID, []string{staff.RoleTeacher}, true)
	testutil.CreateStaff(t, env.staffRepo, "Numb", "numb@test.cd", "pwd", &org.ID, nil, false)

	tests := []httpTest{
		{
			name: "Empty credentials", body: marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "Unknown email", body: marchallObj(t, map[string]string{"email": "lol@test.cd", "password": "pwd"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", body: marchallObj(t, map[string]string{"email": "jane@test.cd", "password": "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated account", body: marchallObj(t, map[string]string{"email": "numb@test.cd", "password": "pwd"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Login OK", body: marchallObj(t, map[string]string{"email": "Jane@Test.CD", "password": "pwd"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/staff/login", tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Fatalf("code = %v, want %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var resp struct {
					Token string `json:"token"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("json.Unmarshal() failed: %v", err)
				}
				if resp.Token == "" {
					t.Error("empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_staffApi_register(t *testing.T) {
	env := setup(t)

	org := testutil.CreateOrganization(t, env.orgRepo, "Mikumi Academy")
	admin := testutil.CreateStaff(t, env.staffRepo, "Admin", "admin@test.cd", "pwd", &org.ID, []string{staff.RoleAdminPrincipal}, true)
	teacher := testutil.CreateStaff(t, env.staffRepo, "Teacher", "teacher@test.cd", "pwd", &org.ID, []string{staff.RoleTeacher}, true)

	t.Run("Admin required", func(t *testing.T) {
		body := marchallObj(t, staff.NewStaff{Name: "New", Email: "new@test.cd", Password: "s3kuriTee!"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/staff/register", getToken(t, teacher), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("Organization forced to the caller's", func(t *testing.T) {
		body := marchallObj(t, staff.NewStaff{Name: "New", Email: "new@test.cd", Password: "s3kuriTee!", Roles: []string{staff.RoleTeacher}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/staff/register", getToken(t, admin), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var stf staff.Staff
		if err := json.Unmarshal(rec.Body.Bytes(), &stf); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		if stf.OrganizationID == nil || *stf.OrganizationID != org.ID {
			t.Error("new staff not bound to the caller's organization")
		}
	})

	t.Run("Duplicate email", func(t *testing.T) {
		body := marchallObj(t, staff.NewStaff{Name: "Dup", Email: "new@test.cd", Password: "s3kuriTee!"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/staff/register", getToken(t, admin), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v, want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("Role escalation rejected", func(t *testing.T) {
		body := marchallObj(t, staff.NewStaff{Name: "Boss", Email: "boss@test.cd", Password: "s3kuriTee!", Roles: []string{staff.RoleAdminOwner}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/staff/register", getToken(t, admin), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v, want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})
}

func Test_staffApi_detail(t *testing.T) {
	env := setup(t)

	org := testutil.CreateOrganization(t, env.orgRepo, "Mikumi Academy")
	other := testutil.CreateOrganization(t, env.orgRepo, "Selous High")

	admin := testutil.CreateStaff(t, env.staffRepo, "Admin", "admin@test.cd", "pwd", &org.ID, []string{staff.RoleAdmin}, true)
	jane := testutil.CreateStaff(t, env.staffRepo, "Jane", "jane@test.cd", "pwd", &org.ID, []string{staff.RoleTeacher}, true)
	outsider := testutil.CreateStaff(t, env.staffRepo, "Out", "out@test.cd", "pwd", &other.ID, []string{staff.RoleAdmin}, true)

	tests := []httpTest{
		{
			name: "Self", path: fmt.Sprintf("/v1/staff/%d", jane.ID), token: getToken(t, jane),
			wantCode: http.StatusOK, wantData: marchallObj(t, jane),
		},
		{
			name: "Admin of the same organization", path: fmt.Sprintf("/v1/staff/%d", jane.ID), token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, jane),
		},
		{
			name: "Non-admin cannot read others", path: fmt.Sprintf("/v1/staff/%d", admin.ID), token: getToken(t, jane),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Admin of another organization", path: fmt.Sprintf("/v1/staff/%d", jane.ID), token: getToken(t, outsider),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
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

func Test_staffApi_passwordReset(t *testing.T) {
	env := setup(t)

	org := testutil.CreateOrganization(t, env.orgRepo, "Mikumi Academy")
	jane := testutil.CreateStaff(t, env.staffRepo, "Jane", "jane@test.cd", "pwd", &org.ID, []string{staff.RoleTeacher}, true)

	emailsvc.SentMessages = emailsvc.SentMessages[:0]

	t.Run("Request always succeeds", func(t *testing.T) {
		for _, email := range []string{"jane@test.cd", "ghost@test.cd"} {
			body := marchallObj(t, map[string]string{"email": email})
			req, rec := newRequest(http.MethodPost, "/v1/staff/password-reset", body)
			env.app.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
			}
		}
		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("len(SentMessages) = %d, want 1 (known account only)", len(emailsvc.SentMessages))
		}
	})

	t.Run("Confirm resets the password", func(t *testing.T) {
		msg := emailsvc.SentMessages[0]
		uid, token := extractResetCreds(t, msg.TextContent)

		body := marchallObj(t, staff.ResetStaffPassword{
			UID:             uid,
			Token:           token,
			Password:        "n3wPassw0rd!",
			PasswordConfirm: "n3wPassw0rd!",
		})
		req, rec := newRequest(http.MethodPost, "/v1/staff/password-reset-confirm", body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		loginBody := marchallObj(t, map[string]string{"email": jane.Email, "password": "n3wPassw0rd!"})
		req, rec = newRequest(http.MethodPost, "/v1/staff/login", loginBody)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("login after reset: code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})
}

// extractResetCreds pulls the uid and token out of the reset link in the
// rendered email body.
func extractResetCreds(t *testing.T, content string) (uid, token string) {
	t.Helper()

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "/password-reset/"); i >= 0 {
			parts := strings.Split(line[i+len("/password-reset/"):], "/")
			if len(parts) >= 2 {
				return parts[0], parts[1]
			}
		}
	}
	t.Fatal("reset link not found in email body")
	return "", ""
}
