package staff

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"
	RoleAdminBursar    = "admin:bursar"

	// Teacher
	RoleTeacher = "teacher:"

	// Support
	RoleSupport = "support:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal, RoleAdminBursar}
	TeacherRoles = []string{RoleTeacher}
	SupportRoles = []string{RoleSupport}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:     30,
		RoleAdminPrincipal: 29,
		RoleAdminBursar:    22,
		RoleAdmin:          21,

		// Teachers: 20 - 11
		RoleTeacher: 11,

		// Support: 10 - 1
		RoleSupport: 1,
	}

	Roles = []Role{
		{Name: "Support", Value: RoleSupport},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Bursar", Value: RoleAdminBursar},
		{Name: "Admin Principal", Value: RoleAdminPrincipal},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 6)
	all = append(all, AdminRoles...)
	all = append(all, TeacherRoles...)
	all = append(all, SupportRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Staff is a member of an organization's personnel. A nil OrganizationID
// marks platform staff (not bound to any tenant). DepartmentID references a
// catalog department and blocks that department's deletion while active.
type Staff struct {
	ID             int       `json:"id"`
	OrganizationID *int      `json:"organization_id,omitempty"`
	DepartmentID   *int      `json:"department_id,omitempty"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	IsActive       bool      `json:"is_active"`
	Roles          []string  `json:"roles"`
	PasswordHash   []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
	LastLogin      time.Time `json:"last_login"` // UTC
}

func (s *Staff) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *Staff) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

func (s *Staff) RoleStartsWith(prefix string) bool {
	for _, role := range s.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (s *Staff) IsAdmin() bool   { return s.RoleStartsWith(RoleAdmin) }
func (s *Staff) IsTeacher() bool { return s.RoleStartsWith(RoleTeacher) }

// IsPlatform reports whether the staff belongs to the platform itself rather
// than a tenant organization.
func (s *Staff) IsPlatform() bool { return s.OrganizationID == nil }

// NewStaff contains information needed to create a new Staff.
type NewStaff struct {
	Name           string   `json:"name" validate:"required"`
	Email          string   `json:"email" validate:"required,email"`
	OrganizationID *int     `json:"organization_id"`
	DepartmentID   *int     `json:"department_id"`
	Roles          []string `json:"roles" validate:"omitempty,allroles"`
	Password       string   `json:"password" validate:"required"`
}

func (ns *NewStaff) Validate(ctx context.Context, svc Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)

	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, ns.Email)
}

// UpdateStaff defines what information may be provided to modify an existing
// Staff. Zero values are left unchanged.
type UpdateStaff struct {
	Name     string   `json:"name"`
	Email    string   `json:"email" validate:"omitempty,email"`
	IsActive *bool    `json:"is_active"`
	Roles    []string `json:"roles" validate:"omitempty,allroles"`
	Password string   `json:"password"`
}

func (us *UpdateStaff) Validate(ctx context.Context, current Staff, svc Service) error {
	us.Name = core.CleanString(us.Name)
	us.Email = core.CleanString(us.Email, true /* lower */)

	if err := core.Validate.Struct(us); err != nil {
		return err
	}
	if us.Email != "" && us.Email != current.Email {
		return svc.CheckEmailUniqueness(ctx, us.Email, current)
	}
	return nil
}

// ResetStaffPassword confirms a password reset initiated via email.
type ResetStaffPassword struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rsp *ResetStaffPassword) Validate() error {
	return core.Validate.Struct(rsp)
}
