package staff

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/shule/core"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your name or email"
)

func init() {
	// register validators
	_ = core.Validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(allRolesTag, allRolesText)

	core.Validate.RegisterStructValidation(staffStructValidation, NewStaff{})
	core.Validate.RegisterStructValidation(staffStructValidation, UpdateStaff{})
	core.Validate.RegisterStructValidation(staffStructValidation, ResetStaffPassword{})
	core.RegisterCustomTranslation(pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(pwdAttrSimTag, pwdAttrSimText)
}

// Custom Validators

// allRolesValidation checks that provided staff roles are all in AllRoles
func allRolesValidation(fl validator.FieldLevel) bool {
	if roles, ok := fl.Field().Interface().([]string); ok {
		sort.Strings(AllRoles)
		for _, role := range roles {
			if idx := sort.SearchStrings(AllRoles, role); idx < len(AllRoles) {
				if match := AllRoles[idx]; role != match {
					return false
				}
			} else {
				return false
			}
		}
		return true
	}
	return false
}

// staffStructValidation does struct level validation on staff input structs.
func staffStructValidation(sl validator.StructLevel) {
	switch data := sl.Current().Interface().(type) {
	case NewStaff:
		validatePassword(data.Password, data.Name, data.Email, sl)
	case UpdateStaff:
		if data.Password != "" {
			validatePassword(data.Password, data.Name, data.Email, sl)
		}
	case ResetStaffPassword:
		validatePassword(data.Password, "", "", sl)
	}
}

// validatePassword applies the password policy:
// - min length
// - no whitespace
// - not entirely numeric
// - not too similar to the staff's name or email
func validatePassword(pass, name, email string, sl validator.StructLevel) {
	if len(pass) < pwdMinLen {
		sl.ReportError(pass, "password", "Password", pwdMinLenTag, "")
	}
	if strings.IndexFunc(pass, unicode.IsSpace) >= 0 {
		sl.ReportError(pass, "password", "Password", pwdNoSpaceTag, "")
	}
	if isAllNumeric(pass) {
		sl.ReportError(pass, "password", "Password", pwdNotAllNumTag, "")
	}
	for _, attr := range []string{name, email} {
		if attr == "" {
			continue
		}
		if similarity(strings.ToLower(pass), strings.ToLower(attr)) > pwdMaxSim {
			sl.ReportError(pass, "password", "Password", pwdAttrSimTag, "")
			break
		}
	}
}

func isAllNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// similarity computes a quick ratio of how alike two strings are.
func similarity(pass, staffAttr string) float64 {
	return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(staffAttr, "")).QuickRatio()
}
