package catalog

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	catalogKindTag  = "catalogkind"
	catalogKindText = "invalid catalog kind"

	entryCodeTag   = "entrycode"
	entryCodeText  = "only letters, digits, hyphens and underscores are allowed"
	entryCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)
)

func init() {
	_ = core.Validate.RegisterValidation(catalogKindTag, catalogKindValidation)
	core.RegisterCustomTranslation(catalogKindTag, catalogKindText)

	_ = core.Validate.RegisterValidation(entryCodeTag, entryCodeValidation)
	core.RegisterCustomTranslation(entryCodeTag, entryCodeText)
}

// catalogKindValidation checks that the provided kind is a known Kind.
func catalogKindValidation(fl validator.FieldLevel) bool {
	return Kind(fl.Field().String()).Valid()
}

func entryCodeValidation(fl validator.FieldLevel) bool {
	return entryCodeRegex.MatchString(fl.Field().String())
}
