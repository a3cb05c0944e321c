package validation

import (
	"github.com/go-playground/validator/v10"

	"socialprobe/pkg/utils"
)

// ValidateHandle accepts anything that normalizes to a valid handle, so
// "@NatGeo" and profile URLs pass
func ValidateHandle(fl validator.FieldLevel) bool {
	return utils.IsValidHandle(utils.NormalizeHandle(fl.Field().String()))
}

// ValidateProviderID rejects provider ids with whitespace or control characters
func ValidateProviderID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		if r <= ' ' || r == 0x7f {
			return false
		}
	}
	return true
}

// RegisterProfileValidators registers the profile request validators
func RegisterProfileValidators(v *validator.Validate) {
	v.RegisterValidation("handle", ValidateHandle)
	v.RegisterValidation("provider_id", ValidateProviderID)
}
