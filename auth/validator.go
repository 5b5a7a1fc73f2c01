package auth

import (
	"unicode"

	"github.com/go-playground/validator/v10"

	"chat-shell/errors"
)

var validate = validator.New()

// RegistrationRequest carries the fields checked before an account row is
// created. Live chat identities stay unconstrained (any string binds); only
// persisted password accounts get validated.
type RegistrationRequest struct {
	Username string `validate:"required,min=2,max=32,printascii,excludesall= "`
	Password string `validate:"required,min=12,max=72"`
}

func ValidateRegistration(req RegistrationRequest) error {
	if err := validate.StructPartial(req, "Username"); err != nil {
		return errors.ErrInvalidUsername
	}
	if err := validate.StructPartial(req, "Password"); err != nil {
		return errors.ErrInvalidPassword
	}
	if !isPasswordComplex(req.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}
