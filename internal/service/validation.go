package service

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	apperrors "writehub/internal/errors"
)

// Client-facing validation messages.
const (
	MsgNameTooShort      = "Name must be at least 2 characters"
	MsgInvalidEmail      = "Please provide a valid email"
	MsgPasswordTooShort  = "Password must be at least 6 characters"
	MsgMissingCredential = "Please provide email and password"
	MsgMissingFields     = "Missing fields"
	MsgMissingImage      = "No image file uploaded"
	MsgNotAnImage        = "Uploaded file must be an image"
	MsgInvalidStatus     = "Status must be one of active, inactive, draft"
	MsgEmptyTitle        = "Title cannot be empty"
	MsgEmptyContent      = "Content cannot be empty"
)

const (
	minNameLength     = 2
	minPasswordLength = 6
)

var validate = validator.New()

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(name string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) < minNameLength {
		return apperrors.NewValidationError(MsgNameTooShort)
	}
	return nil
}

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return apperrors.NewValidationError(MsgInvalidEmail)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError(MsgPasswordTooShort)
	}
	return nil
}
