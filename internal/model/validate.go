package model

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("role", validateRole)
}

func validateRole(fl validator.FieldLevel) bool {
	r, ok := fl.Field().Interface().(Role)
	return ok && (r == RolePatient || r == RoleDoctor)
}

var tagMessages = map[string]string{
	"required":    "is required",
	"required_if": "is required for doctors",
	"email":       "must be a valid email",
	"role":        "must be patient or doctor",
	"gt":          "must be greater than %s",
	"min":         "must be at least %s",
	"max":         "must be at most %s",
}

// Validate checks request DTOs and returns an error whose text is the first
// violation, phrased for an end user.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	msg, ok := tagMessages[first.Tag()]
	if !ok {
		msg = "is invalid"
	}
	msg = strings.Replace(msg, "%s", first.Param(), 1)
	return errors.New(fieldName(first.Field()) + " " + msg)
}

func fieldName(f string) string {
	switch f {
	case "At":
		return "appointment date"
	case "DoctorID":
		return "doctor"
	case "DurationMinutes":
		return "duration"
	case "FirstName":
		return "first name"
	case "LastName":
		return "last name"
	case "LicenseNumber":
		return "license number"
	}
	return strings.ToLower(f)
}
