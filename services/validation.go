// ABOUTME: Input validation for login, email validation and password recovery forms
// ABOUTME: Rejects malformed input before any request reaches the accreditation API

package services

import (
	"fmt"
	"regexp"
	"strings"
)

// dniPattern matches a national identity number: 7 or 8 digits
var dniPattern = regexp.MustCompile(`^[0-9]{7,8}$`)

// emailPattern is deliberately loose: something@something.tld
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 6

const (
	msgFieldsRequired   = "Por favor complete todos los campos"
	msgInvalidDNI       = "El DNI debe tener 7 u 8 dígitos"
	msgInvalidEmail     = "Por favor ingrese un email válido"
	msgPasswordTooShort = "La contraseña debe tener al menos 6 caracteres"
	msgPasswordMismatch = "Las contraseñas no coinciden"
)

// ValidationError carries the message shown to the user. Value is empty for
// secret fields.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, sanitizeForLog(e.Value), e.Message)
}

// sanitizeForLog removes control characters from strings to prevent log injection
// when including user input in error messages
func sanitizeForLog(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1 // Remove control characters
		}
		return r
	}, s)
}

// ValidateLogin checks the login form.
func ValidateLogin(dni, password string) error {
	if dni == "" || password == "" {
		return &ValidationError{Field: "login", Message: msgFieldsRequired}
	}
	return validateDNI(dni)
}

// ValidateEmailForm checks the first-time activation form. confirm is only
// compared when the client sent one.
func ValidateEmailForm(dni, email, password, confirm string) error {
	if dni == "" || email == "" || password == "" {
		return &ValidationError{Field: "validate-email", Message: msgFieldsRequired}
	}
	if err := validateDNI(dni); err != nil {
		return err
	}
	if err := ValidateEmailAddress(email); err != nil {
		return err
	}
	if len([]rune(password)) < minPasswordLength {
		return &ValidationError{Field: "password", Message: msgPasswordTooShort}
	}
	if confirm != "" && confirm != password {
		return &ValidationError{Field: "confirm_password", Message: msgPasswordMismatch}
	}
	return nil
}

// ValidateEmailAddress checks a single email field.
func ValidateEmailAddress(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Message: msgFieldsRequired}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Value: email, Message: msgInvalidEmail}
	}
	return nil
}

func validateDNI(dni string) error {
	if !dniPattern.MatchString(dni) {
		return &ValidationError{Field: "dni", Value: dni, Message: msgInvalidDNI}
	}
	return nil
}
