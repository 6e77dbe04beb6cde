// Package validate holds client-side input checks performed before any
// network call. Every failure identifies the offending field so callers can
// surface it next to the right input.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	emailRx = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	otpRx   = regexp.MustCompile(`^\d{6}$`)
	zipRx   = regexp.MustCompile(`^\d{5,6}(-\d{4})?$`)
	phoneRx = regexp.MustCompile(`^\+?[\d\s\-()]{7,20}$`)
)

// Error reports a rejected input field. It is returned before any gateway
// interaction, so no local or remote state has changed when a caller sees it.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldError(field, msg string) error {
	return &Error{Field: field, Message: msg}
}

// Required checks that value is non-empty after trimming whitespace.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fieldError(field, "is required")
	}
	return nil
}

// Email checks the address against a standard pattern.
func Email(email string) error {
	if err := Required("email", email); err != nil {
		return err
	}
	if !emailRx.MatchString(email) {
		return fieldError("email", "is not a valid email address")
	}
	return nil
}

// Password enforces the account password policy: at least 8 characters with
// an upper-case letter, a lower-case letter, and a digit.
func Password(field, password string) error {
	if password == "" {
		return fieldError(field, "is required")
	}
	if utf8.RuneCountInString(password) < 8 {
		return fieldError(field, "must be at least 8 characters")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fieldError(field, "must contain an upper-case letter, a lower-case letter, and a digit")
	}
	return nil
}

// Name checks a person-name field: at least 2 runes.
func Name(field, value string) error {
	if err := Required(field, value); err != nil {
		return err
	}
	if utf8.RuneCountInString(strings.TrimSpace(value)) < 2 {
		return fieldError(field, "must be at least 2 characters")
	}
	return nil
}

// OTP checks that code is exactly 6 ASCII digits.
func OTP(code string) error {
	if !otpRx.MatchString(code) {
		return fieldError("code", "must be exactly 6 digits")
	}
	return nil
}

// Zip checks a 5–6 digit postal code with an optional +4 extension.
func Zip(zip string) error {
	if err := Required("zip_code", zip); err != nil {
		return err
	}
	if !zipRx.MatchString(zip) {
		return fieldError("zip_code", "is not a valid postal code")
	}
	return nil
}

// Phone checks a permissive international phone pattern.
func Phone(field, phone string) error {
	if err := Required(field, phone); err != nil {
		return err
	}
	if !phoneRx.MatchString(phone) {
		return fieldError(field, "is not a valid phone number")
	}
	return nil
}
