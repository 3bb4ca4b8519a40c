// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// The same rules run on both sides of the wire. The session client checks
// credentials and profile updates before spending a round trip, and the
// reference API re-checks them because it cannot trust any client.
package validate

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/clouds/internal/platform/apperr"
)

// # Account Rules

const (
	UsernameMinLen    = 3
	UsernameMaxLen    = 30
	PasswordMinLen    = 6
	PasswordMaxLen    = 72 // bcrypt ignores anything longer
	DisplayNameMaxLen = 50
	BioMaxLen         = 500
)

var (
	// usernameRegex allows letters, digits, underscores and dots.
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")

	emailFolder = cases.Fold()
)

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every request/operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails if the Unicode character count exceeds max.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// MinLen fails if the Unicode character count is below min.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.add(field, fmt.Sprintf("Minimum %d characters", min))
	}
	return v
}

// Email fails if the value is not a bare RFC 5322 address.
func (v *Validator) Email(field, value string) *Validator {
	address, err := mail.ParseAddress(value)
	if err != nil || address.Address != value {
		v.add(field, "Must be a valid email address")
	}
	return v
}

// Username fails unless the value is 3-30 letters, digits, underscores or dots.
func (v *Validator) Username(field, value string) *Validator {
	count := utf8.RuneCountInString(value)
	if count < UsernameMinLen || count > UsernameMaxLen || !usernameRegex.MatchString(value) {
		v.add(field, fmt.Sprintf("Must be %d-%d letters, digits, underscores or dots", UsernameMinLen, UsernameMaxLen))
	}
	return v
}

// URL fails if a non-empty value is not an absolute http(s) URL.
func (v *Validator) URL(field, value string) *Validator {
	if value == "" {
		return v
	}
	parsed, err := url.Parse(value)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		v.add(field, "Must be an http or https URL")
	}
	return v
}

// Custom adds a failure with a custom message if the condition is true.
//
// # Example
//
//	v.Custom("password", password != confirm, "Passwords do not match")
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns a [apperr.AppError] (VALIDATION_ERROR) if any rules failed,
// or nil if all rules passed.
//
// The top-level message repeats the first failure so callers that only show
// one line still say something useful.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	first := v.errs[0]
	return apperr.ValidationError(first.Field+": "+first.Message, v.errs...)
}

// HasErrors reports whether any validation rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// add appends a [apperr.FieldError] to the internal slice.
func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}

// # Normalization

// NormalizeEmail trims, applies NFKC and case-folds an email address so
// visually identical inputs map to one account.
func NormalizeEmail(email string) string {
	return emailFolder.String(norm.NFKC.String(strings.TrimSpace(email)))
}

// NormalizeText trims and applies NFKC to free-form user text.
func NormalizeText(value string) string {
	return norm.NFKC.String(strings.TrimSpace(value))
}
