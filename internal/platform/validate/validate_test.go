// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/clouds/internal/platform/apperr"
	"github.com/taibuivan/clouds/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "name", "Clouds", false},
		{"empty_string", "name", "", true},
		{"whitespace_only", "name", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
				assert.ErrorIs(t, err, apperr.ErrValidation)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Email checks the email format validation rule.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "demo@clouds.app", true},
		{"invalid_format", "invalid-email", false},
		{"missing_domain", "test@", false},
		{"display_name_form", "Demo <demo@clouds.app>", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Email("email", tt.email)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_Username checks length and character class rules.
*/
func TestValidator_Username(t *testing.T) {
	tests := []struct {
		username string
		isValid  bool
	}{
		{"demo", true},
		{"john.doe_42", true},
		{"ab", false},
		{"has space", false},
		{"this_username_is_definitely_too_long", false},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			v := &validate.Validator{}
			v.Username("username", tt.username)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

func TestValidator_URL(t *testing.T) {
	v := &validate.Validator{}
	v.URL("avatar", "").URL("avatar", "https://cdn.clouds.app/a.png")
	assert.False(t, v.HasErrors())

	v.URL("avatar", "javascript:alert(1)").URL("cover", "/relative.png")
	assert.Len(t, apperr.As(v.Err()).Details, 2)
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("username", "demo").
		MinLen("password", "password", validate.PasswordMinLen).
		MaxLen("displayName", "Demo User", validate.DisplayNameMaxLen).
		Email("email", "demo@clouds.app").
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("username", "").       // Fails
		MinLen("password", "abc", 6).   // Fails
		Email("email", "not-an-email"). // Fails
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	assert.Len(t, ae.Details, 3)
	assert.Equal(t, "username: This field is required", ae.Message)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "demo@clouds.app", validate.NormalizeEmail("  Demo@Clouds.APP "))
	// Fullwidth characters fold to ASCII under NFKC.
	assert.Equal(t, "demo@clouds.app", validate.NormalizeEmail("ｄｅｍｏ@clouds.app"))
}
