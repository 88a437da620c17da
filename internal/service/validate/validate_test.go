package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/taledynamic/internal/apperrors"
)

func TestStruct(t *testing.T) {
	type signUp struct {
		Email           string `json:"email" validate:"required,email"`
		Password        string `json:"password" validate:"required,min=8"`
		ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
		Name            string `json:"name" validate:"max=3"`
		ID              int64  `json:"id" validate:"gt=0"`
	}

	t.Run("valid", func(t *testing.T) {
		err := Struct(signUp{Email: "a@x.com", Password: "12345678", ConfirmPassword: "12345678", ID: 1})

		require.NoError(t, err)
	})

	t.Run("invalid fields use json names", func(t *testing.T) {
		err := Struct(signUp{Email: "not-email", Password: "123", ConfirmPassword: "321", Name: "long"})

		require.ErrorIs(t, err, apperrors.ErrBadRequest)
		var vErr *apperrors.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, map[string]string{
			"email":           "Invalid email address",
			"password":        "Value is too short (minimum 8)",
			"confirmPassword": "Value must match 'Password'",
			"name":            "Value is too long (maximum 3)",
			"id":              "Value must be greater than 0",
		}, vErr.Fields)
	})

	t.Run("not a struct", func(t *testing.T) {
		err := Struct("string")

		require.ErrorIs(t, err, apperrors.ErrBadRequest)
	})
}
