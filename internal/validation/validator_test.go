package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=10"`
	Password string `json:"password" validate:"required,min=8"`
	Status   string `json:"status,omitempty" validate:"omitempty,oneof=open closed"`
}

func TestValidatePasses(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(&signup{Email: "a@b.co", Name: "A", Password: "12345678"}))
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	v := New()
	err := v.Validate(&signup{Email: "nope", Password: "short", Status: "maybe"})
	require.Error(t, err)

	fields := FieldsOf(err)
	require.Len(t, fields, 4)
	assert.Equal(t, "email must be a valid email", fields["email"])
	assert.Equal(t, "name is required", fields["name"])
	assert.Equal(t, "password must be at least 8", fields["password"])
	assert.Equal(t, "status must be one of: open closed", fields["status"])

	// first field by name
	assert.Equal(t, "email must be a valid email", err.Error())
}

func TestFieldsOfOtherError(t *testing.T) {
	assert.Nil(t, FieldsOf(errors.New("x")))
}
