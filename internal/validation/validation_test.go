package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	DoctorName string  `validate:"required"`
	Email      string  `validate:"omitempty,email"`
	Password   string  `validate:"min=8"`
	Value      float64 `validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{DoctorName: "Dr. Who", Password: "12345678", Value: 1}))

	err := Struct(sample{Email: "nope", Password: "short"})
	assert.EqualError(t, err,
		"doctor_name is required; email must be a valid email address; password must be at least 8 characters; value must be greater than 0")
}

func TestToSnake(t *testing.T) {
	assert.Equal(t, "doctor_name", toSnake("DoctorName"))
	assert.Equal(t, "value1", toSnake("Value1"))
	assert.Equal(t, "id", toSnake("Id"))
}

func TestIsInvalid(t *testing.T) {
	err := Struct(sample{})
	assert.True(t, IsInvalid(err))

	sentinel := Invalid("value1 must be greater than 0")
	assert.True(t, IsInvalid(fmt.Errorf("log vital: %w", sentinel)))
	assert.False(t, IsInvalid(errors.New("boom")))
	assert.False(t, IsInvalid(nil))
}
