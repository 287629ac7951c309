package validator_test

import (
	"testing"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/shop-simulator/pkg/validator"
)

type priced struct {
	Name  string          `validate:"required,alphanumspace"`
	Price decimal.Decimal `validate:"gt=0"`
}

func TestDefaultValidator(t *testing.T) {
	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	t.Run("Should accept a valid struct", func(t *testing.T) {
		require.NoError(t, v.Validate(priced{Name: "Product A", Price: decimal.RequireFromString("0.01")}))
	})

	t.Run("Should compare decimals numerically", func(t *testing.T) {
		err := v.Validate(priced{Name: "Product A", Price: decimal.Zero})
		require.Error(t, err)
		require.True(t, validator.IsValidationError(err))

		fieldErrs := err.(govalidator.ValidationErrors)
		require.Len(t, fieldErrs, 1)
		assert.Equal(t, "Price", fieldErrs[0].Field())
		assert.Equal(t, "must be greater than 0", validator.ValidationErrorMessage(fieldErrs[0]))
	})

	t.Run("Should reject punctuation in names", func(t *testing.T) {
		err := v.Validate(priced{Name: "Product-A", Price: decimal.NewFromInt(1)})
		require.Error(t, err)

		fieldErrs := err.(govalidator.ValidationErrors)
		assert.Equal(t, "must contain only alphanumeric characters and spaces", validator.ValidationErrorMessage(fieldErrs[0]))
	})
}
