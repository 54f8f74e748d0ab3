package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Amount  decimal.Decimal `validate:"gt=0"`
	Urgency string          `validate:"required,urgency"`
	Role    string          `validate:"selfrole"`
}

func TestInstall(t *testing.T) {
	v := validator.New()
	Install(v)

	ok := sample{Amount: decimal.RequireFromString("10.50"), Urgency: "high", Role: "tenant"}
	assert.NoError(t, v.Struct(ok))

	zero := ok
	zero.Amount = decimal.Zero
	assert.Error(t, v.Struct(zero))

	badUrgency := ok
	badUrgency.Urgency = "whenever"
	assert.Error(t, v.Struct(badUrgency))

	admin := ok
	admin.Role = "admin"
	assert.Error(t, v.Struct(admin))
}
