// Package validation registers the custom binding rules used by request structs.
package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/utleieskade/backend/internal/models"
)

var once sync.Once

// Register installs the rules on gin's validator. Safe to call more than once.
func Register() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		Install(v)
	})
}

// Install adds the rules to v.
func Install(v *validator.Validate) {
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Decimals validate as floats so gt/gte/lte work on money fields.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("urgency", func(fl validator.FieldLevel) bool {
		return models.CaseUrgency(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("casestatus", func(fl validator.FieldLevel) bool {
		return models.CaseStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("selfrole", func(fl validator.FieldLevel) bool {
		role := models.UserRole(fl.Field().String())
		return role == models.RoleTenant || role == models.RoleLandlord
	})
	_ = v.RegisterValidation("staffrole", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsStaff()
	})
}
