// Package validation contains the logic for validating
// request data and command input.
//
// It uses the `validator` library to enforce rules (like
// required fields or snowflake ids) defined in struct tags
// and extracts validation errors into a format the client, or the
// Discord user, can understand.
package validation

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// snowflakeRegex matches Discord ids: 17 to 20 decimal digits.
var snowflakeRegex = regexp.MustCompile(`^[0-9]{17,20}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Field errors use the `label` tag when present, so users see "monto"
	// instead of "Amount".
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("label"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("snowflake", func(fl validator.FieldLevel) bool {
		return IsSnowflake(fl.Field().String())
	})
	return v
}

// Validator returns the shared validator instance with custom tags registered.
func Validator() *validator.Validate {
	return validate
}

// IsSnowflake checks whether s looks like a Discord id.
func IsSnowflake(s string) bool {
	return snowflakeRegex.MatchString(s)
}
