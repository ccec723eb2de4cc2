package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nacionmx/unified-bot/internal/errs"
)

// Struct validates command input and reports the first failure as a
// Spanish *errs.BotError. Fields should carry a `label` tag with the name
// the user sees, e.g. `label:"monto"`.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return errs.Wrap(errs.CodeInvalidInput, err, "")
	}

	fe := validationErrors[0]
	code := errs.CodeInvalidInput
	switch {
	case fe.Tag() == "nefield":
		code = errs.CodeSelfTarget
	case fe.StructField() == "Amount":
		code = errs.CodeInvalidAmount
	}

	return errs.Wrap(code, err, spanishMessage(strings.ToLower(fe.Field()), fe))
}

func spanishMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("El campo %s es obligatorio", field)
	case "gt":
		return fmt.Sprintf("El campo %s debe ser mayor que %s", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("El campo %s debe ser al menos %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("El campo %s no puede exceder %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("El campo %s debe ser uno de: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "snowflake":
		return fmt.Sprintf("El campo %s no es un usuario válido", field)
	case "url":
		return fmt.Sprintf("El campo %s debe ser un enlace válido", field)
	case "nefield":
		return errs.DefaultMessage(errs.CodeSelfTarget)
	default:
		return fmt.Sprintf("El campo %s no es válido", field)
	}
}
