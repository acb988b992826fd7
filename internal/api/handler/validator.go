package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	return &echoValidator{v: validator.New()}
}

// Validate satisfies the echo.Validator interface.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return fmt.Errorf("%s", strings.Join(msgs, " "))
		}
		return err
	}
	return nil
}

var fieldLabels = map[string]string{
	"RUT":      "RUT",
	"Password": "Contraseña",
	"FullName": "Nombre Completo",
	"Role":     "Rol",
}

// fieldError converts a single ValidationError into a localized message.
func fieldError(fe validator.FieldError) string {
	field, ok := fieldLabels[fe.Field()]
	if !ok {
		field = strings.ToLower(fe.Field())
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Completa el campo %s.", field)
	case "min":
		return fmt.Sprintf("El campo %s debe tener al menos %s caracteres.", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("El campo %s debe ser uno de: %s.", field, fe.Param())
	default:
		return fmt.Sprintf("El campo %s no es válido.", field)
	}
}
