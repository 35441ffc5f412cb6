package handler

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	userdomain "github.com/kefline/student-hub/internal/user/domain"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the "role" tag to gin's binding validator. Safe to call more than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("register validators: unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		registerErr = v.RegisterValidation("role", validateRole)
	})
	return registerErr
}

func validateRole(fl validator.FieldLevel) bool {
	return userdomain.Role(fl.Field().String()).Valid()
}

// validationMessage renders the first binding failure as a short client message.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "invalid email format"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "role":
		return "invalid role"
	default:
		return field + " is invalid"
	}
}
