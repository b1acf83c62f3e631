package validation

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// cepPattern accepts "80000000" and "80000-000".
var cepPattern = regexp.MustCompile(`^\d{5}-?\d{3}$`)

// Register installs custom rules on gin's binding validator. Safe to call
// more than once.
func Register() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("cep", validCEP)
}

func validCEP(fl validator.FieldLevel) bool {
	return cepPattern.MatchString(fl.Field().String())
}
