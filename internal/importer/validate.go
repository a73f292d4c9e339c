package importer

import (
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"invoice-reconciliation-service/pkg/errors"

	"github.com/Rhymond/go-money"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
			return IsKnownCurrency(fl.Field().String())
		})
	})
	return validate
}

// IsKnownCurrency reports whether code is an ISO 4217 currency
func IsKnownCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(strings.TrimSpace(code))) != nil
}

// Validate checks a request before anything is written
func Validate(req *Request) error {
	err := validatorInstance().Struct(req)

	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return toValidationError(fieldErrs[0])
	}
	if err != nil {
		return errors.ValidationError(errors.CodeInvalidFormat, "request", nil, err)
	}

	for i, tx := range req.Transactions {
		if tx.Amount.IsNegative() {
			return errors.ValidationError(errors.CodeInvalidAmount,
				fmt.Sprintf("transactions[%d].amount", i), tx.Amount.String(), nil)
		}
	}
	return nil
}

func toValidationError(fe validator.FieldError) error {
	field := strings.TrimPrefix(fe.Namespace(), "Request.")

	switch {
	case fe.Tag() == "required" || fe.Tag() == "min":
		return errors.ValidationError(errors.CodeMissingField, field, fe.Value(), nil)
	case fe.Tag() == "currency":
		return errors.ValidationError(errors.CodeInvalidCurrency, field, fe.Value(), nil)
	case fe.StructField() == "PostedAt":
		return errors.ValidationError(errors.CodeInvalidDate, field, fe.Value(), nil)
	default:
		return errors.ValidationError(errors.CodeInvalidFormat, field, fe.Value(), fmt.Errorf("failed %q validation", fe.Tag()))
	}
}
