// Package validator configures go-playground validators with the custom tags
// used across the storefront.
package validator

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// validations are the custom tags registered with every validator.
var validations = map[string]validator.Func{
	"password": password,
	"currency": currency,
}

// New creates a new validator instance. Field errors are reported with the
// JSON name of the field when it has one.
func New() *validator.Validate {
	valid := validator.New()
	for tag, fn := range validations {
		if err := valid.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validator initialization; tag: %s, error: %s", tag, err))
		}
	}
	valid.RegisterTagNameFunc(jsonName)

	return valid
}

func jsonName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}

// password accepts 8 to 64 printable ASCII characters containing at least
// one lower-case letter, one upper-case letter and one digit.
func password(fl validator.FieldLevel) bool {
	const (
		minLength = 8
		maxLength = 64
	)
	val, ok := fl.Field().Interface().(string)
	if !ok || len(val) < minLength || len(val) > maxLength {
		return false
	}

	var lower, upper, digit bool
	for _, r := range val {
		if r < ' ' || r > '~' {
			return false
		}
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

// currencies are the ISO 4217 codes accepted by the payment gateway.
var currencies = map[string]struct{}{
	"usd": {}, "eur": {}, "gbp": {}, "cad": {}, "aud": {}, "ngn": {}, "ghs": {}, "zar": {}, "kes": {},
}

// currency accepts lower-case codes, e.g. "usd".
func currency(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, ok = currencies[val]
	return ok
}
