// Package validation turns domain-rule violations into structured,
// field-level errors that are returned as data, never panicked, so callers
// can redisplay the offending input.
//
// Format rules are declared as struct tags and checked by
// go-playground/validator; rules that need the database (email uniqueness)
// are appended by the services on top of the same FieldErrors value.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// emailRe requires a local part, an "@", and a domain with at least one
// dot-separated TLD. Stricter than the validator library's built-in "email"
// tag, which accepts TLD-less addresses.
var emailRe = regexp.MustCompile(`^[\w+\-.]+@[a-zA-Z\d\-.]+\.[a-zA-Z]+$`)

// FieldErrors maps a field name to the list of rule violations on it.
// It implements error so services can return it through a plain error value;
// callers unwrap it with errors.As.
type FieldErrors map[string][]string

// Add appends a message to the given field.
func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Any reports whether any violation was recorded.
func (e FieldErrors) Any() bool {
	return len(e) > 0
}

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("validation failed:")
	for _, f := range fields {
		for _, msg := range e[f] {
			b.WriteString(" ")
			b.WriteString(f)
			b.WriteString(" ")
			b.WriteString(msg)
			b.WriteString(";")
		}
	}
	return strings.TrimSuffix(b.String(), ";")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Field names in errors come from the form tag, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("email_format", func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	return v
}

// Struct validates the tagged struct and returns any violations as
// FieldErrors. A nil map means the value passed.
func Struct(s any) FieldErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// Invalid use of the validator (non-struct etc). Programmer error.
		panic(err)
	}

	fe := FieldErrors{}
	for _, v := range verrs {
		fe.Add(v.Field(), message(v))
	}
	return fe
}

func message(v validator.FieldError) string {
	switch v.Tag() {
	case "required":
		return "can't be blank"
	case "max":
		return fmt.Sprintf("is too long (maximum is %s characters)", v.Param())
	case "min":
		return fmt.Sprintf("is too short (minimum is %s characters)", v.Param())
	case "email_format":
		return "is invalid"
	case "eqfield":
		return "doesn't match confirmation"
	default:
		return "is invalid"
	}
}
