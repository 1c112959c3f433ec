// Package validation checks request DTOs with an explicitly constructed
// validator and reports failures as errs values.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/errs"
)

// Config selects the struct tag to read and extra tag aliases.
type Config struct {
	TagName string
	Aliases map[string]string
}

func DefaultConfig() Config {
	return Config{
		TagName: "validate",
		Aliases: map[string]string{
			"pwd": "min=8,max=128", // password length bounds; strength is a domain rule
		},
	}
}

// Validator is safe for concurrent use. Build one at startup and share it.
type Validator struct {
	v *validator.Validate
}

func New(cfg Config) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	if cfg.TagName != "" {
		v.SetTagName(cfg.TagName)
	}
	// Uses JSON tag names in errors.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	for alias, tags := range cfg.Aliases {
		v.RegisterAlias(alias, tags)
	}
	return &Validator{v: v}
}

// Struct validates s and returns an errs.List with one entry per failing
// field, or nil.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Internal("Request.ValidatorMisuse", err)
	}
	out := make(errs.List, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, errs.Validation(fe.Field(), "Request."+codeSuffix(fe.ActualTag()), formatFieldError(fe)))
	}
	return out
}

// BindError converts a request decoding failure into a validation error.
func BindError(err error) error {
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	switch {
	case errors.As(err, &ute):
		return errs.List{errs.Validation(ute.Field, "Request.InvalidType", "must be a "+ute.Type.String())}
	case errors.As(err, &se), errors.Is(err, io.ErrUnexpectedEOF):
		return errs.List{errs.Validation("payload", "Request.InvalidJSON", "invalid json")}
	case errors.Is(err, io.EOF):
		return errs.List{errs.Validation("payload", "Request.EmptyBody", "request body is required")}
	}
	return errs.List{errs.Validation("payload", "Request.Invalid", "invalid payload")}
}

// ToDetails converts validation errors into a map[field]message suitable for
// API error.details.
func ToDetails(err error) map[string]string {
	list := errs.Flatten(err)
	out := make(map[string]string, len(list))
	for _, e := range list {
		if e.Kind != errs.KindValidation {
			continue
		}
		field := e.Field
		if field == "" {
			field = "payload"
		}
		if _, seen := out[field]; !seen {
			out[field] = e.Message
		}
	}
	return out
}

func codeSuffix(tag string) string {
	parts := strings.Split(tag, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.ActualTag()
	param := fe.Param()

	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "gte":
		return "must be greater than or equal to " + param
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "nefield":
		return "must not be equal to " + param + " field"
	}
	if param != "" {
		return fmt.Sprintf("failed %s=%s", tag, param)
	}
	return "failed " + tag
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
