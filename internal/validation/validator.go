// Broadcastmap - Anonymous Geotagged Broadcast Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/broadcastmap

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	structValidator *validator.Validate
	structOnce      sync.Once
)

// Violation is one failed struct tag check. Field is the json name.
type Violation struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// RequestValidationError lists every failed tag check of a request body.
type RequestValidationError struct {
	Violations []Violation
}

func (e *RequestValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "invalid request body"
	}
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return strings.Join(msgs, "; ")
}

// GetValidator returns the shared validator. Besides the built-in tags it
// knows "nocontrol", which rejects strings containing control characters or
// bytes that are not UTF-8.
func GetValidator() *validator.Validate {
	structOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)
		if err := v.RegisterValidation("nocontrol", noControlChars); err != nil {
			panic(fmt.Sprintf("validation: register nocontrol: %v", err))
		}
		structValidator = v
	})
	return structValidator
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

func noControlChars(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return utf8.ValidString(s) && !strings.ContainsFunc(s, unicode.IsControl)
}

// ValidateStruct checks the validate tags of s and returns nil when all pass.
//
//	if verr := validation.ValidateStruct(&body); verr != nil {
//	    return verr
//	}
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{Violations: []Violation{{Message: err.Error()}}}
	}

	out := &RequestValidationError{Violations: make([]Violation, len(fieldErrs))}
	for i, fe := range fieldErrs {
		out.Violations[i] = Violation{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: describe(fe),
		}
	}
	return out
}

func describe(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "nocontrol":
		return field + " must be UTF-8 text without control characters"
	case "latitude":
		return field + " must be a valid latitude (-90 to 90)"
	case "longitude":
		return field + " must be a valid longitude (-180 to 180)"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
