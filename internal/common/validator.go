package common

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

type GenericEchoValidator struct {
	Validator *validator.Validate
}

func (gv *GenericEchoValidator) Validate(i interface{}) error {
	if gv.Validator == nil {
		gv.Validator = NewValidate()
	}
	if err := gv.Validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request: %v", err))
	}
	return nil
}

var mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

// ISODate is the layout accepted by the isodate tag.
const ISODate = "2006-01-02"

// NewValidate returns a validator that reports fields by their form tag and knows the
// mobile and isodate rules.
func NewValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return field.Name
		}
		return name
	})
	mustRegisterValidation(v, "mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	mustRegisterValidation(v, "isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(ISODate, fl.Field().String())
		return err == nil
	})
	return v
}

// mustRegisterValidation panics when a rule cannot be registered; forms using the tag
// would otherwise fail on every request.
func mustRegisterValidation(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("failed to register %q validation: %v", tag, err))
	}
}

// Violation is the one field error reported for a submitted form.
type Violation struct {
	Field string
	Tag   string
	Param string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("field %s failed %s validation", v.Field, v.Tag)
}

// rules not listed here rank after mobile
var tagPriority = map[string]int{
	"required": 0,
	"email":    1,
	"mobile":   2,
}

// FormValidator validates form structs and reports a single violation. All missing
// fields are reported before any email problem, and email before mobile, regardless of
// field order.
type FormValidator struct {
	validate *validator.Validate
}

func NewFormValidator() *FormValidator {
	return &FormValidator{validate: NewValidate()}
}

// Validate returns nil, a *Violation, or an error when s is not a struct.
func (fv *FormValidator) Validate(s any) error {
	err := fv.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	var first validator.FieldError
	firstRank := len(tagPriority) + 1
	for _, fieldError := range validationErrors {
		rank, ok := tagPriority[fieldError.Tag()]
		if !ok {
			rank = len(tagPriority)
		}
		if rank < firstRank {
			first, firstRank = fieldError, rank
		}
	}

	return &Violation{
		Field: first.Field(),
		Tag:   first.Tag(),
		Param: first.Param(),
	}
}
