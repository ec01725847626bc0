package common

import (
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

type testForm struct {
	Name   string `form:"name" validate:"required"`
	Dob    string `form:"dob" validate:"required,isodate"`
	Email  string `form:"email" validate:"required,email"`
	Mobile string `form:"mobile" validate:"required,mobile"`
	State  string `form:"state" validate:"required,oneof=gujarat delhi"`
}

func validTestForm() testForm {
	return testForm{
		Name:   "Jane",
		Dob:    "1990-01-31",
		Email:  "jane@example.com",
		Mobile: "0123456789",
		State:  "delhi",
	}
}

func TestFormValidator_Valid(t *testing.T) {
	if err := NewFormValidator().Validate(validTestForm()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestFormValidator_Priority(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(f *testForm)
		wantField string
		wantTag   string
	}{
		{"missing name", func(f *testForm) { f.Name = "" }, "name", "required"},
		{"bad email", func(f *testForm) { f.Email = "not-an-email" }, "email", "email"},
		{"bad mobile", func(f *testForm) { f.Mobile = "12345" }, "mobile", "mobile"},
		{"mobile with letters", func(f *testForm) { f.Mobile = "12345abcde" }, "mobile", "mobile"},
		{"bad date", func(f *testForm) { f.Dob = "31/01/1990" }, "dob", "isodate"},
		{"bad enum", func(f *testForm) { f.State = "goa" }, "state", "oneof"},
		{"required beats email", func(f *testForm) { f.Email = "bad"; f.State = "" }, "state", "required"},
		{"email beats mobile", func(f *testForm) { f.Mobile = "1"; f.Email = "bad" }, "email", "email"},
		{"mobile beats date", func(f *testForm) { f.Dob = "x"; f.Mobile = "1" }, "mobile", "mobile"},
		{"first missing field wins", func(f *testForm) { f.Email = ""; f.Name = "" }, "name", "required"},
	}

	v := NewFormValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validTestForm()
			tt.mutate(&form)

			err := v.Validate(form)
			var violation *Violation
			if !errors.As(err, &violation) {
				t.Fatalf("expected *Violation, got %v", err)
			}
			if violation.Field != tt.wantField || violation.Tag != tt.wantTag {
				t.Fatalf("expected %s/%s, got %s/%s", tt.wantField, tt.wantTag, violation.Field, violation.Tag)
			}
		})
	}
}

func TestFormValidator_NotAStruct(t *testing.T) {
	err := NewFormValidator().Validate("text")
	if err == nil {
		t.Fatalf("expected error for non-struct input")
	}
	var violation *Violation
	if errors.As(err, &violation) {
		t.Fatalf("expected a non-violation error, got %v", violation)
	}
}

type idQuery struct {
	ID int64 `query:"id" validate:"required,min=1"`
}

func TestGenericEchoValidator(t *testing.T) {
	gv := &GenericEchoValidator{}

	if err := gv.Validate(idQuery{ID: 3}); err != nil {
		t.Fatalf("expected valid id, got %v", err)
	}

	err := gv.Validate(idQuery{ID: 0})
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", httpErr.Code)
	}
}

func TestMustRegisterValidation_PanicsOnInvalidTag(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for empty tag")
		}
	}()
	mustRegisterValidation(NewValidate(), "", func(validator.FieldLevel) bool { return true })
}

func TestNewValidate_RegistersCustomRules(t *testing.T) {
	v := NewValidate()
	if err := v.Var("0123456789", "mobile"); err != nil {
		t.Fatalf("expected valid mobile, got %v", err)
	}
	if err := v.Var("2024-02-30", "isodate"); err == nil {
		t.Fatalf("expected invalid date to be rejected")
	}
}
