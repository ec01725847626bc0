package core

import (
	"fmt"

	"github.com/jo-hoe/goregister/internal/backend/database"
	"github.com/jo-hoe/goregister/internal/common"
)

const (
	ActionRegister = "register"
	ActionView     = "view"
	ActionEdit     = "edit"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
)

// RegistrationForm carries the submitted fields under their form names. The field order
// is the order in which missing fields are reported.
type RegistrationForm struct {
	Name      string `form:"name" validate:"required"`
	Dob       string `form:"dob" validate:"required,isodate"`
	Gender    string `form:"gender" validate:"required,oneof=male female other"`
	Email     string `form:"email" validate:"required,email"`
	Mobile    string `form:"mobile" validate:"required,mobile"`
	Address   string `form:"address" validate:"required"`
	State     string `form:"state" validate:"required,oneof=gujarat maharashtra delhi"`
	Education string `form:"education" validate:"required,oneof=highschool bachelor master phd"`
}

// FormFromRegistration pre-fills the edit form.
func FormFromRegistration(registration *database.Registration) RegistrationForm {
	return RegistrationForm{
		Name:      registration.FullName,
		Dob:       registration.DateOfBirth,
		Gender:    registration.Gender,
		Email:     registration.Email,
		Mobile:    registration.Mobile,
		Address:   registration.Address,
		State:     registration.State,
		Education: registration.Education,
	}
}

func (form RegistrationForm) toRegistration() *database.Registration {
	return &database.Registration{
		FullName:    form.Name,
		DateOfBirth: form.Dob,
		Gender:      form.Gender,
		Email:       form.Email,
		Mobile:      form.Mobile,
		Address:     form.Address,
		State:       form.State,
		Education:   form.Education,
	}
}

// Upload is a received file. A nil *Upload means no file was sent.
type Upload struct {
	Filename string
	Data     []byte
}

func violationMessage(violation *common.Violation) string {
	switch violation.Tag {
	case "required":
		return fmt.Sprintf("Field '%s' is required.", violation.Field)
	case "email":
		return "Invalid email format."
	case "mobile":
		return "Mobile number must be 10 digits."
	case "isodate":
		return fmt.Sprintf("Field '%s' must be a date in YYYY-MM-DD format.", violation.Field)
	default:
		return fmt.Sprintf("Invalid value for field '%s'.", violation.Field)
	}
}
