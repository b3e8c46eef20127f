package onboarding

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"ume-client/models"

	"github.com/go-playground/validator/v10"
)

// FormErrors maps a form field name to a user-visible message. The empty key
// holds a form-level message shown as a blocking alert.
type FormErrors map[string]string

func (e FormErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			parts = append(parts, e[k])
			continue
		}
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// Alert returns the form-level message, if any.
func (e FormErrors) Alert() string {
	return e[""]
}

func (e FormErrors) add(field, message string) {
	if existing, ok := e[field]; ok && existing != "" {
		e[field] = existing + "; " + message
		return
	}
	e[field] = message
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validations := map[string]validator.Func{
		"gender":   validGender,
		"bodytype": validBodyType,
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register validator %q: %v", tag, err))
		}
	}
	return v
}

func validGender(fl validator.FieldLevel) bool {
	switch models.Gender(fl.Field().String()) {
	case models.GenderMale, models.GenderFemale:
		return true
	default:
		return false
	}
}

func validBodyType(fl validator.FieldLevel) bool {
	switch models.BodyType(fl.Field().String()) {
	case models.BodyTypeAverage, models.BodyTypeSlim, models.BodyTypeAthletic, models.BodyTypeFull, models.BodyTypeMuscular:
		return true
	default:
		return false
	}
}

// check validates s and returns its failures keyed by json field name.
func check(s interface{}) FormErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	errs := FormErrors{}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errs[""] = err.Error()
		return errs
	}
	for _, fe := range validationErrors {
		errs.add(fe.Field(), messageFor(fe))
	}
	return errs
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Enter a valid e-mail address"
	case "datetime":
		return "Use the YYYY-MM-DD format"
	case "number", "numeric":
		return "Must be a number"
	case "gt":
		return "Must be greater than " + fe.Param()
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	case "eqfield":
		return "Passwords do not match"
	case "gender":
		return "Choose male or female"
	case "bodytype":
		return "Choose average, slim, athletic, full or muscular"
	default:
		return "Invalid value"
	}
}

// backendFieldNames maps snake_case backend field names to form field names.
var backendFieldNames = map[string]string{
	"email":      "email",
	"name":       "name",
	"birth_date": "birthDate",
	"height":     "height",
	"gender":     "gender",
	"city_id":    "cityId",
	"body_type":  "bodyType",
	"bio":        "bio",
	"desires":    "desires",
}

// fieldErrors folds backend field errors into form errors. Fields the form
// does not show go to the form-level message.
func fieldErrors(list []models.FieldError) FormErrors {
	errs := FormErrors{}
	for _, fe := range list {
		name, ok := backendFieldNames[fe.Field]
		if !ok {
			name = ""
		}
		errs.add(name, fe.Message)
	}
	return errs
}
