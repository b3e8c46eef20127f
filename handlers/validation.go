package handlers

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"ume-client/models"

	"github.com/go-playground/validator/v10"
)

var nameRegex = regexp.MustCompile(`^[\p{L}\s\-]+$`)

type registrationRequest struct {
	Email      string            `json:"email" validate:"required,email,min=2,max=100"`
	Name       string            `json:"name" validate:"required,min=2,max=30,personname"`
	BirthDate  string            `json:"birth_date" validate:"required,datetime=2006-01-02,adult"`
	Height     int               `json:"height" validate:"required,gte=100,lte=250"`
	BodyType   models.BodyType   `json:"body_type" validate:"required,oneof=average slim athletic full muscular"`
	Gender     models.Gender     `json:"gender" validate:"required,oneof=male female"`
	CityID     int64             `json:"city_id" validate:"required,gt=0"`
	DeviceInfo models.DeviceInfo `json:"device_info"`
}

type profileEditRequest struct {
	Name     string          `json:"name" validate:"required,min=2,max=30,personname"`
	Height   int             `json:"height" validate:"required,gte=100,lte=250"`
	BodyType models.BodyType `json:"body_type" validate:"required,oneof=average slim athletic full muscular"`
	CityID   int64           `json:"city_id" validate:"required,gt=0"`
	Bio      *string         `json:"bio" validate:"omitempty,max=500"`
	Desires  *string         `json:"desires" validate:"omitempty,max=500"`
}

type changePasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
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
		"personname": validPersonName,
		"adult":      validAdultBirthDate,
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register validator %q: %v", tag, err))
		}
	}
	return v
}

func validPersonName(fl validator.FieldLevel) bool {
	return nameRegex.MatchString(fl.Field().String())
}

// validAdultBirthDate accepts ages 18 to 100.
func validAdultBirthDate(fl validator.FieldLevel) bool {
	birth, err := time.Parse(models.BirthDateLayout, fl.Field().String())
	if err != nil {
		return false
	}
	years := age(birth, time.Now())
	return years >= 18 && years <= 100
}

// fieldErrorsOf turns validator failures into the backend error list.
func fieldErrorsOf(err error) []models.FieldError {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []models.FieldError{{Field: "unknown", Message: err.Error(), Type: "value_error"}}
	}
	out := make([]models.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		out = append(out, models.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
			Type:    fieldErrorType(fe),
		})
	}
	return out
}

func fieldErrorType(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "missing"
	case "personname", "adult":
		return "value_error"
	default:
		return fe.Tag()
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "email":
		return "Invalid e-mail address"
	case "personname":
		return "Name may contain only letters, spaces and hyphens"
	case "adult":
		return "You must be between 18 and 100 years old"
	case "datetime":
		return "Date must use the YYYY-MM-DD format"
	case "min", "gte":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "eqfield":
		return "Passwords do not match"
	default:
		return "Invalid value"
	}
}
