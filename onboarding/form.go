package onboarding

import (
	"strconv"
	"strings"
	"time"

	"ume-client/models"
)

// RegistrationForm is the registration screen state: entered values plus the
// errors shown next to them. Values are kept as typed so a failed submit never
// loses input.
type RegistrationForm struct {
	Email     string     `json:"email" validate:"required,email"`
	Name      string     `json:"name" validate:"required"`
	BirthDate string     `json:"birthDate" validate:"required,datetime=2006-01-02"`
	Height    string     `json:"height" validate:"required,number"`
	Gender    string     `json:"gender" validate:"required,gender"`
	CityID    string     `json:"cityId" validate:"required,number"`
	BodyType  string     `json:"bodyType" validate:"required,bodytype"`
	Errors    FormErrors `json:"errors,omitempty" validate:"-"`
}

func (f *RegistrationForm) normalize() {
	f.Email = strings.TrimSpace(f.Email)
	f.Name = strings.TrimSpace(f.Name)
	f.BirthDate = strings.TrimSpace(f.BirthDate)
	f.Height = strings.TrimSpace(f.Height)
	f.Gender = strings.ToLower(strings.TrimSpace(f.Gender))
	f.CityID = strings.TrimSpace(f.CityID)
	f.BodyType = strings.ToLower(strings.TrimSpace(f.BodyType))
}

// Validate runs the local presence and format checks and stores the result
// in f.Errors.
func (f *RegistrationForm) Validate() bool {
	f.normalize()
	f.Errors = check(f)
	return len(f.Errors) == 0
}

// SetBirthDate stores t as a date-only value.
func (f *RegistrationForm) SetBirthDate(t time.Time) {
	f.BirthDate = t.Format(models.BirthDateLayout)
}

// Payload converts a validated form into the registration request.
func (f *RegistrationForm) Payload(device models.DeviceInfo) (models.RegistrationPayload, error) {
	height, err := strconv.Atoi(f.Height)
	if err != nil {
		return models.RegistrationPayload{}, FormErrors{"height": "Must be a number"}
	}
	cityID, err := strconv.ParseInt(f.CityID, 10, 64)
	if err != nil {
		return models.RegistrationPayload{}, FormErrors{"cityId": "Must be a number"}
	}
	birth, err := time.Parse(models.BirthDateLayout, f.BirthDate)
	if err != nil {
		return models.RegistrationPayload{}, FormErrors{"birthDate": "Use the YYYY-MM-DD format"}
	}

	return models.RegistrationPayload{
		Email:      f.Email,
		Name:       f.Name,
		BirthDate:  birth.Format(models.BirthDateLayout),
		Height:     height,
		Gender:     models.Gender(f.Gender),
		CityID:     cityID,
		BodyType:   models.BodyType(f.BodyType),
		DeviceInfo: device,
	}, nil
}

type loginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type resetForm struct {
	Email string `json:"email" validate:"required,email"`
}

type changePasswordForm struct {
	Email           string `json:"email" validate:"required,email"`
	OldPassword     string `json:"oldPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}
