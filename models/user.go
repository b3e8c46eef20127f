package models

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type BodyType string

const (
	BodyTypeAverage  BodyType = "average"
	BodyTypeSlim     BodyType = "slim"
	BodyTypeAthletic BodyType = "athletic"
	BodyTypeFull     BodyType = "full"
	BodyTypeMuscular BodyType = "muscular"
)

// BirthDateLayout is the date-only wire format for birth dates.
const BirthDateLayout = "2006-01-02"

type DeviceInfo struct {
	DeviceName     string `json:"deviceName"`
	ModelName      string `json:"modelName"`
	Brand          string `json:"brand"`
	OSName         string `json:"osName"`
	OSVersion      string `json:"osVersion"`
	DeviceType     string `json:"deviceType"`
	DeviceTypeCode int    `json:"deviceTypeCode"`
	IsDevice       bool   `json:"isDevice"`
}

type RegistrationPayload struct {
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	BirthDate  string     `json:"birth_date"`
	Height     int        `json:"height"`
	Gender     Gender     `json:"gender"`
	CityID     int64      `json:"city_id"`
	BodyType   BodyType   `json:"body_type"`
	DeviceInfo DeviceInfo `json:"device_info"`
}

type RegistrationResult struct {
	Success bool         `json:"success"`
	UserID  int64        `json:"user_id"`
	Message string       `json:"message,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

type MessageResult struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message"`
}

type ChangePasswordRequest struct {
	Email           string `json:"email"`
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// FieldError is one entry of the backend validation error list.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}
