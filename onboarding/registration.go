package onboarding

import (
	"context"
	"errors"
	"fmt"

	"ume-client/client"
	"ume-client/models"
	"ume-client/store"
	"ume-client/utils"

	"go.uber.org/zap"
)

const genericFailure = "Something went wrong, please try again later"

type RegistrationAPI interface {
	Register(ctx context.Context, payload models.RegistrationPayload) (models.RegistrationResult, error)
}

// Registrar submits the registration form and remembers the created user id.
type Registrar struct {
	api     RegistrationAPI
	session *store.Session
	device  func() models.DeviceInfo
	log     *zap.Logger
}

func NewRegistrar(api RegistrationAPI, session *store.Session, log *zap.Logger) *Registrar {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registrar{api: api, session: session, device: utils.DeviceInfo, log: log}
}

// Submit validates the form and registers the user. Validation and backend
// field errors are returned as FormErrors and also stored on the form; entered
// values are left untouched.
func (r *Registrar) Submit(ctx context.Context, form *RegistrationForm) (int64, error) {
	if !form.Validate() {
		return 0, form.Errors
	}

	payload, err := form.Payload(r.device())
	if err != nil {
		var errs FormErrors
		if errors.As(err, &errs) {
			form.Errors = errs
		}
		return 0, err
	}

	result, err := r.api.Register(ctx, payload)
	if err != nil {
		form.Errors = formErrorsFrom(err)
		r.log.Warn("registration failed", zap.String("email", payload.Email), zap.Error(err))
		return 0, fmt.Errorf("register: %w", err)
	}

	if !result.Success {
		errs := fieldErrors(result.Errors)
		if len(errs) == 0 {
			errs[""] = orGeneric(result.Message)
		}
		form.Errors = errs
		return 0, errs
	}
	if result.UserID <= 0 {
		form.Errors = FormErrors{"": genericFailure}
		return 0, fmt.Errorf("register: backend returned user id %d", result.UserID)
	}

	if err := r.session.SetUserID(ctx, result.UserID); err != nil {
		form.Errors = FormErrors{"": genericFailure}
		return 0, fmt.Errorf("persist user id: %w", err)
	}
	form.Errors = nil
	r.log.Info("user registered", zap.Int64("user_id", result.UserID))
	return result.UserID, nil
}

// formErrorsFrom maps a failed call onto the form: field errors inline,
// everything else as the form-level message.
func formErrorsFrom(err error) FormErrors {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HasFieldErrors() {
			return fieldErrors(apiErr.Fields)
		}
		return FormErrors{"": orGeneric(apiErr.Message)}
	}
	return FormErrors{"": genericFailure}
}

func orGeneric(message string) string {
	if message == "" {
		return genericFailure
	}
	return message
}
