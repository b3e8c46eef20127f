package onboarding

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"ume-client/client"
	"ume-client/models"
	"ume-client/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	registerCalls int
	payload       models.RegistrationPayload
	registerRes   models.RegistrationResult
	registerErr   error

	verifyCalls int
	submission  models.VerificationSubmission
	verifyErr   error
}

func (f *fakeAPI) Register(_ context.Context, payload models.RegistrationPayload) (models.RegistrationResult, error) {
	f.registerCalls++
	f.payload = payload
	return f.registerRes, f.registerErr
}

func (f *fakeAPI) SubmitVerification(_ context.Context, sub models.VerificationSubmission) (models.VerificationResult, error) {
	f.verifyCalls++
	f.submission = sub
	if f.verifyErr != nil {
		return models.VerificationResult{}, f.verifyErr
	}
	return models.VerificationResult{Status: "success", UserID: sub.UserID}, nil
}

func newRegistrar(api *fakeAPI) (*Registrar, *store.Session) {
	session := store.NewSession(store.NewMemoryStore())
	r := NewRegistrar(api, session, nil)
	r.device = func() models.DeviceInfo { return models.DeviceInfo{DeviceName: "test-device"} }
	return r, session
}

func TestRegistrarInvalidFormSendsNothing(t *testing.T) {
	api := &fakeAPI{}
	r, session := newRegistrar(api)

	form := validForm()
	form.Email = ""
	_, err := r.Submit(context.Background(), form)

	var errs FormErrors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, errs, "email")
	assert.Equal(t, 0, api.registerCalls)

	_, ok, err := session.UserID(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistrarPersistsUserID(t *testing.T) {
	api := &fakeAPI{registerRes: models.RegistrationResult{Success: true, UserID: 42}}
	r, session := newRegistrar(api)

	form := validForm()
	form.Errors = FormErrors{"": "stale"}
	id, err := r.Submit(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Nil(t, form.Errors)
	assert.Equal(t, "test-device", api.payload.DeviceInfo.DeviceName)
	assert.Equal(t, 168, api.payload.Height)

	stored, ok, err := session.UserID(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), stored)
}

func TestRegistrarMapsBackendFieldErrors(t *testing.T) {
	api := &fakeAPI{registerErr: &client.APIError{
		Status: http.StatusUnprocessableEntity,
		Code:   "VALIDATION_ERROR",
		Fields: []models.FieldError{{Field: "birth_date", Message: "Too young"}},
	}}
	r, session := newRegistrar(api)

	form := validForm()
	_, err := r.Submit(context.Background(), form)
	require.Error(t, err)
	assert.Equal(t, "Too young", form.Errors["birthDate"])
	assert.Equal(t, "Anna", form.Name)

	_, ok, _ := session.UserID(context.Background())
	assert.False(t, ok)
}

func TestRegistrarShowsBackendMessage(t *testing.T) {
	api := &fakeAPI{registerErr: &client.APIError{Status: http.StatusBadRequest, Message: "A user with this e-mail already exists"}}
	r, _ := newRegistrar(api)

	form := validForm()
	_, err := r.Submit(context.Background(), form)
	require.Error(t, err)
	assert.Equal(t, "A user with this e-mail already exists", form.Errors.Alert())
}

func TestRegistrarTransportFailureIsGeneric(t *testing.T) {
	api := &fakeAPI{registerErr: errors.New("dial tcp: connection refused")}
	r, _ := newRegistrar(api)

	form := validForm()
	_, err := r.Submit(context.Background(), form)
	require.Error(t, err)
	assert.Equal(t, genericFailure, form.Errors.Alert())
}

func TestRegistrarUnsuccessfulResult(t *testing.T) {
	api := &fakeAPI{registerRes: models.RegistrationResult{Success: false}}
	r, _ := newRegistrar(api)

	form := validForm()
	_, err := r.Submit(context.Background(), form)
	require.Error(t, err)
	assert.Equal(t, genericFailure, form.Errors.Alert())

	api.registerRes = models.RegistrationResult{Success: true, UserID: 0}
	_, err = r.Submit(context.Background(), form)
	require.Error(t, err)
	assert.Equal(t, genericFailure, form.Errors.Alert())
}

func TestVerifierRequiresBothImages(t *testing.T) {
	api := &fakeAPI{}
	session := store.NewSession(store.NewMemoryStore())
	require.NoError(t, session.SetUserID(context.Background(), 7))
	v := NewVerifier(api, session, nil)

	_, err := v.Submit(context.Background(), "avatar.jpg", "")
	assert.ErrorIs(t, err, ErrMissingImage)
	_, err = v.Submit(context.Background(), "", "selfie.jpg")
	assert.ErrorIs(t, err, ErrMissingImage)
	assert.Equal(t, 0, api.verifyCalls)
}

func TestVerifierRequiresRegistration(t *testing.T) {
	api := &fakeAPI{}
	v := NewVerifier(api, store.NewSession(store.NewMemoryStore()), nil)

	_, err := v.Submit(context.Background(), "avatar.jpg", "selfie.jpg")
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.Equal(t, 0, api.verifyCalls)
}

func TestVerifierSubmits(t *testing.T) {
	api := &fakeAPI{}
	session := store.NewSession(store.NewMemoryStore())
	require.NoError(t, session.SetUserID(context.Background(), 7))
	v := NewVerifier(api, session, nil)

	result, err := v.Submit(context.Background(), "avatar.jpg", "selfie.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.UserID)
	assert.Equal(t, models.VerificationSubmission{UserID: 7, Avatar: "avatar.jpg", Selfie: "selfie.jpg"}, api.submission)

	api.verifyErr = errors.New("upload failed")
	_, err = v.Submit(context.Background(), "avatar.jpg", "selfie.jpg")
	assert.ErrorContains(t, err, "upload failed")
}
