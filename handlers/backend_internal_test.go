package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"ume-client/config"
	"ume-client/middleware"
	"ume-client/models"
	"ume-client/utils"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestAge(t *testing.T) {
	birth := time.Date(2000, time.February, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 23, age(birth, time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24, age(birth, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24, age(birth, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Moscow", capitalize("mOSCOW"))
	assert.Equal(t, "Ёлки", capitalize("ёлки"))
	assert.Equal(t, "", capitalize(""))
}

func TestStatusHandlerPasswordFailure(t *testing.T) {
	original := generatePassword
	defer func() { generatePassword = original }()
	generatePassword = func(int) (string, error) { return "", errors.New("entropy exhausted") }

	b := NewBackend(config.SandboxConfig{AutoApproveAfter: 1}, zap.NewNop())
	b.users[1] = &sandboxUser{id: 1, email: "a@example.com", status: models.StatusPending}

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/v1/verification/status/1", nil), map[string]string{"userId": "1"})
	rec := httptest.NewRecorder()
	middleware.ErrorHandler(b.StatusHandler)(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "Internal server error"))
}

func TestLoginHandlerTokenFailure(t *testing.T) {
	original := generateAccessToken
	defer func() { generateAccessToken = original }()
	generateAccessToken = func(utils.Claims, time.Duration, string, []byte) (string, error) {
		return "", errors.New("signing failed")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret12"), bcrypt.MinCost)
	assert.NoError(t, err)
	b := NewBackend(config.SandboxConfig{}, zap.NewNop())
	b.users[1] = &sandboxUser{id: 1, email: "a@example.com", status: models.StatusActive, passwordHash: hash}
	b.byEmail["a@example.com"] = 1

	form := url.Values{"username": {"a@example.com"}, "password": {"secret12"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	middleware.ErrorHandler(b.LoginHandler)(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not generate token")
}
