package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"ume-client/config"
	"ume-client/handlers"
	"ume-client/models"
	"ume-client/routes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sandbox struct {
	t       *testing.T
	backend *handlers.Backend
	handler http.Handler
}

func newSandbox(t *testing.T, autoApproveAfter int) *sandbox {
	t.Helper()
	cfg := config.Config{Sandbox: config.SandboxConfig{
		JWTSecret:        []byte("sandbox-secret"),
		Issuer:           "ume-sandbox",
		TokenTTL:         time.Hour,
		AutoApproveAfter: autoApproveAfter,
		AllowedOrigins:   []string{"*"},
	}}
	backend := handlers.NewBackend(cfg.Sandbox, zap.NewNop())
	return &sandbox{t: t, backend: backend, handler: routes.SetupRoutes(cfg, backend)}
}

func (s *sandbox) do(req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func (s *sandbox) postJSON(path string, payload interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(req)
}

func (s *sandbox) get(path, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(req)
}

func registration(email string) map[string]interface{} {
	return map[string]interface{}{
		"email":      email,
		"name":       "Anna Maria",
		"birth_date": "1995-05-15",
		"height":     168,
		"gender":     "female",
		"city_id":    1,
		"body_type":  "slim",
		"device_info": map[string]interface{}{
			"deviceName": "test",
		},
	}
}

func (s *sandbox) register(email string) int64 {
	rec, body := s.postJSON("/api/v1/registration/", registration(email), "")
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return int64(body["user_id"].(float64))
}

func (s *sandbox) approve(userID int64) string {
	rec, body := s.postJSON("/sandbox/moderate/"+strconv.FormatInt(userID, 10), map[string]string{"status": "active"}, "")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return body["password"].(string)
}

func (s *sandbox) login(email, password string) (*httptest.ResponseRecorder, map[string]interface{}) {
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string][]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for field, names := range files {
		for _, name := range names {
			part, err := writer.CreateFormFile(field, name)
			require.NoError(t, err)
			_, _ = io.WriteString(part, "image-bytes")
		}
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestCitiesAndSearch(t *testing.T) {
	s := newSandbox(t, 0)

	rec, body := s.get("/api/v1/cities/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["items"])

	rec, body = s.get("/api/v1/cities/search?q=m", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	items := body["items"].([]interface{})
	assert.Len(t, items, 4)
	assert.Equal(t, "Magadan, Magadan Oblast", items[0].(map[string]interface{})["name"])

	_, body = s.get("/api/v1/cities/search?q=zzz", "")
	assert.Empty(t, body["items"])
}

func TestRegistrationHandler(t *testing.T) {
	s := newSandbox(t, 0)

	id := s.register("anna@example.com")
	assert.Equal(t, int64(1), id)

	rec, body := s.postJSON("/api/v1/registration/", registration("ANNA@example.com"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "HTTP_ERROR", body["code"])
	assert.Equal(t, false, body["success"])
}

func TestRegistrationValidation(t *testing.T) {
	s := newSandbox(t, 0)

	payload := registration("young@example.com")
	payload["birth_date"] = time.Now().AddDate(-10, 0, 0).Format("2006-01-02")
	payload["name"] = "R2D2"
	payload["height"] = 90
	delete(payload, "city_id")

	rec, body := s.postJSON("/api/v1/registration/", payload, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	fields := map[string]string{}
	for _, item := range body["errors"].([]interface{}) {
		entry := item.(map[string]interface{})
		fields[entry["field"].(string)] = entry["type"].(string)
	}
	assert.Equal(t, "value_error", fields["birth_date"])
	assert.Equal(t, "value_error", fields["name"])
	assert.Equal(t, "gte", fields["height"])
	assert.Equal(t, "missing", fields["city_id"])
}

func TestRegistrationUnknownCity(t *testing.T) {
	s := newSandbox(t, 0)
	payload := registration("anna@example.com")
	payload["city_id"] = 999

	rec, body := s.postJSON("/api/v1/registration/", payload, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "city_id", body["errors"].([]interface{})[0].(map[string]interface{})["field"])
}

func TestVerificationHandler(t *testing.T) {
	s := newSandbox(t, 0)
	id := s.register("anna@example.com")
	idText := strconv.FormatInt(id, 10)

	rec, body := s.do(multipartRequest(t, "/api/v1/verification/", map[string]string{"user_id": idText}, map[string][]string{
		"avatar": {"avatar_user_1.jpg"},
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "verification_photo", body["errors"].([]interface{})[0].(map[string]interface{})["field"])

	rec, _ = s.do(multipartRequest(t, "/api/v1/verification/", map[string]string{"user_id": idText}, map[string][]string{
		"avatar":             {"avatar.gif"},
		"verification_photo": {"selfie.jpg"},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(multipartRequest(t, "/api/v1/verification/", map[string]string{"user_id": "99"}, map[string][]string{
		"avatar":             {"a.jpg"},
		"verification_photo": {"b.jpg"},
	}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = s.do(multipartRequest(t, "/api/v1/verification/", map[string]string{"user_id": idText}, map[string][]string{
		"avatar":             {"avatar_user_1.jpg"},
		"verification_photo": {"verification_user_1.jpg"},
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "uploads/user_1/avatar_user_id_1.jpg", body["avatar_path"])
}

func TestStatusHandlerAutoApprove(t *testing.T) {
	s := newSandbox(t, 2)
	id := s.register("anna@example.com")
	path := "/api/v1/verification/status/" + strconv.FormatInt(id, 10)

	_, body := s.get(path, "")
	assert.Equal(t, "pending", body["status"])
	_, body = s.get(path, "")
	assert.Equal(t, "active", body["status"])

	password, ok := s.backend.IssuedPassword(id)
	assert.True(t, ok)
	assert.Len(t, password, 8)

	rec, _ := s.get("/api/v1/verification/status/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModerateRejectsUnknownStatus(t *testing.T) {
	s := newSandbox(t, 0)
	id := s.register("anna@example.com")

	rec, _ := s.postJSON("/sandbox/moderate/"+strconv.FormatInt(id, 10), map[string]string{"status": "frozen"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, body := s.postJSON("/sandbox/moderate/"+strconv.FormatInt(id, 10), map[string]string{"status": "rejected"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rejected", body["status"])
	assert.NotContains(t, body, "password")
}

func TestLoginAndProfileLifecycle(t *testing.T) {
	s := newSandbox(t, 0)
	id := s.register("anna@example.com")

	rec, _ := s.login("anna@example.com", "whatever")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	password := s.approve(id)
	rec, _ = s.login("anna@example.com", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := s.login("anna@example.com", password)
	require.Equal(t, http.StatusOK, rec.Code)
	token := body["access_token"].(string)
	assert.Equal(t, "bearer", body["token_type"])

	rec, body = s.get("/api/v1/users/me/", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "slim", body["body_type"])
	assert.Equal(t, float64(1), body["city_id"])
	assert.Equal(t, "Moscow, Moscow", body["city"])
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, []interface{}{}, body["photos"])

	bio := "Likes hiking"
	rec, body = s.postJSON("/api/v1/users/me/edit/", models.ProfileEditWire{Name: "Anna", Height: 170, BodyType: models.BodyTypeAthletic, CityID: 8, Bio: &bio}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "athletic", body["body_type"])
	assert.Equal(t, float64(8), body["city_id"])
	assert.Equal(t, "Likes hiking", body["bio"])

	rec, _ = s.postJSON("/api/v1/users/me/edit/", models.ProfileEditWire{Name: "", Height: 170, BodyType: "slim", CityID: 8}, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := multipartRequest(t, "/api/v1/users/me/photos/", nil, map[string][]string{"photos": {"one.jpg", "two.png"}})
	req.Header.Set("Authorization", "Bearer "+token)
	rec, body = s.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []interface{}{"uploads/user_1/gallery_1.jpg", "uploads/user_1/gallery_2.png"}, body["photos"])
}

func TestPendingUserCannotLogin(t *testing.T) {
	s := newSandbox(t, 0)
	id := s.register("anna@example.com")
	password := s.approve(id)

	rec, _ := s.postJSON("/sandbox/moderate/"+strconv.FormatInt(id, 10), map[string]string{"status": "banned"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := s.login("anna@example.com", password)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Account is banned", body["message"])
}

func TestChangeAndResetPassword(t *testing.T) {
	s := newSandbox(t, 0)
	id := s.register("anna@example.com")
	password := s.approve(id)

	rec, _ := s.postJSON("/api/v1/users/change_password/", map[string]string{
		"email": "anna@example.com", "old_password": "nope", "new_password": "newpassword1", "confirm_password": "newpassword1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := s.postJSON("/api/v1/users/change_password/", map[string]string{
		"email": "anna@example.com", "old_password": password, "new_password": "newpassword1", "confirm_password": "different1",
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "confirm_password", body["errors"].([]interface{})[0].(map[string]interface{})["field"])

	rec, _ = s.postJSON("/api/v1/users/change_password/", map[string]string{
		"email": "anna@example.com", "old_password": password, "new_password": "newpassword1", "confirm_password": "newpassword1",
	}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.login("anna@example.com", "newpassword1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.postJSON("/api/v1/reset-password/", map[string]string{"email": "anna@example.com"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	reset, ok := s.backend.IssuedPassword(id)
	assert.True(t, ok)
	rec, _ = s.login("anna@example.com", reset)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.postJSON("/api/v1/reset-password/", map[string]string{"email": "nobody@example.com"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.postJSON("/api/v1/reset-password/", map[string]string{"email": ""}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
