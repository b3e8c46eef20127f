package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"ume-client/middleware"
	"ume-client/models"

	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"
)

// currentUser resolves the authenticated user. Callers hold b.mu.
func (b *Backend) currentUser(r *http.Request) (*sandboxUser, error) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return nil, middleware.NewAppError(http.StatusUnauthorized, "Could not validate credentials", nil)
	}
	user, ok := b.users[claims.UserID]
	if !ok || user.email != claims.Email {
		return nil, middleware.NewAppError(http.StatusUnauthorized, "Could not validate credentials", nil)
	}
	return user, nil
}

func (b *Backend) MeHandler(w http.ResponseWriter, r *http.Request) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, err := b.currentUser(r)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, b.profileOf(user))
}

func (b *Backend) EditProfileHandler(w http.ResponseWriter, r *http.Request) error {
	var req profileEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewValidationError([]models.FieldError{{Field: "body", Message: "Invalid JSON body", Type: "json_invalid"}})
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return middleware.NewValidationError(fieldErrorsOf(err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	user, err := b.currentUser(r)
	if err != nil {
		return err
	}
	if b.cityName(req.CityID) == "" {
		return middleware.NewValidationError([]models.FieldError{{Field: "city_id", Message: "Unknown city", Type: "value_error"}})
	}
	user.name = req.Name
	user.height = req.Height
	user.bodyType = req.BodyType
	user.cityID = req.CityID
	user.bio = req.Bio
	user.desires = req.Desires
	return writeJSON(w, http.StatusOK, b.profileOf(user))
}

func (b *Backend) UploadPhotosHandler(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid multipart form", err)
	}
	headers := r.MultipartForm.File["photos"]
	if len(headers) == 0 {
		return middleware.NewValidationError([]models.FieldError{{Field: "photos", Message: "Field 'photos' is required", Type: "missing"}})
	}
	for _, header := range headers {
		if err := checkPhoto(header); err != nil {
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	user, err := b.currentUser(r)
	if err != nil {
		return err
	}
	for _, header := range headers {
		index := len(user.photos) + 1
		user.photos = append(user.photos, fmt.Sprintf("uploads/user_%d/gallery_%d%s", user.id, index, strings.ToLower(filepath.Ext(header.Filename))))
	}
	return writeJSON(w, http.StatusOK, models.PhotoUploadResult{Success: true, Photos: append([]string(nil), user.photos...)})
}

// ResetPasswordHandler answers the same way whether or not the e-mail is known.
func (b *Backend) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewValidationError([]models.FieldError{{Field: "body", Message: "Invalid JSON body", Type: "json_invalid"}})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return middleware.NewValidationError(missingFields(map[string]string{"email": email}))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if user, ok := b.userByEmail(email); ok && user.status == models.StatusActive {
		if _, err := b.issuePassword(user); err != nil {
			return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
		}
	}
	return writeJSON(w, http.StatusOK, models.MessageResult{Success: true, Message: "If the account exists, a new password has been sent"})
}

func (b *Backend) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) error {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewValidationError([]models.FieldError{{Field: "body", Message: "Invalid JSON body", Type: "json_invalid"}})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return middleware.NewValidationError(fieldErrorsOf(err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.userByEmail(req.Email)
	if !ok || user.passwordHash == nil || compareHashAndPassword(user.passwordHash, []byte(req.OldPassword)) != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Incorrect username or password", nil)
	}
	hash, err := generateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
	user.passwordHash = hash
	delete(b.passwords, user.id)
	b.log.Info("password changed", zap.Int64("user_id", user.id))
	return writeJSON(w, http.StatusOK, models.MessageResult{Success: true, Message: "Password changed"})
}
