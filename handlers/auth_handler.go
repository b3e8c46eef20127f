package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ume-client/middleware"
	"ume-client/models"
	"ume-client/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxUploadSize = 32 << 20

var allowedPhotoExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

func (b *Backend) RegistrationHandler(w http.ResponseWriter, r *http.Request) error {
	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewValidationError([]models.FieldError{{Field: "body", Message: "Invalid JSON body", Type: "json_invalid"}})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return middleware.NewValidationError(fieldErrorsOf(err))
	}
	birth, _ := time.Parse(models.BirthDateLayout, req.BirthDate)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.byEmail[req.Email]; exists {
		b.log.Warn("duplicate registration", zap.String("email", req.Email))
		return middleware.NewAppError(http.StatusBadRequest, "A user with this e-mail already exists", nil)
	}
	if b.cityName(req.CityID) == "" {
		return middleware.NewValidationError([]models.FieldError{{Field: "city_id", Message: "Unknown city", Type: "value_error"}})
	}

	b.nextID++
	user := &sandboxUser{
		id:        b.nextID,
		email:     req.Email,
		name:      req.Name,
		birthDate: birth,
		height:    req.Height,
		gender:    req.Gender,
		bodyType:  req.BodyType,
		cityID:    req.CityID,
		status:    models.StatusPending,
	}
	b.users[user.id] = user
	b.byEmail[user.email] = user.id
	b.log.Info("user registered",
		zap.Int64("user_id", user.id),
		zap.String("email", user.email),
		zap.String("device", req.DeviceInfo.DeviceName),
	)

	return writeJSON(w, http.StatusCreated, models.RegistrationResult{
		Success: true,
		UserID:  user.id,
		Message: "User registered",
	})
}

func checkPhoto(header *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		return middleware.NewAppError(http.StatusBadRequest, "Could not determine the file format", nil)
	}
	if !allowedPhotoExtensions[ext] {
		return middleware.NewAppError(http.StatusBadRequest, "File format is not allowed", nil)
	}
	return nil
}

func formPhoto(r *http.Request, field string) (*multipart.FileHeader, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, middleware.NewValidationError([]models.FieldError{{Field: field, Message: fmt.Sprintf("Field '%s' is required", field), Type: "missing"}})
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		return nil, middleware.NewAppError(http.StatusBadRequest, "Could not read upload", err)
	}
	return header, checkPhoto(header)
}

func (b *Backend) VerificationHandler(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid multipart form", err)
	}
	userID, err := strconv.ParseInt(r.FormValue("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return middleware.NewValidationError([]models.FieldError{{Field: "user_id", Message: "Field 'user_id' is required", Type: "missing"}})
	}
	avatar, err := formPhoto(r, "avatar")
	if err != nil {
		return err
	}
	selfie, err := formPhoto(r, "verification_photo")
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.users[userID]
	if !ok {
		return middleware.NewAppError(http.StatusNotFound, "User not found", nil)
	}
	dir := fmt.Sprintf("uploads/user_%d", userID)
	user.avatar = fmt.Sprintf("%s/avatar_user_id_%d%s", dir, userID, strings.ToLower(filepath.Ext(avatar.Filename)))
	user.verificationPath = fmt.Sprintf("%s/verification_user_id_%d%s", dir, userID, strings.ToLower(filepath.Ext(selfie.Filename)))

	return writeJSON(w, http.StatusOK, models.VerificationResult{
		Status:           "success",
		Message:          "Photos uploaded",
		AvatarPath:       user.avatar,
		VerificationPath: user.verificationPath,
		UserID:           userID,
	})
}

func (b *Backend) StatusHandler(w http.ResponseWriter, r *http.Request) error {
	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid user id", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.users[userID]
	if !ok {
		return middleware.NewAppError(http.StatusNotFound, "User not found", nil)
	}
	user.statusPolls++
	if b.cfg.AutoApproveAfter > 0 && user.status == models.StatusPending && user.statusPolls >= b.cfg.AutoApproveAfter {
		if _, err := b.setStatus(user, models.StatusActive); err != nil {
			return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
		}
	}
	return writeJSON(w, http.StatusOK, models.StatusResult{Status: user.status})
}

// LoginHandler follows the OAuth2 password form: username is the e-mail.
func (b *Backend) LoginHandler(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid form", err)
	}
	email := strings.ToLower(strings.TrimSpace(r.PostForm.Get("username")))
	password := r.PostForm.Get("password")
	if email == "" || password == "" {
		return middleware.NewValidationError(missingFields(map[string]string{"username": email, "password": password}))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.userByEmail(email)
	if !ok || user.passwordHash == nil {
		return middleware.NewAppError(http.StatusUnauthorized, "Incorrect username or password", nil)
	}
	if err := compareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return middleware.NewAppError(http.StatusUnauthorized, "Incorrect username or password", err)
	}
	if user.status != models.StatusActive {
		return middleware.NewAppError(http.StatusForbidden, "Account is "+string(user.status), nil)
	}

	token, err := generateAccessToken(utils.Claims{UserID: user.id, Email: user.email}, b.cfg.TokenTTL, b.cfg.Issuer, b.cfg.JWTSecret)
	if err != nil {
		return middleware.NewAppError(http.StatusInternalServerError, "Could not generate token", err)
	}
	return writeJSON(w, http.StatusOK, models.LoginResult{AccessToken: token, TokenType: "bearer"})
}

func (b *Backend) userByEmail(email string) (*sandboxUser, bool) {
	id, ok := b.byEmail[email]
	if !ok {
		return nil, false
	}
	user, ok := b.users[id]
	return user, ok
}

func missingFields(values map[string]string) []models.FieldError {
	var out []models.FieldError
	for _, field := range []string{"username", "password", "email"} {
		if value, ok := values[field]; ok && value == "" {
			out = append(out, models.FieldError{Field: field, Message: fmt.Sprintf("Field '%s' is required", field), Type: "missing"})
		}
	}
	return out
}
