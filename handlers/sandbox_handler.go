package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"ume-client/middleware"
	"ume-client/models"

	"github.com/gorilla/mux"
)

type moderateRequest struct {
	Status models.ModerationStatus `json:"status"`
}

// ModerateHandler plays the moderator: it sets a user's status. Approving
// returns the generated password that the real backend would e-mail.
func (b *Backend) ModerateHandler(w http.ResponseWriter, r *http.Request) error {
	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid user id", err)
	}
	var req moderateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid request payload", err)
	}
	if !req.Status.Known() {
		return middleware.NewValidationError([]models.FieldError{{Field: "status", Message: "Unknown status", Type: "enum"}})
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.users[userID]
	if !ok {
		return middleware.NewAppError(http.StatusNotFound, "User not found", nil)
	}
	password, err := b.setStatus(user, req.Status)
	if err != nil {
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	response := JSONResponse{"user_id": user.id, "status": user.status}
	if password != "" {
		response["password"] = password
	}
	return writeJSON(w, http.StatusOK, response)
}
