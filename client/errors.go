package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ume-client/models"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
)

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  []models.FieldError
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (e *APIError) HasFieldErrors() bool {
	return len(e.Fields) > 0
}

type errorEnvelope struct {
	Success *bool               `json:"success"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Errors  []models.FieldError `json:"errors"`
	Detail  json.RawMessage     `json:"detail"`
}

// fastAPIDetail is one entry of FastAPI's default validation detail list.
type fastAPIDetail struct {
	Loc  []interface{} `json:"loc"`
	Msg  string        `json:"msg"`
	Type string        `json:"type"`
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Code = envelope.Code
		apiErr.Message = envelope.Message
		apiErr.Fields = envelope.Errors
		applyDetail(apiErr, envelope.Detail)
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		apiErr.Message = text
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func applyDetail(apiErr *APIError, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if apiErr.Message == "" {
			apiErr.Message = text
		}
		return
	}

	var details []fastAPIDetail
	if err := json.Unmarshal(raw, &details); err != nil {
		return
	}
	for _, d := range details {
		field := ""
		if len(d.Loc) > 0 {
			field = fmt.Sprint(d.Loc[len(d.Loc)-1])
		}
		apiErr.Fields = append(apiErr.Fields, models.FieldError{Field: field, Message: d.Msg, Type: d.Type})
	}
}
