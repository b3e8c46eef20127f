package models

type ModerationStatus string

const (
	StatusPending  ModerationStatus = "pending"
	StatusActive   ModerationStatus = "active"
	StatusRejected ModerationStatus = "rejected"
	StatusBanned   ModerationStatus = "banned"
	StatusDeleted  ModerationStatus = "deleted"
	StatusInactive ModerationStatus = "inactive"
)

// IsTerminal reports whether no further status change is expected by the client.
func (s ModerationStatus) IsTerminal() bool {
	switch s {
	case StatusActive, StatusRejected, StatusBanned, StatusDeleted, StatusInactive:
		return true
	default:
		return false
	}
}

// Known reports whether s is one of the statuses the backend documents.
func (s ModerationStatus) Known() bool {
	return s == StatusPending || s.IsTerminal()
}

type StatusResult struct {
	Status ModerationStatus `json:"status"`
}

type VerificationResult struct {
	Status           string `json:"status"`
	Message          string `json:"message,omitempty"`
	AvatarPath       string `json:"avatar_path,omitempty"`
	VerificationPath string `json:"verification_path,omitempty"`
	UserID           int64  `json:"user_id"`
}

// ImageRef is a local image reference (a file path).
type ImageRef string

type VerificationSubmission struct {
	UserID int64
	Avatar ImageRef
	Selfie ImageRef
}

// Complete reports whether both images are present.
func (v VerificationSubmission) Complete() bool {
	return v.Avatar != "" && v.Selfie != ""
}
