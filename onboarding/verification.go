package onboarding

import (
	"context"
	"errors"
	"fmt"

	"ume-client/models"
	"ume-client/store"

	"go.uber.org/zap"
)

var (
	ErrMissingImage  = errors.New("both the profile photo and the selfie are required")
	ErrNotRegistered = errors.New("no user id stored: registration required")
)

type VerificationAPI interface {
	SubmitVerification(ctx context.Context, sub models.VerificationSubmission) (models.VerificationResult, error)
}

// Verifier uploads the verification photos for the registered user.
type Verifier struct {
	api     VerificationAPI
	session *store.Session
	log     *zap.Logger
}

func NewVerifier(api VerificationAPI, session *store.Session, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{api: api, session: session, log: log}
}

// Submit sends both images in one request. Nothing is sent unless both
// images are given and a user id is stored.
func (v *Verifier) Submit(ctx context.Context, avatar, selfie models.ImageRef) (models.VerificationResult, error) {
	sub := models.VerificationSubmission{Avatar: avatar, Selfie: selfie}
	if !sub.Complete() {
		return models.VerificationResult{}, ErrMissingImage
	}

	userID, ok, err := v.session.UserID(ctx)
	if err != nil {
		return models.VerificationResult{}, fmt.Errorf("read user id: %w", err)
	}
	if !ok {
		return models.VerificationResult{}, ErrNotRegistered
	}
	sub.UserID = userID

	result, err := v.api.SubmitVerification(ctx, sub)
	if err != nil {
		v.log.Warn("verification upload failed", zap.Int64("user_id", userID), zap.Error(err))
		return result, fmt.Errorf("submit verification: %w", err)
	}
	v.log.Info("verification submitted", zap.Int64("user_id", userID))
	return result, nil
}
