package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"ume-client/models"
)

// Session gives typed access to the persisted session keys. Absent keys and
// the placeholder literals written by older clients all read as "not set".
type Session struct {
	kv  Store
	now func() time.Time
}

func NewSession(kv Store) *Session {
	return &Session{kv: kv, now: time.Now}
}

func isUnset(value string) bool {
	switch value {
	case "", "null", "undefined":
		return true
	default:
		return false
	}
}

func (s *Session) get(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if !ok || isUnset(value) {
		return "", false, nil
	}
	return value, true, nil
}

func (s *Session) UserID(ctx context.Context) (int64, bool, error) {
	raw, ok, err := s.get(ctx, models.KeyUserID)
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, nil
	}
	return id, true, nil
}

func (s *Session) SetUserID(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("invalid user id %d", id)
	}
	return s.kv.Set(ctx, models.KeyUserID, strconv.FormatInt(id, 10))
}

func (s *Session) AccessToken(ctx context.Context) (string, bool, error) {
	return s.get(ctx, models.KeyAccessToken)
}

func (s *Session) SetAccessToken(ctx context.Context, token string) error {
	if isUnset(token) {
		return fmt.Errorf("refusing to store an empty access token")
	}
	return s.kv.Set(ctx, models.KeyAccessToken, token)
}

// ClearAccessToken forgets the access token and anything cached under it.
func (s *Session) ClearAccessToken(ctx context.Context) error {
	for _, key := range []string{models.KeyAccessToken, models.KeyCachedProfile, models.KeyProfileLastUpdate} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// DropCachedProfile forgets the cached profile but keeps the token.
func (s *Session) DropCachedProfile(ctx context.Context) error {
	for _, key := range []string{models.KeyCachedProfile, models.KeyProfileLastUpdate} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// CachedProfile returns the cached profile if it was stored less than maxAge ago.
func (s *Session) CachedProfile(ctx context.Context, maxAge time.Duration) (*models.UserProfile, bool, error) {
	if maxAge <= 0 {
		return nil, false, nil
	}
	stamp, ok, err := s.get(ctx, models.KeyProfileLastUpdate)
	if err != nil || !ok {
		return nil, false, err
	}
	millis, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return nil, false, nil
	}
	if s.now().Sub(time.UnixMilli(millis)) >= maxAge {
		return nil, false, nil
	}

	raw, ok, err := s.get(ctx, models.KeyCachedProfile)
	if err != nil || !ok {
		return nil, false, err
	}
	var profile models.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, false, nil
	}
	return &profile, true, nil
}

func (s *Session) SetCachedProfile(ctx context.Context, profile models.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode cached profile: %w", err)
	}
	if err := s.kv.Set(ctx, models.KeyCachedProfile, string(raw)); err != nil {
		return err
	}
	return s.kv.Set(ctx, models.KeyProfileLastUpdate, strconv.FormatInt(s.now().UnixMilli(), 10))
}

func (s *Session) Snapshot(ctx context.Context) (models.Session, error) {
	var snapshot models.Session
	id, ok, err := s.UserID(ctx)
	if err != nil {
		return snapshot, err
	}
	if ok {
		snapshot.UserID = &id
	}
	token, _, err := s.AccessToken(ctx)
	if err != nil {
		return snapshot, err
	}
	snapshot.AccessToken = token
	return snapshot, nil
}
