package models

// Keys persisted in the session store.
const (
	KeyUserID            = "userId"
	KeyAccessToken       = "accessToken"
	KeyCachedProfile     = "cachedProfile"
	KeyProfileLastUpdate = "profileLastUpdate"
)

type Session struct {
	UserID      *int64 `json:"userId,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

func (s Session) Registered() bool {
	return s.UserID != nil && *s.UserID > 0
}
