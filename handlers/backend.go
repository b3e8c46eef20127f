package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"ume-client/config"
	"ume-client/models"
	"ume-client/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	generateFromPassword   = bcrypt.GenerateFromPassword
	compareHashAndPassword = bcrypt.CompareHashAndPassword
	generateAccessToken    = utils.GenerateToken
	generatePassword       = utils.GeneratePassword
)

type JSONResponse map[string]interface{}

const (
	generatedPasswordLength = 8
	citySearchLimit         = 5
)

type sandboxUser struct {
	id               int64
	email            string
	name             string
	birthDate        time.Time
	height           int
	gender           models.Gender
	bodyType         models.BodyType
	cityID           int64
	status           models.ModerationStatus
	passwordHash     []byte
	avatar           string
	verificationPath string
	photos           []string
	bio              *string
	desires          *string
	statusPolls      int
}

// Backend is an in-memory stand-in for the UME API used for local runs and
// contract tests.
type Backend struct {
	cfg config.SandboxConfig
	log *zap.Logger
	now func() time.Time

	mu        sync.Mutex
	cities    []models.City
	users     map[int64]*sandboxUser
	byEmail   map[string]int64
	nextID    int64
	passwords map[int64]string
}

func NewBackend(cfg config.SandboxConfig, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	cities := append([]models.City(nil), defaultCities...)
	sort.Slice(cities, func(i, j int) bool { return cities[i].Name < cities[j].Name })
	return &Backend{
		cfg:       cfg,
		log:       log.Named("sandbox"),
		now:       time.Now,
		cities:    cities,
		users:     make(map[int64]*sandboxUser),
		byEmail:   make(map[string]int64),
		passwords: make(map[int64]string),
	}
}

var defaultCities = []models.City{
	{ID: 1, Name: "Moscow, Moscow"},
	{ID: 2, Name: "Saint Petersburg, Saint Petersburg"},
	{ID: 3, Name: "Novosibirsk, Novosibirsk Oblast"},
	{ID: 4, Name: "Yekaterinburg, Sverdlovsk Oblast"},
	{ID: 5, Name: "Kazan, Tatarstan"},
	{ID: 6, Name: "Nizhny Novgorod, Nizhny Novgorod Oblast"},
	{ID: 7, Name: "Samara, Samara Oblast"},
	{ID: 8, Name: "Sochi, Krasnodar Krai"},
	{ID: 9, Name: "Krasnodar, Krasnodar Krai"},
	{ID: 10, Name: "Murmansk, Murmansk Oblast"},
	{ID: 11, Name: "Magadan, Magadan Oblast"},
	{ID: 12, Name: "Makhachkala, Dagestan"},
}

// IssuedPassword returns the last password generated for a user. The real
// backend e-mails it; the sandbox keeps it for inspection.
func (b *Backend) IssuedPassword(userID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	password, ok := b.passwords[userID]
	return password, ok
}

func (b *Backend) cityName(id int64) string {
	for _, city := range b.cities {
		if city.ID == id {
			return city.Name
		}
	}
	return ""
}

// issuePassword sets a fresh generated password. Callers hold b.mu.
func (b *Backend) issuePassword(user *sandboxUser) (string, error) {
	password, err := generatePassword(generatedPasswordLength)
	if err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	hash, err := generateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	user.passwordHash = hash
	b.passwords[user.id] = password
	b.log.Info("password issued", zap.Int64("user_id", user.id), zap.String("email", user.email), zap.String("password", password))
	return password, nil
}

// setStatus changes the moderation status; approving issues a password.
// Callers hold b.mu.
func (b *Backend) setStatus(user *sandboxUser, status models.ModerationStatus) (string, error) {
	user.status = status
	b.log.Info("moderation status changed", zap.Int64("user_id", user.id), zap.String("status", string(status)))
	if status != models.StatusActive {
		return "", nil
	}
	return b.issuePassword(user)
}

func age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}

func (b *Backend) profileOf(user *sandboxUser) models.ProfileWire {
	photos := append([]string(nil), user.photos...)
	if photos == nil {
		photos = []string{}
	}
	return models.ProfileWire{
		ID:       user.id,
		Email:    user.email,
		Name:     user.name,
		Age:      age(user.birthDate, b.now()),
		Status:   user.status,
		Height:   user.height,
		BodyType: user.bodyType,
		Gender:   user.gender,
		City:     b.cityName(user.cityID),
		CityID:   user.cityID,
		Avatar:   user.avatar,
		Photos:   photos,
		Bio:      user.bio,
		Desires:  user.desires,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func HealthHandler(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, JSONResponse{"status": "ok"})
}
