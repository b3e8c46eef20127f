package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ume-client/client"
	"ume-client/models"
	"ume-client/poller"
	"ume-client/store"

	"go.uber.org/zap"
)

type Step int

const (
	StepLogin Step = iota
	StepRegistration
	StepVerification
	StepPending
	StepProfile
)

func (s Step) String() string {
	switch s {
	case StepRegistration:
		return "registration"
	case StepVerification:
		return "verification"
	case StepPending:
		return "pending"
	case StepProfile:
		return "profile"
	default:
		return "login"
	}
}

// API is the backend surface the flow needs. *client.Client implements it.
type API interface {
	RegistrationAPI
	VerificationAPI
	poller.StatusChecker
	ListCities(ctx context.Context) (models.CityList, error)
	SearchCities(ctx context.Context, query string) (models.CityList, error)
	Login(ctx context.Context, username, password string) (models.LoginResult, error)
	MyProfile(ctx context.Context) (models.UserProfile, error)
	EditProfile(ctx context.Context, edit models.ProfileEdit) (models.UserProfile, error)
	UploadPhotos(ctx context.Context, photos []models.ImageRef) (models.PhotoUploadResult, error)
	ResetPassword(ctx context.Context, email string) (models.MessageResult, error)
	ChangePassword(ctx context.Context, req models.ChangePasswordRequest) (models.MessageResult, error)
	OnSessionInvalid(fn func(client.SessionEvent)) func()
}

type Options struct {
	PollInterval    time.Duration
	ProfileCacheTTL time.Duration
}

// Controller sequences login, registration, verification and moderation
// polling. It only moves forward on an explicit success and moves back to
// the step that produces a missing session value.
type Controller struct {
	api       API
	session   *store.Session
	registrar *Registrar
	verifier  *Verifier
	poller    *poller.Poller
	cacheTTL  time.Duration
	log       *zap.Logger

	mu          sync.Mutex
	step        Step
	form        *RegistrationForm
	unsubscribe func()
}

func NewController(api API, session *store.Session, opts Options, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("onboarding")
	c := &Controller{
		api:       api,
		session:   session,
		registrar: NewRegistrar(api, session, log),
		verifier:  NewVerifier(api, session, log),
		poller:    poller.New(api, opts.PollInterval, log),
		cacheTTL:  opts.ProfileCacheTTL,
		log:       log,
		step:      StepLogin,
		form:      &RegistrationForm{},
	}
	c.unsubscribe = api.OnSessionInvalid(c.handleSessionEvent)
	return c
}

// Close detaches the controller from session events.
func (c *Controller) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Controller) moveTo(step Step) Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != step {
		c.log.Debug("step", zap.Stringer("from", c.step), zap.Stringer("to", step))
	}
	c.step = step
	return step
}

// Form is the registration form owned by the controller.
func (c *Controller) Form() *RegistrationForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

func (c *Controller) handleSessionEvent(event client.SessionEvent) {
	c.log.Info("session invalidated",
		zap.String("reason", string(event.Reason)),
		zap.String("path", event.Path),
	)
	if err := c.session.ClearAccessToken(context.Background()); err != nil {
		c.log.Error("clear access token", zap.Error(err))
	}
	c.moveTo(StepLogin)
}

// Start picks the first step from the stored session.
func (c *Controller) Start(ctx context.Context) (Step, error) {
	snapshot, err := c.session.Snapshot(ctx)
	if err != nil {
		return c.Step(), fmt.Errorf("read session: %w", err)
	}
	if snapshot.Authenticated() {
		return c.moveTo(StepProfile), nil
	}
	return c.moveTo(StepLogin), nil
}

// Cities lists every city, or the ones starting with query.
func (c *Controller) Cities(ctx context.Context, query string) ([]models.City, error) {
	var (
		list models.CityList
		err  error
	)
	if strings.TrimSpace(query) == "" {
		list, err = c.api.ListCities(ctx)
	} else {
		list, err = c.api.SearchCities(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("load cities: %w", err)
	}
	return list.Items, nil
}

func (c *Controller) Login(ctx context.Context, username, password string) (Step, error) {
	if errs := check(loginForm{Username: strings.TrimSpace(username), Password: password}); errs != nil {
		return c.moveTo(StepLogin), errs
	}

	result, err := c.api.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return c.moveTo(StepLogin), fmt.Errorf("login: %w", err)
	}
	if err := c.session.SetAccessToken(ctx, result.AccessToken); err != nil {
		return c.moveTo(StepLogin), fmt.Errorf("persist access token: %w", err)
	}
	if err := c.session.DropCachedProfile(ctx); err != nil {
		c.log.Warn("drop cached profile", zap.Error(err))
	}
	c.log.Info("logged in")
	return c.moveTo(StepProfile), nil
}

// Logout forgets the access token; the user id survives.
func (c *Controller) Logout(ctx context.Context) (Step, error) {
	if err := c.session.ClearAccessToken(ctx); err != nil {
		return c.Step(), fmt.Errorf("clear access token: %w", err)
	}
	return c.moveTo(StepLogin), nil
}

// Register submits the controller's form. On failure the step stays on
// registration and the form carries the errors.
func (c *Controller) Register(ctx context.Context) (Step, error) {
	if _, err := c.registrar.Submit(ctx, c.Form()); err != nil {
		return c.moveTo(StepRegistration), err
	}
	return c.moveTo(StepVerification), nil
}

func (c *Controller) SubmitVerification(ctx context.Context, avatar, selfie models.ImageRef) (Step, error) {
	_, err := c.verifier.Submit(ctx, avatar, selfie)
	switch {
	case err == nil:
		return c.moveTo(StepPending), nil
	case errors.Is(err, ErrNotRegistered):
		return c.moveTo(StepRegistration), err
	default:
		return c.moveTo(StepVerification), err
	}
}

// WatchStatus polls moderation status for the stored user until a terminal
// status arrives or ctx ends. The schedule is always released on return.
func (c *Controller) WatchStatus(ctx context.Context, onUpdate func(poller.Update)) (Step, poller.Outcome, error) {
	userID, ok, err := c.session.UserID(ctx)
	if err != nil {
		return c.Step(), poller.Waiting, fmt.Errorf("read user id: %w", err)
	}
	if !ok {
		return c.moveTo(StepRegistration), poller.Waiting, ErrNotRegistered
	}
	c.moveTo(StepPending)

	handle, err := c.poller.Start(ctx, userID, onUpdate)
	if err != nil {
		if errors.Is(err, poller.ErrNoUserID) {
			return c.moveTo(StepRegistration), poller.Waiting, ErrNotRegistered
		}
		return c.Step(), poller.Waiting, err
	}
	defer handle.Stop()

	status, err := handle.Wait(ctx)
	if err != nil {
		return c.Step(), poller.Waiting, err
	}

	outcome := poller.OutcomeFor(status)
	c.log.Info("moderation finished", zap.String("status", string(status)), zap.Stringer("outcome", outcome))
	switch outcome {
	case poller.Rejected:
		return c.moveTo(StepRegistration), outcome, nil
	default:
		return c.moveTo(StepLogin), outcome, nil
	}
}

// sessionLost reports whether err means the user has to log in again. The
// token itself is cleared by the session event handler.
func sessionLost(err error) bool {
	return errors.Is(err, client.ErrSessionExpired) || errors.Is(err, client.ErrNotAuthenticated)
}

// Profile returns the current user's profile. A nil profile with StepLogin
// and no error means the user must log in again.
func (c *Controller) Profile(ctx context.Context) (*models.UserProfile, Step, error) {
	token, ok, err := c.session.AccessToken(ctx)
	if err != nil {
		return nil, c.Step(), fmt.Errorf("read access token: %w", err)
	}
	if !ok || token == "" {
		return nil, c.moveTo(StepLogin), nil
	}

	if cached, ok, err := c.session.CachedProfile(ctx, c.cacheTTL); err != nil {
		c.log.Warn("read cached profile", zap.Error(err))
	} else if ok {
		return cached, c.moveTo(StepProfile), nil
	}

	profile, err := c.api.MyProfile(ctx)
	if err != nil {
		if sessionLost(err) {
			return nil, c.moveTo(StepLogin), nil
		}
		return nil, c.Step(), fmt.Errorf("load profile: %w", err)
	}
	c.cacheProfile(ctx, profile)
	return &profile, c.moveTo(StepProfile), nil
}

func (c *Controller) cacheProfile(ctx context.Context, profile models.UserProfile) {
	if c.cacheTTL <= 0 {
		return
	}
	if err := c.session.SetCachedProfile(ctx, profile); err != nil {
		c.log.Warn("cache profile", zap.Error(err))
	}
}

func (c *Controller) EditProfile(ctx context.Context, edit models.ProfileEdit) (*models.UserProfile, Step, error) {
	edit.Name = strings.TrimSpace(edit.Name)
	if errs := check(edit); errs != nil {
		return nil, c.Step(), errs
	}

	profile, err := c.api.EditProfile(ctx, edit)
	if err != nil {
		if sessionLost(err) {
			return nil, c.moveTo(StepLogin), nil
		}
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.HasFieldErrors() {
			return nil, c.Step(), fieldErrors(apiErr.Fields)
		}
		return nil, c.Step(), fmt.Errorf("edit profile: %w", err)
	}
	c.cacheProfile(ctx, profile)
	return &profile, c.moveTo(StepProfile), nil
}

func (c *Controller) UploadPhotos(ctx context.Context, photos []models.ImageRef) (*models.PhotoUploadResult, Step, error) {
	if len(photos) == 0 {
		return nil, c.Step(), FormErrors{"photos": "Choose at least one photo"}
	}

	result, err := c.api.UploadPhotos(ctx, photos)
	if err != nil {
		if sessionLost(err) {
			return nil, c.moveTo(StepLogin), nil
		}
		return nil, c.Step(), fmt.Errorf("upload photos: %w", err)
	}
	if err := c.session.DropCachedProfile(ctx); err != nil {
		c.log.Warn("drop cached profile", zap.Error(err))
	}
	return &result, c.moveTo(StepProfile), nil
}

// ResetPassword asks the backend to e-mail a new password.
func (c *Controller) ResetPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if errs := check(resetForm{Email: email}); errs != nil {
		return "", errs
	}
	result, err := c.api.ResetPassword(ctx, email)
	if err != nil {
		return "", fmt.Errorf("reset password: %w", err)
	}
	return result.Message, nil
}

func (c *Controller) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) (string, error) {
	req.Email = strings.TrimSpace(req.Email)
	form := changePasswordForm{
		Email:           req.Email,
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	}
	if errs := check(form); errs != nil {
		return "", errs
	}
	result, err := c.api.ChangePassword(ctx, req)
	if err != nil {
		return "", fmt.Errorf("change password: %w", err)
	}
	return result.Message, nil
}
