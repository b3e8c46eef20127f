package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"ume-client/client"
	"ume-client/models"
	"ume-client/onboarding"
	"ume-client/poller"
	"ume-client/store"

	"go.uber.org/zap"
)

// app is what every command runs against.
type app struct {
	api        *client.Client
	session    *store.Session
	controller *onboarding.Controller
	in         *prompter
	out        io.Writer
	log        *zap.Logger
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"cities":          {"list cities, or search them with -q", runCities},
		"register":        {"register a new account", runRegister},
		"verify":          {"upload the profile photo and the verification selfie", runVerify},
		"status":          {"show the moderation status; -wait polls until it is final", runStatus},
		"login":           {"log in with e-mail and password", runLogin},
		"logout":          {"forget the stored access token", runLogout},
		"profile":         {"show the current user's profile", runProfile},
		"edit-profile":    {"change profile fields", runEditProfile},
		"upload-photos":   {"add gallery photos: upload-photos FILE...", runUploadPhotos},
		"reset-password":  {"e-mail a new password", runResetPassword},
		"change-password": {"change the password", runChangePassword},
		"session":         {"print the stored session", runSession},
		"onboard":         {"interactive login, registration and verification", runOnboard},
		"sandbox":         {"serve the in-memory backend", nil},
	}
}

func usage() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("usage: ume-client COMMAND [flags]\n\ncommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-16s %s\n", name, commands[name].summary)
	}
	return b.String()
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// errLoginRequired is returned when a command needs a session the user no
// longer has.
var errLoginRequired = errors.New("not logged in: run `ume-client login`")

func runCities(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("cities", a.out)
	query := fs.String("q", "", "city name prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cities, err := a.controller.Cities(ctx, *query)
	if err != nil {
		return err
	}
	return a.print(cities)
}

func runRegister(ctx context.Context, a *app, args []string) error {
	form := a.controller.Form()
	fs := newFlagSet("register", a.out)
	fs.StringVar(&form.Email, "email", "", "e-mail address")
	fs.StringVar(&form.Name, "name", "", "display name")
	fs.StringVar(&form.BirthDate, "birth-date", "", "birth date, YYYY-MM-DD")
	fs.StringVar(&form.Height, "height", "", "height in cm")
	fs.StringVar(&form.Gender, "gender", "", "male or female")
	fs.StringVar(&form.CityID, "city", "", "city id (see `cities`)")
	fs.StringVar(&form.BodyType, "body-type", "", "average, slim, athletic, full or muscular")
	if err := fs.Parse(args); err != nil {
		return err
	}

	step, err := a.controller.Register(ctx)
	if err != nil {
		return err
	}
	userID, _, err := a.session.UserID(ctx)
	if err != nil {
		return err
	}
	return a.print(map[string]interface{}{"user_id": userID, "next": step.String()})
}

func runVerify(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("verify", a.out)
	avatar := fs.String("avatar", "", "profile photo file")
	selfie := fs.String("selfie", "", "verification selfie file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	step, err := a.controller.SubmitVerification(ctx, models.ImageRef(*avatar), models.ImageRef(*selfie))
	if err != nil {
		return err
	}
	return a.print(map[string]string{"next": step.String()})
}

func runStatus(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("status", a.out)
	wait := fs.Bool("wait", false, "poll until the status is final")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *wait {
		step, outcome, err := a.controller.WatchStatus(ctx, func(u poller.Update) {
			if u.Err != nil {
				fmt.Fprintf(a.out, "attempt %d: %v\n", u.Attempt, u.Err)
				return
			}
			fmt.Fprintf(a.out, "attempt %d: %s\n", u.Attempt, u.Status)
		})
		if err != nil {
			return err
		}
		return a.print(map[string]string{"outcome": outcome.String(), "next": step.String()})
	}

	userID, ok, err := a.session.UserID(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return onboarding.ErrNotRegistered
	}
	result, err := a.api.VerificationStatus(ctx, userID)
	if err != nil {
		return err
	}
	return a.print(map[string]string{"status": string(result.Status), "outcome": poller.OutcomeFor(result.Status).String()})
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login", a.out)
	email := fs.String("email", "", "e-mail address")
	password := fs.String("password", "", "password; prompted when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" && *email != "" {
		var err error
		if *password, err = a.in.ask("Password"); err != nil {
			return err
		}
	}
	step, err := a.controller.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	return a.print(map[string]string{"next": step.String()})
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	step, err := a.controller.Logout(ctx)
	if err != nil {
		return err
	}
	return a.print(map[string]string{"next": step.String()})
}

func runProfile(ctx context.Context, a *app, _ []string) error {
	profile, _, err := a.controller.Profile(ctx)
	if err != nil {
		return err
	}
	if profile == nil {
		return errLoginRequired
	}
	return a.print(profile)
}

func runEditProfile(ctx context.Context, a *app, args []string) error {
	current, _, err := a.controller.Profile(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		return errLoginRequired
	}
	edit := models.EditFromProfile(*current)

	fs := newFlagSet("edit-profile", a.out)
	fs.StringVar(&edit.Name, "name", edit.Name, "display name")
	fs.IntVar(&edit.Height, "height", edit.Height, "height in cm")
	bodyType := fs.String("body-type", string(edit.BodyType), "average, slim, athletic, full or muscular")
	fs.Int64Var(&edit.CityID, "city", edit.CityID, "city id")
	fs.StringVar(&edit.Bio, "bio", edit.Bio, "about me")
	fs.StringVar(&edit.Desires, "desires", edit.Desires, "what I am looking for")
	if err := fs.Parse(args); err != nil {
		return err
	}
	edit.BodyType = models.BodyType(*bodyType)

	profile, _, err := a.controller.EditProfile(ctx, edit)
	if err != nil {
		return err
	}
	if profile == nil {
		return errLoginRequired
	}
	return a.print(profile)
}

func runUploadPhotos(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("upload-photos", a.out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	photos := make([]models.ImageRef, 0, fs.NArg())
	for _, path := range fs.Args() {
		photos = append(photos, models.ImageRef(path))
	}
	result, _, err := a.controller.UploadPhotos(ctx, photos)
	if err != nil {
		return err
	}
	if result == nil {
		return errLoginRequired
	}
	return a.print(result)
}

func runResetPassword(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("reset-password", a.out)
	email := fs.String("email", "", "e-mail address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	message, err := a.controller.ResetPassword(ctx, *email)
	if err != nil {
		return err
	}
	return a.print(map[string]string{"message": message})
}

func runChangePassword(ctx context.Context, a *app, args []string) error {
	var req models.ChangePasswordRequest
	fs := newFlagSet("change-password", a.out)
	fs.StringVar(&req.Email, "email", "", "e-mail address")
	fs.StringVar(&req.OldPassword, "old", "", "current password")
	fs.StringVar(&req.NewPassword, "new", "", "new password, at least 8 characters")
	fs.StringVar(&req.ConfirmPassword, "confirm", "", "new password again")
	if err := fs.Parse(args); err != nil {
		return err
	}
	message, err := a.controller.ChangePassword(ctx, req)
	if err != nil {
		return err
	}
	return a.print(map[string]string{"message": message})
}

func runSession(ctx context.Context, a *app, _ []string) error {
	snapshot, err := a.session.Snapshot(ctx)
	if err != nil {
		return err
	}
	// The token stays out of terminal output.
	if snapshot.AccessToken != "" {
		snapshot.AccessToken = "set"
	}
	return a.print(snapshot)
}
