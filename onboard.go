package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"ume-client/models"
	"ume-client/onboarding"
	"ume-client/poller"
)

type prompter struct {
	r   *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{r: bufio.NewReader(in), out: out}
}

// ask prints label and reads one trimmed line. io.EOF is returned only when
// no input is left at all.
func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

var errBlocked = errors.New("account is blocked: contact support")

// runOnboard walks the user from login or registration to the profile,
// reading answers from stdin. Quitting or running out of input ends it
// without an error.
func runOnboard(ctx context.Context, a *app, _ []string) error {
	step, err := a.controller.Start(ctx)
	if err != nil {
		return err
	}

	for {
		switch step {
		case onboarding.StepLogin:
			step, err = onboardLogin(ctx, a)
		case onboarding.StepRegistration:
			step, err = onboardRegistration(ctx, a)
		case onboarding.StepVerification:
			step, err = onboardVerification(ctx, a)
		case onboarding.StepPending:
			step, err = onboardPending(ctx, a)
		case onboarding.StepProfile:
			var profile *models.UserProfile
			profile, step, err = a.controller.Profile(ctx)
			if err == nil && profile != nil {
				return a.print(profile)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// showError prints form errors field by field and anything else as one line.
func showError(a *app, err error) {
	var errs onboarding.FormErrors
	if !errors.As(err, &errs) {
		fmt.Fprintf(a.out, "! %v\n", err)
		return
	}
	if alert := errs.Alert(); alert != "" {
		fmt.Fprintf(a.out, "! %s\n", alert)
	}
	fields := make([]string, 0, len(errs))
	for field := range errs {
		if field != "" {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintf(a.out, "  %s: %s\n", field, errs[field])
	}
}

func onboardLogin(ctx context.Context, a *app) (onboarding.Step, error) {
	choice, err := a.in.ask("[l]ogin, [r]egister, [s]tatus of a pending account or [q]uit")
	if err != nil {
		return onboarding.StepLogin, err
	}
	switch strings.ToLower(choice) {
	case "r", "register":
		return onboarding.StepRegistration, nil
	case "s", "status":
		return onboarding.StepPending, nil
	case "q", "quit":
		return onboarding.StepLogin, io.EOF
	case "l", "login":
	default:
		return onboarding.StepLogin, nil
	}

	email, err := a.in.ask("E-mail")
	if err != nil {
		return onboarding.StepLogin, err
	}
	password, err := a.in.ask("Password")
	if err != nil {
		return onboarding.StepLogin, err
	}
	step, err := a.controller.Login(ctx, email, password)
	if err != nil {
		showError(a, err)
	}
	return step, nil
}

func onboardRegistration(ctx context.Context, a *app) (onboarding.Step, error) {
	form := a.controller.Form()
	fields := []struct {
		label string
		value *string
	}{
		{"E-mail", &form.Email},
		{"Name", &form.Name},
		{"Birth date (YYYY-MM-DD)", &form.BirthDate},
		{"Height, cm", &form.Height},
		{"Gender (male/female)", &form.Gender},
		{"Body type (average/slim/athletic/full/muscular)", &form.BodyType},
	}
	for _, f := range fields {
		label := f.label
		if *f.value != "" {
			label = fmt.Sprintf("%s [%s]", label, *f.value)
		}
		answer, err := a.in.ask(label)
		if err != nil {
			return onboarding.StepRegistration, err
		}
		if answer != "" {
			*f.value = answer
		}
	}
	if err := chooseCity(ctx, a, form); err != nil {
		return onboarding.StepRegistration, err
	}

	step, err := a.controller.Register(ctx)
	if err != nil {
		if len(form.Errors) > 0 {
			err = form.Errors
		}
		showError(a, err)
		return step, nil
	}
	fmt.Fprintln(a.out, "Registered.")
	return step, nil
}

func chooseCity(ctx context.Context, a *app, form *onboarding.RegistrationForm) error {
	for {
		query, err := a.in.ask("City (type the first letters)")
		if err != nil {
			return err
		}
		cities, err := a.controller.Cities(ctx, query)
		if err != nil {
			fmt.Fprintf(a.out, "! %v\n", err)
			continue
		}
		if len(cities) == 0 {
			fmt.Fprintln(a.out, "No matching city.")
			continue
		}
		for i, city := range cities {
			fmt.Fprintf(a.out, "  %d) %s\n", i+1, city.Name)
		}
		pick, err := a.in.ask("Number")
		if err != nil {
			return err
		}
		var n int
		if _, err := fmt.Sscanf(pick, "%d", &n); err != nil || n < 1 || n > len(cities) {
			fmt.Fprintln(a.out, "Pick one of the listed numbers.")
			continue
		}
		form.CityID = fmt.Sprintf("%d", cities[n-1].ID)
		return nil
	}
}

func onboardVerification(ctx context.Context, a *app) (onboarding.Step, error) {
	avatar, err := a.in.ask("Profile photo file")
	if err != nil {
		return onboarding.StepVerification, err
	}
	selfie, err := a.in.ask("Selfie file")
	if err != nil {
		return onboarding.StepVerification, err
	}
	step, err := a.controller.SubmitVerification(ctx, models.ImageRef(avatar), models.ImageRef(selfie))
	if err != nil {
		showError(a, err)
		return step, nil
	}
	fmt.Fprintln(a.out, "Photos sent for moderation.")
	return step, nil
}

func onboardPending(ctx context.Context, a *app) (onboarding.Step, error) {
	fmt.Fprintln(a.out, "Waiting for moderation...")
	step, outcome, err := a.controller.WatchStatus(ctx, func(u poller.Update) {
		if u.Err != nil {
			fmt.Fprintf(a.out, "  status check failed: %v\n", u.Err)
		}
	})
	if errors.Is(err, onboarding.ErrNotRegistered) {
		fmt.Fprintln(a.out, "No registration found on this device.")
		return step, nil
	}
	if err != nil {
		return step, err
	}

	switch outcome {
	case poller.Approved:
		fmt.Fprintln(a.out, "Approved. The password was sent to your e-mail.")
	case poller.Rejected:
		fmt.Fprintln(a.out, "Rejected. Please register again with other photos.")
	case poller.Blocked:
		return step, errBlocked
	}
	return step, nil
}
