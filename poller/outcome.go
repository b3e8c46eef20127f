package poller

import "ume-client/models"

// Outcome is what a front end shows for a moderation status.
type Outcome int

const (
	// Waiting shows progress; pending and unknown statuses.
	Waiting Outcome = iota
	// Approved links to login.
	Approved
	// Rejected links back to registration.
	Rejected
	// Blocked links to support and login.
	Blocked
)

func (o Outcome) String() string {
	switch o {
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	case Blocked:
		return "blocked"
	default:
		return "waiting"
	}
}

func OutcomeFor(status models.ModerationStatus) Outcome {
	switch status {
	case models.StatusActive:
		return Approved
	case models.StatusRejected:
		return Rejected
	case models.StatusBanned, models.StatusDeleted, models.StatusInactive:
		return Blocked
	default:
		return Waiting
	}
}
