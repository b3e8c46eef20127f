package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"ume-client/models"

	"go.uber.org/zap"
)

var (
	ErrNoUserID = errors.New("no user id: registration required")
	ErrStopped  = errors.New("polling stopped")
)

// StatusChecker fetches the moderation status of a user.
type StatusChecker interface {
	VerificationStatus(ctx context.Context, userID int64) (models.StatusResult, error)
}

// Update is reported after every status request.
type Update struct {
	Attempt  int
	Status   models.ModerationStatus
	Err      error
	Terminal bool
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

var newTicker = func(d time.Duration) ticker {
	return timeTicker{time.NewTicker(d)}
}

type Poller struct {
	checker  StatusChecker
	interval time.Duration
	log      *zap.Logger
}

func New(checker StatusChecker, interval time.Duration, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{checker: checker, interval: interval, log: log.Named("poller")}
}

// Start schedules status requests for userID every interval until a terminal
// status arrives, ctx is done or the handle is stopped. The first request is
// sent on the first tick and requests never overlap.
func (p *Poller) Start(ctx context.Context, userID int64, onUpdate func(Update)) (*Handle, error) {
	if userID <= 0 {
		return nil, ErrNoUserID
	}
	if p.interval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	h := &Handle{
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		status: models.StatusPending,
	}
	t := newTicker(p.interval)
	go p.run(ctx, h, t, userID, onUpdate)
	return h, nil
}

func (p *Poller) run(ctx context.Context, h *Handle, t ticker, userID int64, onUpdate func(Update)) {
	defer close(h.done)
	defer t.Stop()

	log := p.log.With(zap.Int64("user_id", userID))
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			h.finish(ctx.Err())
			return
		case <-h.stop:
			h.finish(ErrStopped)
			return
		case <-t.C():
		}

		result, err := p.checker.VerificationStatus(ctx, userID)
		update := Update{Attempt: attempt, Err: err}
		if err != nil {
			log.Warn("status check failed", zap.Int("attempt", attempt), zap.Error(err))
			update.Status = h.Status()
		} else {
			if !result.Status.Known() {
				log.Warn("unknown moderation status", zap.String("status", string(result.Status)))
			}
			update.Status = result.Status
			update.Terminal = result.Status.IsTerminal()
			h.setStatus(result.Status)
			log.Debug("status", zap.Int("attempt", attempt), zap.String("status", string(result.Status)))
		}

		if onUpdate != nil {
			onUpdate(update)
		}
		if update.Terminal {
			h.finish(nil)
			return
		}
	}
}

// Handle owns one running poll schedule.
type Handle struct {
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	mu     sync.Mutex
	status models.ModerationStatus
	err    error
}

// Stop cancels the schedule. A request already in flight completes on its
// own; no further request is sent. Safe to call more than once.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Done is closed when the schedule has ended and its ticker is released.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) Status() models.ModerationStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Wait blocks until the schedule ends. err is nil when a terminal status was
// reached.
func (h *Handle) Wait(ctx context.Context) (models.ModerationStatus, error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		return h.Status(), ctx.Err()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status, h.err
}

func (h *Handle) setStatus(status models.ModerationStatus) {
	h.mu.Lock()
	h.status = status
	h.mu.Unlock()
}

func (h *Handle) finish(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}
