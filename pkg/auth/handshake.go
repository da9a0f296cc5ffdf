package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Outcome is the single terminal result of one authorization attempt.
type Outcome string

const (
	OutcomeAuthenticated Outcome = "authenticated"
	OutcomeAbandoned     Outcome = "abandoned"
)

// StatusFunc asks the backend whether the delegated flow has completed
// server-side.
type StatusFunc func(ctx context.Context) (bool, error)

const (
	DefaultPollInterval = time.Second
	DefaultTimeout      = 5 * time.Minute
)

// Options configures a Handshake.
type Options struct {
	Opener   Opener
	Sentinel Sentinel
	Status   StatusFunc

	ClientID   string
	BackendURL string

	PollInterval time.Duration
	Timeout      time.Duration
	Logger       zerolog.Logger
}

// Handshake drives the delegated-authorization flow to exactly one outcome.
//
// A popup-based consent flow has no single reliable completion signal, so each
// attempt arms three contenders: the sentinel posted by the redirect landing
// page, a periodic poll that watches for a closed window and asks the backend
// for status, and a hard timeout. The first to resolve wins and disarms the
// rest; late signals are no-ops.
type Handshake struct {
	opener   Opener
	sentinel Sentinel
	status   StatusFunc

	clientID   string
	backendURL string

	pollInterval time.Duration
	timeout      time.Duration
	logger       zerolog.Logger

	mu     sync.Mutex
	active *attempt
}

func NewHandshake(opts Options) *Handshake {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Handshake{
		opener:       opts.Opener,
		sentinel:     opts.Sentinel,
		status:       opts.Status,
		clientID:     opts.ClientID,
		backendURL:   opts.BackendURL,
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
		logger:       opts.Logger.With().Str("component", "auth").Logger(),
	}
}

// InFlight reports whether an attempt is currently active.
func (h *Handshake) InFlight() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active != nil
}

// Begin starts one authorization attempt. While an attempt is in flight,
// further calls are ignored. A failure to open the authorization window is
// returned immediately and aborts the attempt; everything after that resolves
// through onOutcome exactly once.
func (h *Handshake) Begin(ctx context.Context, onOutcome func(Outcome)) error {
	h.mu.Lock()
	if h.active != nil {
		h.mu.Unlock()
		h.logger.Debug().Msg("authorization attempt already in flight, ignoring")
		return nil
	}

	state := uuid.NewString()
	url := ConsentURL(h.clientID, h.backendURL, state)
	window, err := h.opener.Open(url)
	if err != nil {
		h.mu.Unlock()
		return errors.Wrap(err, "begin authorization")
	}

	a := &attempt{
		h:         h,
		window:    window,
		onOutcome: onOutcome,
		stop:      make(chan struct{}),
	}
	a.ticker = time.NewTicker(h.pollInterval)
	a.timer = time.AfterFunc(h.timeout, func() {
		h.logger.Info().Msg("authorization attempt timed out")
		a.resolve(OutcomeAbandoned)
	})
	h.active = a
	h.mu.Unlock()

	h.logger.Info().Str("state", state).Msg("authorization window opened")
	go a.pollLoop(ctx)
	if h.sentinel != nil {
		go a.listenSentinel()
	}
	return nil
}

// attempt holds the three contenders for one handshake run. They are armed
// together and retired together through resolve.
type attempt struct {
	h         *Handshake
	window    Window
	onOutcome func(Outcome)

	ticker *time.Ticker
	timer  *time.Timer
	stop   chan struct{}

	mu   sync.Mutex
	done bool
}

// resolve records the terminal outcome. It is idempotent: the first call
// disarms the ticker, the timeout, the sentinel listener and the window; every
// later call is a no-op, so no contender can re-fire a transition.
func (a *attempt) resolve(outcome Outcome) {
	a.mu.Lock()
	if a.done {
		a.mu.Unlock()
		return
	}
	a.done = true
	a.mu.Unlock()

	a.ticker.Stop()
	a.timer.Stop()
	close(a.stop)
	if !a.window.Closed() {
		_ = a.window.Close()
	}

	a.h.mu.Lock()
	if a.h.active == a {
		a.h.active = nil
	}
	a.h.mu.Unlock()

	a.h.logger.Info().Str("outcome", string(outcome)).Msg("authorization attempt resolved")
	if a.onOutcome != nil {
		a.onOutcome(outcome)
	}
}

// pollLoop is contender two: every tick it first checks whether the user
// closed the window (one final backend check decides between a server-side
// completion and abandonment), then asks the backend for status so a flow that
// completed without a sentinel still succeeds.
func (a *attempt) pollLoop(ctx context.Context) {
	for {
		select {
		case <-a.stop:
			return
		case <-a.ticker.C:
			if a.window.Closed() {
				if a.checkStatus(ctx) {
					a.resolve(OutcomeAuthenticated)
				} else {
					a.h.logger.Info().Msg("authorization window closed without success")
					a.resolve(OutcomeAbandoned)
				}
				return
			}
			if a.checkStatus(ctx) {
				a.resolve(OutcomeAuthenticated)
				return
			}
		}
	}
}

func (a *attempt) checkStatus(ctx context.Context) bool {
	ok, err := a.h.status(ctx)
	if err != nil {
		a.h.logger.Debug().Err(err).Msg("auth status check failed")
		return false
	}
	return ok
}

// listenSentinel is contender one: receipt of the success sentinel is
// authoritative.
func (a *attempt) listenSentinel() {
	for {
		select {
		case <-a.stop:
			return
		case msg, ok := <-a.h.sentinel.Messages():
			if !ok {
				return
			}
			if msg == SuccessSentinel {
				a.resolve(OutcomeAuthenticated)
				return
			}
		}
	}
}
