package client

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/cricket/pkg/auth"
	"github.com/go-go-golems/cricket/pkg/backend"
	"github.com/go-go-golems/cricket/pkg/channel"
	"github.com/go-go-golems/cricket/pkg/conversation"
)

// Session is the client's belief about whether the user is authenticated,
// plus the cached profile snapshot.
type Session struct {
	Authenticated bool
	User          *backend.UserProfile
}

// BackendAPI is the slice of the backend client the session context uses.
type BackendAPI interface {
	Status(ctx context.Context) (backend.Status, error)
	Logout(ctx context.Context) error
}

// Channel is the slice of the channel manager the client drives.
type Channel interface {
	Connect()
	Send(text string) bool
	Close()
	State() channel.State
}

// Authorizer drives the sign-in handshake.
type Authorizer interface {
	Begin(ctx context.Context, onOutcome func(auth.Outcome)) error
	InFlight() bool
}

// ChannelFactory builds the channel for one authenticated session. The
// authenticated gate and the auth-rejection hook are owned by the client.
type ChannelFactory func(authenticated func() bool, onAuthRejected func()) Channel

// Options configures a Client.
type Options struct {
	API        BackendAPI
	Store      *conversation.Store
	Authorizer Authorizer
	NewChannel ChannelFactory
	// OnChange observes session transitions; invoked outside the client lock.
	OnChange func()
	Logger   zerolog.Logger
}

// Client is the explicitly owned session context: it holds the Session, the
// conversation store, the authorization handshake and the channel for the
// current session. Creation marks session start; Close marks session end.
type Client struct {
	api        BackendAPI
	store      *conversation.Store
	authorizer Authorizer
	newChannel ChannelFactory
	onChange   func()
	logger     zerolog.Logger

	mu   sync.RWMutex
	sess Session
	ch   Channel
}

func New(opts Options) *Client {
	return &Client{
		api:        opts.API,
		store:      opts.Store,
		authorizer: opts.Authorizer,
		newChannel: opts.NewChannel,
		onChange:   opts.OnChange,
		logger:     opts.Logger.With().Str("component", "client").Logger(),
	}
}

func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess
}

func (c *Client) Store() *conversation.Store {
	return c.store
}

// SigningIn reports whether an authorization attempt is in flight.
func (c *Client) SigningIn() bool {
	return c.authorizer.InFlight()
}

// SignIn starts the delegated-authorization handshake. An abandoned attempt
// changes nothing and surfaces no error; a window-open failure is returned so
// the presentation layer can alert the user.
func (c *Client) SignIn(ctx context.Context) error {
	err := c.authorizer.Begin(ctx, func(outcome auth.Outcome) {
		if outcome != auth.OutcomeAuthenticated {
			c.notify()
			return
		}
		c.completeSignIn(ctx)
	})
	if err != nil {
		return errors.Wrap(err, "sign in")
	}
	c.notify()
	return nil
}

// completeSignIn transitions the session to authenticated, fetches the
// profile snapshot once, and opens the channel.
func (c *Client) completeSignIn(ctx context.Context) {
	c.mu.Lock()
	c.sess.Authenticated = true
	c.mu.Unlock()

	if st, err := c.api.Status(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("profile fetch failed")
	} else if st.Authenticated && st.User != nil {
		c.mu.Lock()
		c.sess.User = st.User
		c.mu.Unlock()
	}

	ch := c.newChannel(c.isAuthenticated, c.handleAuthRejected)
	c.mu.Lock()
	c.ch = ch
	c.mu.Unlock()
	ch.Connect()

	c.logger.Info().Msg("session authenticated")
	c.notify()
}

// Logout invalidates the backend session, then clears all local state: the
// session, the profile, the transcript, and the channel (which will not
// reconnect).
func (c *Client) Logout(ctx context.Context) error {
	if err := c.api.Logout(ctx); err != nil {
		return errors.Wrap(err, "logout")
	}

	c.mu.Lock()
	c.sess = Session{}
	ch := c.ch
	c.ch = nil
	c.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
	c.store.Clear()
	c.logger.Info().Msg("session ended")
	c.notify()
	return nil
}

// Send forwards text to the channel; a no-op unless a channel is Open.
func (c *Client) Send(text string) bool {
	c.mu.RLock()
	ch := c.ch
	c.mu.RUnlock()
	if ch == nil {
		return false
	}
	return ch.Send(text)
}

// ChannelState reports the current channel state, StateIdle when no channel
// exists for this session.
func (c *Client) ChannelState() channel.State {
	c.mu.RLock()
	ch := c.ch
	c.mu.RUnlock()
	if ch == nil {
		return channel.StateIdle
	}
	return ch.State()
}

// Close tears the session context down on scope destruction.
func (c *Client) Close() {
	c.mu.Lock()
	ch := c.ch
	c.ch = nil
	c.sess = Session{}
	c.mu.Unlock()
	if ch != nil {
		ch.Close()
	}
}

func (c *Client) isAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.Authenticated
}

// handleAuthRejected resets the session when the channel dial is refused for
// lack of authorization; the channel then settles in Idle on its own.
func (c *Client) handleAuthRejected() {
	c.mu.Lock()
	c.sess = Session{}
	c.mu.Unlock()
	c.logger.Warn().Msg("channel rejected session, signing out")
	c.notify()
}

func (c *Client) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
