package client

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/cricket/pkg/auth"
	"github.com/go-go-golems/cricket/pkg/backend"
	"github.com/go-go-golems/cricket/pkg/channel"
	"github.com/go-go-golems/cricket/pkg/conversation"
)

type fakeAPI struct {
	status    backend.Status
	statusErr error
	logoutErr error
	logouts   int
}

func (f *fakeAPI) Status(context.Context) (backend.Status, error) {
	return f.status, f.statusErr
}

func (f *fakeAPI) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

type fakeChannel struct {
	mu       sync.Mutex
	state    channel.State
	connects int
	closes   int
	sent     []string
}

func (f *fakeChannel) Connect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.state = channel.StateOpen
}

func (f *fakeChannel) Send(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != channel.StateOpen {
		return false
	}
	f.sent = append(f.sent, text)
	return true
}

func (f *fakeChannel) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.state = channel.StateIdle
}

func (f *fakeChannel) State() channel.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// immediateAuthorizer resolves synchronously with a fixed outcome.
type immediateAuthorizer struct {
	outcome auth.Outcome
	err     error
	begins  int
}

func (a *immediateAuthorizer) Begin(_ context.Context, onOutcome func(auth.Outcome)) error {
	if a.err != nil {
		return a.err
	}
	a.begins++
	onOutcome(a.outcome)
	return nil
}

func (a *immediateAuthorizer) InFlight() bool { return false }

type harness struct {
	client         *Client
	api            *fakeAPI
	store          *conversation.Store
	ch             *fakeChannel
	onAuthRejected func()
}

func newHarness(t *testing.T, authorizer Authorizer, api *fakeAPI) *harness {
	t.Helper()
	h := &harness{
		api:   api,
		store: conversation.NewStore(),
		ch:    &fakeChannel{},
	}
	h.client = New(Options{
		API:        api,
		Store:      h.store,
		Authorizer: authorizer,
		NewChannel: func(_ func() bool, onAuthRejected func()) Channel {
			h.onAuthRejected = onAuthRejected
			return h.ch
		},
		Logger: zerolog.Nop(),
	})
	return h
}

func TestSignInSuccessOpensChannelAndFetchesProfile(t *testing.T) {
	api := &fakeAPI{status: backend.Status{
		Authenticated: true,
		User:          &backend.UserProfile{ID: "7", Email: "ada@example.com", Name: "Ada Lovelace"},
	}}
	h := newHarness(t, &immediateAuthorizer{outcome: auth.OutcomeAuthenticated}, api)

	require.NoError(t, h.client.SignIn(context.Background()))

	sess := h.client.Session()
	assert.True(t, sess.Authenticated)
	require.NotNil(t, sess.User)
	assert.Equal(t, "ada@example.com", sess.User.Email)
	assert.Equal(t, 1, h.ch.connects)
	assert.Equal(t, channel.StateOpen, h.client.ChannelState())
}

func TestAbandonedSignInChangesNothing(t *testing.T) {
	api := &fakeAPI{}
	h := newHarness(t, &immediateAuthorizer{outcome: auth.OutcomeAbandoned}, api)

	require.NoError(t, h.client.SignIn(context.Background()))

	assert.False(t, h.client.Session().Authenticated)
	assert.Equal(t, 0, h.ch.connects)
}

func TestSignInWindowFailureSurfacesError(t *testing.T) {
	api := &fakeAPI{}
	h := newHarness(t, &immediateAuthorizer{err: errors.New("popup blocked")}, api)

	err := h.client.SignIn(context.Background())
	require.Error(t, err)
	assert.False(t, h.client.Session().Authenticated)
}

func TestLogoutClearsEverything(t *testing.T) {
	api := &fakeAPI{status: backend.Status{Authenticated: true, User: &backend.UserProfile{ID: "7"}}}
	h := newHarness(t, &immediateAuthorizer{outcome: auth.OutcomeAuthenticated}, api)

	require.NoError(t, h.client.SignIn(context.Background()))
	h.store.Append("hello", conversation.SenderLocal, false)
	h.store.Append("hi there", conversation.SenderRemote, false)

	require.NoError(t, h.client.Logout(context.Background()))

	assert.Equal(t, 1, api.logouts)
	assert.False(t, h.client.Session().Authenticated)
	assert.Nil(t, h.client.Session().User)
	assert.Equal(t, 0, h.store.Len())
	assert.Equal(t, 1, h.ch.closes)
	assert.Equal(t, channel.StateIdle, h.client.ChannelState())
}

func TestLogoutKeepsStateWhenBackendFails(t *testing.T) {
	api := &fakeAPI{
		status:    backend.Status{Authenticated: true},
		logoutErr: errors.New("backend down"),
	}
	h := newHarness(t, &immediateAuthorizer{outcome: auth.OutcomeAuthenticated}, api)

	require.NoError(t, h.client.SignIn(context.Background()))
	require.Error(t, h.client.Logout(context.Background()))

	assert.True(t, h.client.Session().Authenticated)
	assert.Equal(t, 0, h.ch.closes)
}

func TestSendRequiresChannel(t *testing.T) {
	api := &fakeAPI{status: backend.Status{Authenticated: true}}
	h := newHarness(t, &immediateAuthorizer{outcome: auth.OutcomeAuthenticated}, api)

	assert.False(t, h.client.Send("too early"))

	require.NoError(t, h.client.SignIn(context.Background()))
	assert.True(t, h.client.Send("hello"))
	assert.Equal(t, []string{"hello"}, h.ch.sent)
}

func TestChannelAuthRejectionResetsSession(t *testing.T) {
	api := &fakeAPI{status: backend.Status{Authenticated: true}}
	h := newHarness(t, &immediateAuthorizer{outcome: auth.OutcomeAuthenticated}, api)

	require.NoError(t, h.client.SignIn(context.Background()))
	require.True(t, h.client.Session().Authenticated)
	require.NotNil(t, h.onAuthRejected)

	h.onAuthRejected()
	assert.False(t, h.client.Session().Authenticated)
}
