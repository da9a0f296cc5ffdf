package channel

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/cricket/pkg/conversation"
)

// ErrAuthRejected marks a dial refused by the backend for lack of
// authorization. It resets the session instead of triggering a reconnect.
var ErrAuthRejected = errors.New("channel: authorization rejected")

// State is the lifecycle of the single logical channel.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateWaitingToReconnect
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateWaitingToReconnect:
		return "waiting-to-reconnect"
	default:
		return "unknown"
	}
}

// Conn is the subset of a websocket connection the manager needs.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

// Dialer establishes one connection attempt.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

const DefaultReconnectDelay = 2 * time.Second

// Options configures a Manager.
type Options struct {
	URL    string
	Dialer Dialer
	Store  *conversation.Store
	// Authenticated gates connection and reconnection. It must not call back
	// into the manager.
	Authenticated func() bool
	// OnAuthRejected fires when a dial is refused with ErrAuthRejected.
	OnAuthRejected func()
	// OnStateChange observes transitions; invoked outside the manager lock.
	OnStateChange  func(State)
	ReconnectDelay time.Duration
	Logger         zerolog.Logger
}

// Manager owns the lifecycle of the single logical messaging channel: connect,
// dispatch inbound frames, send outbound frames, reconnect after a fixed delay
// while the session stays authenticated, and tear down.
type Manager struct {
	url            string
	dialer         Dialer
	store          *conversation.Store
	authenticated  func() bool
	onAuthRejected func()
	onStateChange  func(State)
	reconnectDelay time.Duration
	logger         zerolog.Logger

	mu             sync.Mutex
	state          State
	conn           Conn
	gen            uint64
	reconnectTimer *time.Timer
	closed         bool
}

func NewManager(opts Options) *Manager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Authenticated == nil {
		opts.Authenticated = func() bool { return false }
	}
	return &Manager{
		url:            opts.URL,
		dialer:         opts.Dialer,
		store:          opts.Store,
		authenticated:  opts.Authenticated,
		onAuthRejected: opts.OnAuthRejected,
		onStateChange:  opts.OnStateChange,
		reconnectDelay: opts.ReconnectDelay,
		logger:         opts.Logger.With().Str("component", "channel").Logger(),
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect starts one connection attempt. It is idempotent while a channel is
// already Connecting or Open, so at most one connection is live at a time.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.closed || m.state == StateConnecting || m.state == StateOpen {
		m.mu.Unlock()
		return
	}
	m.stopReconnectTimerLocked()
	m.state = StateConnecting
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	m.notifyState(StateConnecting)
	go m.run(gen)
}

func (m *Manager) run(gen uint64) {
	conn, err := m.dialer.DialContext(context.Background(), m.url)
	if err != nil {
		m.logger.Warn().Err(err).Str("url", m.url).Msg("channel dial failed")
		if errors.Is(err, ErrAuthRejected) && m.onAuthRejected != nil {
			m.onAuthRejected()
		}
		m.handleClose(gen)
		return
	}

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	m.state = StateOpen
	m.mu.Unlock()
	m.notifyState(StateOpen)
	m.logger.Info().Str("url", m.url).Msg("channel open")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.logger.Info().Err(err).Msg("channel closed")
			break
		}
		m.dispatch(data)
	}
	m.handleClose(gen)
}

// handleClose runs the close edge of the state machine: tear the connection
// down, then either go Idle (session no longer authenticated) or schedule
// exactly one reconnect attempt after the fixed delay.
func (m *Manager) handleClose(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	if !m.authenticated() {
		m.state = StateIdle
		m.mu.Unlock()
		m.notifyState(StateIdle)
		return
	}
	m.state = StateWaitingToReconnect
	m.reconnectTimer = time.AfterFunc(m.reconnectDelay, m.reconnect)
	m.mu.Unlock()
	m.notifyState(StateWaitingToReconnect)
	m.logger.Info().Dur("delay", m.reconnectDelay).Msg("reconnect scheduled")
}

func (m *Manager) reconnect() {
	m.mu.Lock()
	if m.closed || m.state != StateWaitingToReconnect {
		m.mu.Unlock()
		return
	}
	if !m.authenticated() {
		m.state = StateIdle
		m.mu.Unlock()
		m.notifyState(StateIdle)
		return
	}
	m.state = StateIdle
	m.mu.Unlock()
	m.Connect()
}

// Send appends a local message optimistically and transmits one message frame
// with the trimmed text. It is a no-op when the text is blank or no channel is
// Open. Transmission is fire-and-forget: a failed write is logged, never
// rolled back.
func (m *Manager) Send(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	m.mu.Lock()
	if m.state != StateOpen || m.conn == nil {
		m.mu.Unlock()
		return false
	}
	conn := m.conn
	m.mu.Unlock()

	m.store.Append(text, conversation.SenderLocal, false)
	if err := conn.WriteJSON(Frame{Type: FrameMessage, Message: text}); err != nil {
		m.logger.Warn().Err(err).Msg("channel send failed")
	}
	return true
}

// Close tears the channel down for good: the connection is closed, any pending
// reconnect timer is cancelled, and no handler fires afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.gen++
	m.stopReconnectTimerLocked()
	conn := m.conn
	m.conn = nil
	m.state = StateIdle
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	m.notifyState(StateIdle)
}

func (m *Manager) stopReconnectTimerLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

func (m *Manager) notifyState(s State) {
	if m.onStateChange != nil {
		m.onStateChange(s)
	}
}

// dispatch routes one inbound payload by frame type. Malformed or unknown
// payloads are dropped; the channel stays open.
func (m *Manager) dispatch(data []byte) {
	f, err := ParseFrame(data)
	if err != nil {
		m.logger.Debug().Err(err).Msg("dropping malformed frame")
		return
	}
	switch f.Type {
	case FrameResponse:
		m.store.SetComposing(false)
		m.store.Append(f.Message, conversation.SenderRemote, false)
	case FrameTyping:
		m.store.SetComposing(true)
	case FrameError:
		m.store.SetComposing(false)
		m.store.Append("Error: "+f.Message, conversation.SenderRemote, true)
	case FramePing, FramePong:
		// liveness only, no conversation effect
	default:
		m.logger.Debug().Str("type", string(f.Type)).Msg("dropping frame of unknown type")
	}
}
