package auth

import (
	"net"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// SuccessSentinel is the opaque value the redirect landing page posts back to
// the opener to signal a completed authorization.
const SuccessSentinel = "auth_success"

// Sentinel delivers out-of-band completion signals for an authorization
// attempt. Values other than SuccessSentinel are ignored by the handshake.
type Sentinel interface {
	Messages() <-chan string
}

// LoopbackSentinel is the native stand-in for the browser's cross-window
// message channel: a loopback HTTP listener the redirect landing page can ping
// with GET or POST /auth/complete?result=auth_success.
type LoopbackSentinel struct {
	addr   string
	srv    *http.Server
	ln     net.Listener
	ch     chan string
	logger zerolog.Logger
}

var _ Sentinel = (*LoopbackSentinel)(nil)

func NewLoopbackSentinel(addr string, logger zerolog.Logger) *LoopbackSentinel {
	return &LoopbackSentinel{
		addr:   addr,
		ch:     make(chan string, 4),
		logger: logger.With().Str("component", "sentinel").Logger(),
	}
}

func (s *LoopbackSentinel) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.addr)
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/complete", s.handleComplete)
	s.srv = &http.Server{Handler: mux}

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Warn().Err(err).Msg("sentinel listener stopped")
		}
	}()
	s.logger.Debug().Str("addr", ln.Addr().String()).Msg("sentinel listening")
	return nil
}

// Addr returns the bound address, useful when addr was ":0".
func (s *LoopbackSentinel) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *LoopbackSentinel) Messages() <-chan string {
	return s.ch
}

func (s *LoopbackSentinel) Close() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Close()
}

func (s *LoopbackSentinel) handleComplete(w http.ResponseWriter, r *http.Request) {
	result := r.URL.Query().Get("result")
	if result == "" {
		result = r.PostFormValue("result")
	}
	select {
	case s.ch <- result:
	default:
		s.logger.Warn().Msg("dropping sentinel signal (channel full)")
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("You can close this window and return to the application.\n"))
}
