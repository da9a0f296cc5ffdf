package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/cricket/pkg/auth"
	"github.com/go-go-golems/cricket/pkg/backend"
	"github.com/go-go-golems/cricket/pkg/channel"
	"github.com/go-go-golems/cricket/pkg/client"
	"github.com/go-go-golems/cricket/pkg/config"
	"github.com/go-go-golems/cricket/pkg/conversation"
	"github.com/go-go-golems/cricket/pkg/ui"
)

var (
	logLevel string
	logFile  string
)

var rootCmd = &cobra.Command{
	Use:   "cricket",
	Short: "cricket is a terminal chat client for the MCP chatbot backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides CRICKET_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file (default: discard, the TUI owns the terminal)")
	rootCmd.AddCommand(chatCmd)
}

func buildLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, errors.Wrapf(err, "parse log level %q", level)
	}

	var w io.Writer = io.Discard
	cleanup := func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, errors.Wrapf(err, "open log file %q", logFile)
		}
		w = f
		cleanup = func() { _ = f.Close() }
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(parsed), cleanup, nil
}

func runChat() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, cleanup, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	wsURL, err := cfg.WebSocketURL()
	if err != nil {
		return err
	}

	api := backend.NewClient(cfg.BackendURL, logger)
	store := conversation.NewStore()

	var sentinel auth.Sentinel
	loopback := auth.NewLoopbackSentinel(cfg.CallbackAddr, logger)
	if err := loopback.Start(); err != nil {
		// The status poll and window watcher still carry the handshake.
		logger.Warn().Err(err).Msg("sentinel listener unavailable")
	} else {
		sentinel = loopback
		defer func() { _ = loopback.Close() }()
	}

	handshake := auth.NewHandshake(auth.Options{
		Opener:   auth.BrowserOpener{},
		Sentinel: sentinel,
		Status: func(ctx context.Context) (bool, error) {
			st, err := api.Status(ctx)
			return st.Authenticated, err
		},
		ClientID:   cfg.GoogleClientID,
		BackendURL: cfg.BackendURL,
		Logger:     logger,
	})

	// The program pointer is only available after construction; callbacks fire
	// later, from user interaction inside Run.
	var program atomic.Pointer[tea.Program]
	notify := func() {
		if p := program.Load(); p != nil {
			p.Send(ui.RefreshMsg{})
		}
	}
	store.SetOnChange(notify)

	newChannel := func(authenticated func() bool, onAuthRejected func()) client.Channel {
		return channel.NewManager(channel.Options{
			URL:            wsURL,
			Dialer:         channel.NewGorillaDialer(),
			Store:          store,
			Authenticated:  authenticated,
			OnAuthRejected: onAuthRejected,
			OnStateChange:  func(channel.State) { notify() },
			Logger:         logger,
		})
	}

	c := client.New(client.Options{
		API:        api,
		Store:      store,
		Authorizer: handshake,
		NewChannel: newChannel,
		OnChange:   notify,
		Logger:     logger,
	})
	defer c.Close()

	p := tea.NewProgram(ui.New(c), tea.WithAltScreen())
	program.Store(p)
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "run ui")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
