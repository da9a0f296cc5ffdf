package auth

import (
	"os/exec"
	"runtime"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Window is an open authorization window at the identity provider.
type Window interface {
	Closed() bool
	Close() error
}

// Opener opens the consent URL and returns a handle to the window.
type Opener interface {
	Open(url string) (Window, error)
}

// BrowserOpener launches the platform browser.
type BrowserOpener struct{}

var _ Opener = BrowserOpener{}

func (BrowserOpener) Open(url string) (Window, error) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "open authorization window")
	}
	go func() { _ = cmd.Wait() }()
	return &processWindow{}, nil
}

// processWindow cannot observe the browser tab. Launchers like xdg-open and
// open hand the URL to an already-running browser and exit within
// milliseconds, so process exit says nothing about the window; the handle
// reports closed only after an explicit Close, and the sentinel, the status
// poll and the hard timeout carry the handshake to its outcome.
type processWindow struct {
	closed atomic.Bool
}

func (w *processWindow) Closed() bool {
	return w.closed.Load()
}

// Close cannot reach into the user's browser to close the consent tab; it only
// marks the handle closed so the attempt stops watching it.
func (w *processWindow) Close() error {
	w.closed.Store(true)
	return nil
}
