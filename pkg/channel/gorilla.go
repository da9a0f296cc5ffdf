package channel

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// GorillaDialer adapts gorilla/websocket to the Dialer interface.
type GorillaDialer struct {
	Dialer *websocket.Dialer
}

var _ Dialer = (*GorillaDialer)(nil)

func NewGorillaDialer() *GorillaDialer {
	return &GorillaDialer{Dialer: websocket.DefaultDialer}
}

func (d *GorillaDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, errors.Wrapf(ErrAuthRejected, "dial %s: status %d", url, resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	return conn, nil
}
