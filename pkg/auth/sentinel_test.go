package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackSentinelDeliversSignal(t *testing.T) {
	s := NewLoopbackSentinel("127.0.0.1:0", zerolog.Nop())
	require.NoError(t, s.Start())
	defer func() { _ = s.Close() }()

	resp, err := http.Get("http://" + s.Addr() + "/auth/complete?result=" + SuccessSentinel)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case msg := <-s.Messages():
		assert.Equal(t, SuccessSentinel, msg)
	case <-time.After(time.Second):
		t.Fatal("sentinel signal never arrived")
	}
}
