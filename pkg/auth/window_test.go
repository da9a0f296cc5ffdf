package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowHandleIgnoresLauncherExit(t *testing.T) {
	// By the time the caller holds the handle, a hand-off launcher has
	// typically already exited; the handle must not report closed on its own.
	w := &processWindow{}
	assert.False(t, w.Closed())

	require.NoError(t, w.Close())
	assert.True(t, w.Closed())
}
