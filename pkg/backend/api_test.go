package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAuthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/auth/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"authenticated":true,"user":{"id":"42","email":"gepetto@example.com","name":"Gepetto","verified_email":true}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", zerolog.Nop())
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	require.NotNil(t, st.User)
	assert.Equal(t, "gepetto@example.com", st.User.Email)
	assert.True(t, st.User.VerifiedEmail)
}

func TestStatusUnauthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"authenticated":false,"user":null}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Authenticated)
	assert.Nil(t, st.User)
}

func TestStatusErrorOnBadStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	_, err := c.Status(context.Background())
	require.Error(t, err)
}

func TestLogout(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"success":true,"message":"Logged out successfully"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/auth/logout", gotPath)
}
