package auth

import (
	"strings"

	"golang.org/x/oauth2"
)

// googleEndpoint matches the consent endpoint the backend's callback expects.
var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// ConsentScopes is the fixed scope set: profile and email for the session,
// plus the calendar and mail scopes the backend's tools operate with.
var ConsentScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/gmail.modify",
}

// ConsentURL builds the delegated-authorization URL. The redirect target is
// owned by the backend, which performs the code exchange; the client never
// sees credentials.
func ConsentURL(clientID, backendURL, state string) string {
	cfg := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: strings.TrimRight(backendURL, "/") + "/auth/google/callback",
		Endpoint:    googleEndpoint,
		Scopes:      ConsentScopes,
	}
	return cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}
