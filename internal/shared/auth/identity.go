package auth

import "strings"

const guestPrefix = "guest:"

// Identity is the caller on whose behalf an operation runs. It is passed
// explicitly to anything that talks to a backend.
type Identity struct {
	UserID string
	Email  string
	Token  string
	Guest  bool
}

// Guest builds a guest identity from a client supplied guest ID.
func Guest(guestID string) Identity {
	return Identity{UserID: guestPrefix + strings.TrimSpace(guestID), Guest: true}
}

// Authenticated reports whether the identity carries a verified login.
func (i Identity) Authenticated() bool {
	return i.UserID != "" && !i.Guest
}

// Bearer returns the Authorization header value, or "" for guests.
func (i Identity) Bearer() string {
	if !i.Authenticated() || i.Token == "" {
		return ""
	}
	return "Bearer " + i.Token
}
