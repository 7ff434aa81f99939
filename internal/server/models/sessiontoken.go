package models

import "time"

// SessionToken is an opaque server-stored token backing a signed-in session.
// Login mints one, refresh rotates it, logout deletes it.
type SessionToken struct {
	UserID  string
	Expires time.Time
}
