package models

import "time"

// Micropost is a single short text post owned by one user.
// Content is 1 to 140 characters; ownership is immutable.
type Micropost struct {
	ID        string
	UserID    string
	Content   string
	CreatedAt time.Time
}
