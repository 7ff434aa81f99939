package models

import "time"

// Relationship is a directed follow edge: the follower receives the followed
// user's posts in their feed. At most one edge exists per (follower,
// followed) pair.
type Relationship struct {
	ID         string
	FollowerID string
	FollowedID string
	CreatedAt  time.Time
}
