package models

import "time"

// User is the root entity of the data model. Microposts and relationships
// reference it and are removed transitively when it is deleted.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	RememberSalt string
	Admin        bool
	AvatarKey    string
	CreatedAt    time.Time
}
