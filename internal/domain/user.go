package domain

import "time"

// User is a registered account. PasswordHash never leaves the service
// boundary; response shaping happens in the HTTP layer.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
