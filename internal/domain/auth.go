package domain

import "time"

// Identity is the verified caller produced from a bearer credential.
type Identity struct {
	SubjectID string
	Name      string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
