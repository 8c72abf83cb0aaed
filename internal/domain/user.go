package domain

import "time"

// AccountStatus represents lifecycle states for a user account.
type AccountStatus string

const (
	AccountStatusOpen      AccountStatus = "OPEN"
	AccountStatusClosed    AccountStatus = "CLOSED"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// Valid reports whether s is one of the known statuses.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusOpen, AccountStatusClosed, AccountStatusSuspended:
		return true
	}
	return false
}

// User is the directory record for a signed-up identity.
// ID is the OpenID subject and never changes once created.
type User struct {
	ID        string
	Name      string
	Email     string
	Status    AccountStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary returns the public projection of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserSummary is what lookups and follower listings expose.
type UserSummary struct {
	ID    string
	Name  string
	Email string
}
