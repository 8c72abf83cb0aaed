package domain

// Edge is a directed follower -> followee relationship.
type Edge struct {
	FollowerID string
	FolloweeID string
}

// Validate rejects self-follows and blank endpoints.
func (e Edge) Validate() error {
	if e.FollowerID == "" || e.FolloweeID == "" {
		return ErrInvalidInput
	}
	if e.FollowerID == e.FolloweeID {
		return ErrSelfFollow
	}
	return nil
}
