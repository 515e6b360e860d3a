// Package domain contains entity types without logic, just meta-data
// shared across the matchmaking and signaling components.
package domain

type UserID string

// Profile is the public-facing slice of a user's platform profile: the
// fields the other side of a call is allowed to see. The full profile
// (email, stats, billing) stays in the platform service.
type Profile struct {
	UserID      UserID `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	Level       Level  `json:"level"`
}

// Complete reports whether the profile carries the attributes
// matchmaking needs. Users without a username or level are rejected
// before they can enter a queue.
func (p Profile) Complete() bool {
	return p.Username != "" && p.Level != ""
}

// Display falls back to the username when no display name is set.
func (p Profile) Display() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}
