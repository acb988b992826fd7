package domain

import "time"

// UserMetadata is attached to a backend auth identity at sign-up.
type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
	RUT      string `json:"rut,omitempty"`
	Role     Role   `json:"role,omitempty"`
}

// AuthUser is the raw backend authentication identity.
type AuthUser struct {
	ID       string       `json:"id"`
	Email    string       `json:"email"`
	Metadata UserMetadata `json:"user_metadata"`
}

// AuthSession is a backend session: the bearer token every data call is
// authorised with, plus what is needed to renew it.
type AuthSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         AuthUser  `json:"user"`
}

// Expired reports whether the access token is expired at now, with a small
// margin so a token is not used right before it lapses.
func (s AuthSession) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(30 * time.Second).Before(s.ExpiresAt)
}

// Session is a browser session of this application. It owns exactly one
// backend session.
type Session struct {
	ID        string      `json:"id"`
	Auth      AuthSession `json:"auth"`
	CreatedAt time.Time   `json:"created_at"`
}
