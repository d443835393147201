package models

import "time"

// User is the stored account record. It lives inside the JSON array under
// the "users" key and never leaves the repository layer as-is.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	GameProfile  string    `json:"gameProfile,omitempty"`
	Uploads      []Upload  `json:"uploads"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SessionUser is the projection of a User held by a session. It has no
// credential field, so it cannot leak one when persisted.
type SessionUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	GameProfile string `json:"gameProfile,omitempty"`
}

func (u *User) Session() *SessionUser {
	return &SessionUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		GameProfile: u.GameProfile,
	}
}
