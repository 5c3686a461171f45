package domain

// User is an account owning content. Username and email are unique per store.
type User struct {
	Timestamps
	ID                string `json:"id"`
	Username          string `json:"username" validate:"required,max=128"`
	Email             string `json:"email" validate:"required,email"`
	PasswordHash      string `json:"password_hash,omitempty"`
	MustResetPassword bool   `json:"must_reset_password,omitempty"`
	AvatarURL         string `json:"avatar_url,omitempty"`
}

// HasCredential reports whether the user carries a password credential.
func (u *User) HasCredential() bool {
	return u.PasswordHash != ""
}
