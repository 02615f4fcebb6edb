package model

import "time"

// User represents an account record as stored in the `users` table.
// Email is unique and compared byte-for-byte (binary collation).
// PasswordHash holds the output of the configured password scheme, never
// the plaintext. Profile columns that may be absent are pointers.
type User struct {
	ID              uint64     // users.id
	FirstName       string     // users.first_name
	LastName        string     // users.last_name
	Email           string     // users.email
	PasswordHash    string     // users.password_hash
	PhoneNumber     *string    // users.phone_number
	Country         *string    // users.country
	City            *string    // users.city
	DateOfBirth     *time.Time // users.date_of_birth
	Gender          *string    // users.gender
	IsEmailVerified bool       // users.is_email_verified
	IsActive        bool       // users.is_active
	CreatedAt       time.Time  // users.created_at
	LastLoginAt     *time.Time // users.last_login_at
	UpdatedAt       *time.Time // users.updated_at
}

// FullName joins first and last name, trimming whichever is empty.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// RefreshToken models a row in the `refresh_tokens` table. Only the
// SHA-256 hex digest of the token is stored. A nil ExpiresAt never expires.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt *time.Time // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at
	CreatedAt time.Time  // refresh_tokens.created_at
}
