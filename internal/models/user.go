package models

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
	UserStatusPending  UserStatus = "pending"
)

// User is the credential-store record. PasswordHash never leaves the server;
// the handlers package maps users to response types carrying only the public
// fields.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	DisplayName  string
	Role         UserRole
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated subject attached to a request after session
// validation. Role is a snapshot taken at token issue time and is accepted
// as-is for the token's lifetime.
type Identity struct {
	UserID    string
	Role      UserRole
	ExpiresAt time.Time
}
