package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated person.
//
// The ID comes from the authentication provider and is treated as opaque and
// stable; every Fund member and Split participant references it.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`

	// DisplayName is the name shown to other fund members. The parser's
	// narrative refers to members by this name.
	DisplayName string `json:"displayName"`

	// Email is the user's email address (unique).
	Email string `json:"email"`

	// PhotoURL is the avatar URL supplied by the provider.
	PhotoURL string `json:"photoURL,omitempty"`

	// BankAccount is where other members transfer money to settle up.
	BankAccount *BankAccount `json:"bankAccount,omitempty"`

	// PasswordHash is set only for password sign-in accounts.
	PasswordHash string `json:"passwordHash,omitempty"`

	// CreatedAt is the Unix timestamp when the user account was created.
	CreatedAt int64 `json:"createdAt"`

	// UpdatedAt is the Unix timestamp of the last profile edit.
	UpdatedAt int64 `json:"updatedAt"`
}

// BankAccount holds transfer details for a user.
type BankAccount struct {
	AccountNumber string `json:"accountNumber"`
	BankCode      string `json:"bankCode"`
	BankName      string `json:"bankName"`
	AccountName   string `json:"accountName"`
}

// NewUser creates a user with a generated ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
