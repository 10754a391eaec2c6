package auth

import (
	"context"

	"github.com/mmynk/fundflow/internal/models"
)

// Authenticator signs users in with an email and a credential.
// PasswordAuthenticator is the only implementation; Google sign-in goes
// through GoogleAuthenticator because it has no registration step.
type Authenticator interface {
	// Register creates an account. The credential format depends on the
	// implementation.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user whose credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks the credential before any storage access.
	ValidateCredential(credential string) error
}

// UserStorage is the user persistence auth needs. *storage.Repository
// satisfies it.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
