package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/storage"
)

// GoogleIssuer is the issuer of Google ID tokens.
const GoogleIssuer = "https://accounts.google.com"

var (
	ErrUnverifiedEmail = errors.New("google account email is not verified")
	ErrGoogleDisabled  = errors.New("google sign-in is not configured")
)

// Identity is the profile carried by a verified ID token.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleVerifier checks Google ID tokens for one OAuth client.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier fetches Google's discovery document and signing keys.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, ErrGoogleDisabled
	}
	provider, err := oidc.NewProvider(ctx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to load google provider: %w", err)
	}
	return &GoogleVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// NewGoogleVerifierWithKeys builds a verifier from a fixed key set.
func NewGoogleVerifierWithKeys(issuer, clientID string, keys oidc.KeySet, now func() time.Time) *GoogleVerifier {
	return &GoogleVerifier{verifier: oidc.NewVerifier(issuer, keys, &oidc.Config{ClientID: clientID, Now: now})}
}

// Verify checks rawIDToken and returns the identity it asserts.
func (g *GoogleVerifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	token, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var c googleClaims
	if err := token.Claims(&c); err != nil {
		return nil, fmt.Errorf("failed to decode id token claims: %w", err)
	}
	if c.Email == "" || !c.EmailVerified {
		return nil, ErrUnverifiedEmail
	}
	name := c.Name
	if name == "" {
		name = c.Email
	}
	return &Identity{Subject: token.Subject, Email: normalizeEmail(c.Email), Name: name, Picture: c.Picture}, nil
}

// IdentityVerifier turns a provider token into an Identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Identity, error)
}

// GoogleAuthenticator signs users in with a Google ID token, creating the
// account on first sign-in.
type GoogleAuthenticator struct {
	verifier IdentityVerifier
	storage  UserStorage
}

// NewGoogleAuthenticator creates an authenticator. A nil verifier disables
// Google sign-in.
func NewGoogleAuthenticator(verifier IdentityVerifier, storage UserStorage) *GoogleAuthenticator {
	return &GoogleAuthenticator{verifier: verifier, storage: storage}
}

// SignIn verifies rawIDToken and returns the matching user. An existing
// account with the same email is reused; otherwise one is created with the
// provider's subject as its id.
func (a *GoogleAuthenticator) SignIn(ctx context.Context, rawIDToken string) (*models.User, error) {
	if a == nil || a.verifier == nil {
		return nil, ErrGoogleDisabled
	}
	id, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}

	user, err := a.storage.GetUserByEmail(ctx, id.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user = models.NewUser(id.Email, strings.TrimSpace(id.Name), "")
	user.ID = id.Subject
	user.PhotoURL = id.Picture
	if err := a.storage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
