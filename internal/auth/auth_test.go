package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/storage"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*models.User)}
}

func (m *memoryUsers) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memoryUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
}

func (m *memoryUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
}

func TestPasswordAuthenticator(t *testing.T) {
	users := newMemoryUsers()
	a := NewPasswordAuthenticator(users)
	ctx := context.Background()

	user, err := a.Register(ctx, "  An@Example.com ", "An", "correct horse")
	if err != nil {
		t.Fatalf("Register error = %v", err)
	}
	if user.Email != "an@example.com" || user.PasswordHash == "" || user.PasswordHash == "correct horse" {
		t.Errorf("user = %+v", user)
	}

	if _, err := a.Register(ctx, "an@example.com", "An again", "another pass"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate Register error = %v, want ErrEmailExists", err)
	}

	got, err := a.Authenticate(ctx, "AN@example.com", "correct horse")
	if err != nil || got.ID != user.ID {
		t.Errorf("Authenticate = %+v, %v", got, err)
	}

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "an@example.com", "wrong horse"},
		{"unknown email", "nobody@example.com", "correct horse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Authenticate(ctx, tt.email, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestPasswordAuthenticator_ValidateCredential(t *testing.T) {
	a := NewPasswordAuthenticator(newMemoryUsers())
	tests := []struct {
		password string
		want     error
	}{
		{"short", ErrWeakPassword},
		{"12345678", nil},
		{strings.Repeat("x", 73), ErrLongPassword},
	}
	for _, tt := range tests {
		if err := a.ValidateCredential(tt.password); !errors.Is(err, tt.want) {
			t.Errorf("ValidateCredential(len %d) = %v, want %v", len(tt.password), err, tt.want)
		}
	}
}

func TestPasswordAuthenticator_GoogleOnlyAccount(t *testing.T) {
	users := newMemoryUsers()
	users.CreateUser(context.Background(), &models.User{ID: "g-1", Email: "chi@example.com"})
	a := NewPasswordAuthenticator(users)
	if _, err := a.Authenticate(context.Background(), "chi@example.com", "anything1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := &models.User{ID: "u1", Email: "an@example.com", DisplayName: "An"}

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate error = %v", err)
	}
	if claims.UserID() != "u1" || claims.Email != "an@example.com" || claims.DisplayName != "An" {
		t.Errorf("claims = %+v", claims)
	}

	t.Run("wrong secret", func(t *testing.T) {
		if _, err := NewJWTManager("other", time.Hour).Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTManager("test-secret", time.Minute)
		expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
		old, err := expired.Generate(user)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := m.Validate(old); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v", err)
		}
	})
}

const testClientID = "fundflow-web.apps.googleusercontent.com"

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign id token: %v", err)
	}
	return signed
}

func newTestVerifier(t *testing.T) (*GoogleVerifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	return NewGoogleVerifierWithKeys(GoogleIssuer, testClientID, keys, time.Now), key
}

func googleClaimsFor(sub, email string, verified bool) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            GoogleIssuer,
		"aud":            testClientID,
		"sub":            sub,
		"email":          email,
		"email_verified": verified,
		"name":           "Bình Trần",
		"picture":        "https://example.com/b.png",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func TestGoogleVerifier(t *testing.T) {
	v, key := newTestVerifier(t)
	ctx := context.Background()

	id, err := v.Verify(ctx, signIDToken(t, key, googleClaimsFor("1234567890", "Binh@Example.com", true)))
	if err != nil {
		t.Fatalf("Verify error = %v", err)
	}
	if id.Subject != "1234567890" || id.Email != "binh@example.com" || id.Name != "Bình Trần" {
		t.Errorf("identity = %+v", id)
	}

	if _, err := v.Verify(ctx, signIDToken(t, key, googleClaimsFor("1", "x@example.com", false))); !errors.Is(err, ErrUnverifiedEmail) {
		t.Errorf("unverified error = %v", err)
	}

	wrongAud := googleClaimsFor("1", "x@example.com", true)
	wrongAud["aud"] = "someone-else"
	if _, err := v.Verify(ctx, signIDToken(t, key, wrongAud)); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong audience error = %v", err)
	}

	otherKey, _ := rsa.GenerateKey(rand.Reader, 2048)
	if _, err := v.Verify(ctx, signIDToken(t, otherKey, googleClaimsFor("1", "x@example.com", true))); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("bad signature error = %v", err)
	}
}

func TestGoogleAuthenticator_SignIn(t *testing.T) {
	v, key := newTestVerifier(t)
	users := newMemoryUsers()
	a := NewGoogleAuthenticator(v, users)
	ctx := context.Background()

	user, err := a.SignIn(ctx, signIDToken(t, key, googleClaimsFor("g-42", "binh@example.com", true)))
	if err != nil {
		t.Fatalf("SignIn error = %v", err)
	}
	if user.ID != "g-42" || user.PhotoURL == "" || user.PasswordHash != "" {
		t.Errorf("created user = %+v", user)
	}

	again, err := a.SignIn(ctx, signIDToken(t, key, googleClaimsFor("g-42", "binh@example.com", true)))
	if err != nil || again.ID != "g-42" {
		t.Errorf("second SignIn = %+v, %v", again, err)
	}
	if len(users.users) != 1 {
		t.Errorf("users = %d, want 1", len(users.users))
	}

	if _, err := NewGoogleAuthenticator(nil, users).SignIn(ctx, "token"); !errors.Is(err, ErrGoogleDisabled) {
		t.Errorf("disabled error = %v", err)
	}
}
