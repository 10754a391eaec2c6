package service

import (
	"context"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/fundflow/internal/auth"
	"github.com/mmynk/fundflow/internal/directory"
	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/pkg/api"
)

// ProfileStore persists profile edits.
type ProfileStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

// AuthService implements api.AuthServiceHandler.
type AuthService struct {
	authenticator auth.Authenticator
	google        *auth.GoogleAuthenticator
	jwtManager    *auth.JWTManager
	profiles      ProfileStore
	directory     *directory.Directory
}

// NewAuthService creates a new authentication service. google may be nil,
// in which case GoogleSignIn fails with FailedPrecondition.
func NewAuthService(authenticator auth.Authenticator, google *auth.GoogleAuthenticator, jwtManager *auth.JWTManager, profiles ProfileStore, dir *directory.Directory) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		google:        google,
		jwtManager:    jwtManager,
		profiles:      profiles,
		directory:     dir,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.AuthResponse], error) {
	slog.Info("Register request received", "email", req.Msg.Email)

	// Validate input
	if strings.TrimSpace(req.Msg.Email) == "" || strings.TrimSpace(req.Msg.DisplayName) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	// Register user
	user, err := s.authenticator.Register(ctx, req.Msg.Email, strings.TrimSpace(req.Msg.DisplayName), req.Msg.Password)
	if err != nil {
		slog.Error("Registration failed", "email", req.Msg.Email, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("User registered", "user_id", user.ID)
	return s.session(user)
}

// Login authenticates a user and returns a session token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.AuthResponse], error) {
	slog.Info("Login request received", "email", req.Msg.Email)

	// Validate input
	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	// Authenticate user
	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		slog.Warn("Login failed", "email", req.Msg.Email, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	slog.Info("User logged in", "user_id", user.ID)
	return s.session(user)
}

// GoogleSignIn exchanges a Google ID token for a session token.
func (s *AuthService) GoogleSignIn(ctx context.Context, req *connect.Request[api.GoogleSignInRequest]) (*connect.Response[api.AuthResponse], error) {
	slog.Info("GoogleSignIn request received")

	if req.Msg.IDToken == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrMissingToken)
	}

	// Verify the ID token and find or create the account
	user, err := s.google.SignIn(ctx, req.Msg.IDToken)
	if err != nil {
		slog.Warn("Google sign-in failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("User signed in with Google", "user_id", user.ID)
	return s.session(user)
}

// GetCurrentUser returns the caller's profile.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetCurrentUser request received", "user_id", userID)

	user, err := s.directory.Get(ctx, userID)
	if err != nil {
		slog.Error("GetCurrentUser failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetCurrentUserResponse{User: userToAPI(&user)}), nil
}

// UpdateProfile edits the caller's display name, photo and bank account.
func (s *AuthService) UpdateProfile(ctx context.Context, req *connect.Request[api.UpdateProfileRequest]) (*connect.Response[api.UpdateProfileResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("UpdateProfile request received", "user_id", userID)

	user, err := s.profiles.GetUser(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	// Apply only the fields that were sent
	if req.Msg.DisplayName != nil {
		name := strings.TrimSpace(*req.Msg.DisplayName)
		if name == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, errMissingName)
		}
		user.DisplayName = name
	}
	if req.Msg.PhotoURL != nil {
		user.PhotoURL = *req.Msg.PhotoURL
	}
	if req.Msg.BankAccount != nil {
		b := models.BankAccount(*req.Msg.BankAccount)
		user.BankAccount = &b
	}

	// Save and refresh the cached profile
	if err := s.profiles.UpdateUser(ctx, user); err != nil {
		slog.Error("UpdateProfile failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}
	s.directory.Put(*user)

	return connect.NewResponse(&api.UpdateProfileResponse{User: userToAPI(user)}), nil
}

func (s *AuthService) session(user *models.User) (*connect.Response[api.AuthResponse], error) {
	// Generate JWT token
	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.directory.Put(*user)

	// Build response
	return connect.NewResponse(&api.AuthResponse{User: userToAPI(user), Token: token}), nil
}
