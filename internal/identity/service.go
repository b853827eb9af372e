package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"placementprep/internal/config"
	appErrors "placementprep/internal/errors"
	"placementprep/internal/types"
)

// Store backends selected by identity.store
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// SignUpRequest is the sign-up form
type SignUpRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Session is returned by every successful sign-in
type Session struct {
	UserID    string        `json:"userId"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Profile   types.Profile `json:"profile"`
}

// Service combines the providers, the profile store and the token issuer
type Service struct {
	passwords *PasswordProvider
	google    *GoogleVerifier
	profiles  ProfileStore
	tokens    *TokenIssuer
	db        *sql.DB
	logger    *appErrors.Logger
}

// NewService builds the stores named by cfg.Identity.Store
func NewService(ctx context.Context, cfg *config.Config, logger *appErrors.Logger) (*Service, error) {
	idCfg := cfg.Identity

	tokens, err := NewTokenIssuer(idCfg.JWTSecret, idCfg.TokenTTL)
	if err != nil {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig, "identity.jwtSecret is not set", err)
	}

	var (
		accounts AccountStore
		profiles ProfileStore
		db       *sql.DB
	)
	switch idCfg.Store {
	case StoreMemory, "":
		accounts = NewMemoryAccountStore()
		profiles = NewMemoryProfileStore()
	case StorePostgres:
		db, err = OpenPostgres(ctx, idCfg.DatabaseURL)
		if err != nil {
			return nil, appErrors.NewConfigError(appErrors.ErrCodeStoreFailed, "failed to open identity store", err)
		}
		accounts = NewPostgresAccountStore(db)
		profiles = NewPostgresProfileStore(db)
	default:
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported identity store: %s", idCfg.Store), nil)
	}

	svc := NewServiceWith(
		NewPasswordProvider(accounts, idCfg.BcryptCost, idCfg.MinPassword),
		NewGoogleVerifier(idCfg.GoogleClientID),
		profiles, tokens, logger,
	)
	svc.db = db
	logger.Info("Identity service ready", "store", idCfg.Store, "google", idCfg.GoogleClientID != "")
	return svc, nil
}

// NewServiceWith assembles a service from explicit parts
func NewServiceWith(passwords *PasswordProvider, google *GoogleVerifier, profiles ProfileStore, tokens *TokenIssuer, logger *appErrors.Logger) *Service {
	return &Service{passwords: passwords, google: google, profiles: profiles, tokens: tokens, logger: logger}
}

// SignUp creates an account and writes its profile with an empty photo
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (Session, error) {
	if strings.TrimSpace(req.FirstName) == "" {
		return Session{}, &Error{Kind: KindMalformedInput, Op: "identity.SignUp", Msg: "First name is required."}
	}

	userID, err := s.passwords.Register(ctx, req.Email, req.Password)
	if err != nil {
		s.logFailure(err, "Sign-up failed")
		return Session{}, err
	}

	profile := types.Profile{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Photo:     "",
	}
	if err := s.profiles.Put(ctx, userID, profile); err != nil {
		// roll back so the same email can sign up again
		if delErr := s.passwords.Unregister(context.WithoutCancel(ctx), userID); delErr != nil {
			s.logger.LogError(delErr, "Failed to remove account after profile write failure", "user_id", userID)
		}
		return Session{}, s.transport("identity.SignUp", err)
	}
	return s.session(userID, profile)
}

// SignIn authenticates an email/password account
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	userID, err := s.passwords.Authenticate(ctx, email, password)
	if err != nil {
		s.logFailure(err, "Sign-in failed")
		return Session{}, err
	}
	return s.session(userID, s.Profile(ctx, userID))
}

// SignInWithGoogle verifies idToken and overwrites the profile from its claims
func (s *Service) SignInWithGoogle(ctx context.Context, idToken string) (Session, error) {
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		s.logFailure(err, "Google sign-in failed")
		return Session{}, err
	}

	userID := "google:" + identity.Subject
	profile := types.Profile{
		FirstName: identity.DisplayName,
		LastName:  "",
		Email:     identity.Email,
		Photo:     identity.Picture,
	}
	if err := s.profiles.Put(ctx, userID, profile); err != nil {
		return Session{}, s.transport("identity.SignInWithGoogle", err)
	}
	return s.session(userID, profile)
}

// Profile returns the stored profile, or the Guest profile when none exists or the store fails
func (s *Service) Profile(ctx context.Context, userID string) types.Profile {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			s.logger.LogError(err, "Failed to read profile", "user_id", userID)
		}
		return types.GuestProfile
	}
	return profile
}

// Authenticate resolves a session token to its user id
func (s *Service) Authenticate(token string) (string, error) {
	userID, err := s.tokens.Verify(strings.TrimSpace(strings.TrimPrefix(token, "Bearer ")))
	if err != nil {
		e := newError(KindInvalidCredentials, "identity.Authenticate", err)
		e.Msg = "Session expired or invalid. Please sign in again."
		return "", e
	}
	return userID, nil
}

// Close releases the database pool, if any
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Service) session(userID string, profile types.Profile) (Session, error) {
	token, expires, err := s.tokens.Issue(userID)
	if err != nil {
		return Session{}, s.transport("identity.Session", err)
	}
	return Session{UserID: userID, Token: token, ExpiresAt: expires, Profile: profile}, nil
}

func (s *Service) transport(op string, err error) error {
	s.logger.LogError(err, "Identity store failure", "op", op)
	return newError(KindTransport, op, err)
}

func (s *Service) logFailure(err error, message string) {
	if KindOf(err) == KindTransport {
		s.logger.LogError(err, message)
		return
	}
	s.logger.Debug(message, "kind", string(KindOf(err)))
}
