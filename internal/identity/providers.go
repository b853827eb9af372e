package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"
)

// PasswordProvider owns local email/password accounts
type PasswordProvider struct {
	accounts  AccountStore
	cost      int
	minLength int
}

func NewPasswordProvider(accounts AccountStore, cost, minLength int) *PasswordProvider {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if minLength <= 0 {
		minLength = 6
	}
	return &PasswordProvider{accounts: accounts, cost: cost, minLength: minLength}
}

// validEmail accepts a bare address only, not "Name <addr>"
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

// Register creates an account and returns its id
func (p *PasswordProvider) Register(ctx context.Context, email, password string) (string, error) {
	const op = "identity.Register"

	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return "", newError(KindMalformedInput, op, nil)
	}
	if len(password) < p.minLength {
		e := newError(KindMalformedInput, op, nil)
		e.Msg = fmt.Sprintf("Password must be at least %d characters.", p.minLength)
		return "", e
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		// bcrypt rejects passwords over 72 bytes
		e := newError(KindMalformedInput, op, err)
		e.Msg = "Password is too long."
		return "", e
	}

	account := Account{ID: uuid.NewString(), Email: email, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	switch err := p.accounts.Create(ctx, account); {
	case errors.Is(err, ErrDuplicateAccount):
		return "", newError(KindAccountExists, op, err)
	case err != nil:
		return "", newError(KindTransport, op, err)
	}
	return account.ID, nil
}

// Unregister removes an account created by Register
func (p *PasswordProvider) Unregister(ctx context.Context, id string) error {
	return p.accounts.Delete(ctx, id)
}

// Authenticate checks email and password and returns the account id
func (p *PasswordProvider) Authenticate(ctx context.Context, email, password string) (string, error) {
	const op = "identity.Authenticate"

	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return "", newError(KindMalformedInput, op, nil)
	}

	account, err := p.accounts.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return "", newError(KindUnknownAccount, op, err)
	case err != nil:
		return "", newError(KindTransport, op, err)
	}

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return "", newError(KindInvalidCredentials, op, nil)
	}
	return account.ID, nil
}

// GoogleIdentity is the verified content of a Google ID token
type GoogleIdentity struct {
	Subject     string
	Email       string
	DisplayName string
	Picture     string
}

// GoogleVerifier validates Google ID tokens for one OAuth client id
type GoogleVerifier struct {
	audience string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{audience: clientID, validate: idtoken.Validate}
}

// Verify returns the identity in token
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (GoogleIdentity, error) {
	const op = "identity.Google"

	if v == nil || v.audience == "" {
		e := newError(KindTransport, op, nil)
		e.Msg = "Google sign-in is not configured."
		return GoogleIdentity{}, e
	}
	if strings.TrimSpace(token) == "" {
		e := newError(KindMalformedInput, op, nil)
		e.Msg = "Google ID token is required."
		return GoogleIdentity{}, e
	}

	payload, err := v.validate(ctx, token, v.audience)
	if err != nil {
		if ctx.Err() != nil {
			return GoogleIdentity{}, newError(KindTransport, op, err)
		}
		return GoogleIdentity{}, newError(KindInvalidCredentials, op, err)
	}

	identity := GoogleIdentity{
		Subject:     payload.Subject,
		Email:       claimString(payload.Claims, "email"),
		DisplayName: claimString(payload.Claims, "name"),
		Picture:     claimString(payload.Claims, "picture"),
	}
	if identity.Subject == "" || identity.Email == "" {
		e := newError(KindInvalidCredentials, op, errors.New("token has no subject or email"))
		return GoogleIdentity{}, e
	}
	return identity, nil
}

func claimString(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}
