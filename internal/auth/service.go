package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultAccessTTL = time.Hour

// Service performs the credential exchange itself: account creation and
// password verification plus access token issuing. Attempt limiting sits
// outside, in the LoginGuard consulted by the handler.
type Service struct {
	repo      *Repository
	jwtSecret []byte
	issuer    string
	accessTTL time.Duration
	now       func() time.Time
}

func NewService(repo *Repository, jwtSecret, issuer string) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		issuer:    issuer,
		accessTTL: defaultAccessTTL,
		now:       time.Now,
	}
}

func (s *Service) WithAccessTTL(ttl time.Duration) {
	if ttl > 0 {
		s.accessTTL = ttl
	}
}

func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *Service) Signup(ctx context.Context, email, password, username string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = usernameFor(email, username)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	return s.repo.CreateUser(ctx, email, username, string(hash))
}

// usernameFor falls back to the email's local part when no username was
// submitted. The email needs no '@' here; the whole string is better than a
// panic on a caller that skipped format validation.
func usernameFor(email, username string) string {
	if username = strings.TrimSpace(username); username != "" {
		return username
	}
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

func (s *Service) Login(ctx context.Context, email, password string) (Tokens, User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return Tokens{}, User{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tokens{}, User{}, ErrInvalidCredentials
		}
		return Tokens{}, User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Tokens{}, User{}, ErrInvalidCredentials
	}

	tokens, err := s.issueAccessToken(user)
	if err != nil {
		return Tokens{}, User{}, err
	}
	return tokens, user, nil
}

func (s *Service) issueAccessToken(user User) (Tokens, error) {
	// Tokens are only ever issued signed. Degraded verification mode affects
	// how externally-issued tokens are checked, never what this service
	// hands out.
	if len(s.jwtSecret) == 0 {
		return Tokens{}, ErrSigningUnavailable
	}

	now := s.now().UTC()
	claims := jwt.MapClaims{
		"iss":   s.issuer,
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.accessTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	encoded, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return Tokens{}, err
	}

	return Tokens{
		AccessToken: encoded,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
	}, nil
}
