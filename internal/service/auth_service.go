package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smart_climate/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is used when AuthConfig.TokenTTL is not positive.
const DefaultTokenTTL = time.Hour

const (
	tokenIssuer       = "smart_climate"
	maxUsernameLength = 64
)

// AuthConfig holds the JWT signing parameters.
type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrEmptyPassword      = errors.New("password is empty")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNoSigningKey       = errors.New("jwt signing key is not configured")
	ErrUsernameTaken      = repository.ErrUsernameTaken
)

// AuthService signs operators up and in. Tokens carry the operator so that
// climate changes can be attributed without a lookup per request.
type AuthService struct {
	users repository.Authorization
	key   []byte
	ttl   time.Duration
	now   func() time.Time
}

func NewAuthService(users repository.Authorization, cfg AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthService{users: users, key: []byte(cfg.SigningKey), ttl: ttl, now: time.Now}
}

// operatorClaims is the JWT payload.
type operatorClaims struct {
	jwt.RegisteredClaims
	OperatorID int    `json:"oid"`
	Username   string `json:"name"`
}

// normalizeUsername lowercases and trims; usernames are case-insensitive.
func normalizeUsername(username string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(username))
	if u == "" || len(u) > maxUsernameLength || strings.ContainsAny(u, " \t\r\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidUsername, username)
	}
	return u, nil
}

// SignUp stores a new operator with a bcrypt password hash.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (int, error) {
	name, err := normalizeUsername(username)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(password) == "" {
		return 0, ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	return s.users.Create(ctx, name, string(hash))
}

// SignIn checks the credentials and returns a signed token. Unknown users and
// wrong passwords both give ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (string, error) {
	if len(s.key) == 0 {
		return "", ErrNoSigningKey
	}
	name, err := normalizeUsername(username)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	u, err := s.users.GetByUsername(ctx, name)
	if err != nil {
		return "", err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(Operator{ID: u.ID, Username: u.Username})
}

// Authenticate validates an HS256 token and returns the operator it was issued to.
func (s *AuthService) Authenticate(token string) (Operator, error) {
	if len(s.key) == 0 {
		return Operator{}, ErrNoSigningKey
	}
	claims := &operatorClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Operator{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.OperatorID <= 0 || claims.Username == "" {
		return Operator{}, ErrInvalidToken
	}
	return Operator{ID: claims.OperatorID, Username: claims.Username}, nil
}

func (s *AuthService) issueToken(op Operator) (string, error) {
	if len(s.key) == 0 {
		return "", ErrNoSigningKey
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &operatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   op.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OperatorID: op.ID,
		Username:   op.Username,
	})
	return token.SignedString(s.key)
}
