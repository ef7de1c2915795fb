package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/philipxlee/bazingamart/internal/domain"
	"github.com/philipxlee/bazingamart/internal/repos"
)

var (
	ErrBadCreds     = errors.New("invalid email or password")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrEmailTaken   = repos.ErrEmailTaken
)

type AuthService struct {
	Users      *repos.UserRepo
	JWTSecret  []byte
	TokenTTL   time.Duration
	BcryptCost int
}

type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Address   string
	Seller    bool
}

func (s *AuthService) Register(ctx context.Context, r Registration) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost())
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		ID:        uuid.NewString(),
		Email:     strings.TrimSpace(r.Email),
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Hash:      string(hash),
		Address:   r.Address,
		Balance:   decimal.Zero,
		Seller:    r.Seller,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials without touching sessions.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, sid, email, password string) (*domain.User, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Users.UnbindSession(ctx, sid)
}

func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	return s.Users.SessionUser(ctx, sid)
}

// IssueToken signs an HS256 access token for u.
func (s *AuthService) IssueToken(u *domain.User) (string, time.Time, error) {
	exp := time.Now().Add(s.ttl())
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": u.ID,
		"exp": exp.Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := tok.SignedString(s.JWTSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseToken validates a bearer token and loads its user.
func (s *AuthService) ParseToken(ctx context.Context, raw string) (*domain.User, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}
	u, err := s.Users.ByID(ctx, sub)
	if errors.Is(err, repos.ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	return u, err
}

func (s *AuthService) cost() int {
	if s.BcryptCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.BcryptCost
}

func (s *AuthService) ttl() time.Duration {
	if s.TokenTTL <= 0 {
		return 24 * time.Hour
	}
	return s.TokenTTL
}
