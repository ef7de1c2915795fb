package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/philipxlee/bazingamart/internal/domain"
	"github.com/philipxlee/bazingamart/internal/repos"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type AccountService struct {
	DB         *sqlx.DB
	BcryptCost int
}

func NewAccountService(db *sqlx.DB, bcryptCost int) *AccountService {
	return &AccountService{DB: db, BcryptCost: bcryptCost}
}

// Deposit adds amount to the balance and returns the new balance.
func (s *AccountService) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return s.adjust(ctx, userID, amount)
}

// Withdraw takes amount out; the balance never goes below zero.
func (s *AccountService) Withdraw(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	bal, err := s.adjust(ctx, userID, amount.Neg())
	if errors.Is(err, repos.ErrNegativeBalance) {
		return bal, ErrInsufficientFunds
	}
	return bal, err
}

func (s *AccountService) adjust(ctx context.Context, userID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		var err error
		bal, err = repos.NewUserRepo(tx).AddBalance(ctx, userID, delta)
		return err
	})
	return bal, err
}

type ProfileUpdate struct {
	FirstName string
	LastName  string
	Email     string
	Address   string
	Password  string // optional
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID string, p ProfileUpdate) (*domain.User, error) {
	var out *domain.User
	err := repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		users := repos.NewUserRepo(tx)
		u, err := users.ByID(ctx, userID)
		if err != nil {
			return err
		}
		email := strings.TrimSpace(p.Email)
		taken, err := users.EmailTaken(ctx, email, userID)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}
		u.FirstName, u.LastName, u.Email, u.Address = p.FirstName, p.LastName, email, p.Address
		u.Hash = ""
		if p.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), s.BcryptCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			u.Hash = string(hash)
		}
		if err := users.UpdateProfile(ctx, u); err != nil {
			return err
		}
		out, err = users.ByID(ctx, userID)
		return err
	})
	return out, err
}

type PublicProfileView struct {
	domain.PublicProfile
	Reviews []domain.Review `json:"reviews"`
}

// PublicProfile hides email and balance; sellers come with their reviews.
func (s *AccountService) PublicProfile(ctx context.Context, userID string) (PublicProfileView, error) {
	u, err := repos.NewUserRepo(s.DB).ByID(ctx, userID)
	if err != nil {
		return PublicProfileView{}, err
	}
	view := PublicProfileView{PublicProfile: u.Public(), Reviews: []domain.Review{}}
	if u.Seller {
		view.Reviews, err = repos.NewReviewRepo(s.DB).BySeller(ctx, userID)
	}
	return view, err
}
