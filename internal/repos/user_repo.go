package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/philipxlee/bazingamart/internal/domain"
)

const userColumns = `id, email, firstname, lastname, password_hash, address, balance, seller, COALESCE(created_at,'') AS created_at`

type UserRepo struct{ db sqlx.ExtContext }

func NewUserRepo(db sqlx.ExtContext) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users(id, email, firstname, lastname, password_hash, address, balance, seller)
		VALUES(?,?,?,?,?,?,?,?)
	`, u.ID, u.Email, u.FirstName, u.LastName, u.Hash, u.Address, u.Balance, u.Seller)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.db, &u, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER(?)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.db, &u, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailTaken reports whether another user already owns email.
func (r *UserRepo) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM users WHERE LOWER(email)=LOWER(?) AND id != ?`, email, exceptID)
	return n > 0, err
}

func (r *UserRepo) Balance(ctx context.Context, id string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := sqlx.GetContext(ctx, r.db, &bal, `SELECT balance FROM users WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrUserNotFound
	}
	return bal, err
}

// AddBalance applies delta (negative to debit) and returns the new balance.
// Callers that need the read and the write to be atomic must pass a *sqlx.Tx.
func (r *UserRepo) AddBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	bal, err := r.Balance(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	next := bal.Add(delta)
	if next.IsNegative() {
		return bal, ErrNegativeBalance
	}
	res, err := r.db.ExecContext(ctx, `UPDATE users SET balance=? WHERE id=?`, next, id)
	if err != nil {
		return bal, fmt.Errorf("update balance for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return bal, ErrUserNotFound
	}
	return next, nil
}

// UpdateProfile writes profile fields; hash is left untouched when empty.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *domain.User) error {
	var err error
	if u.Hash != "" {
		_, err = r.db.ExecContext(ctx, `
			UPDATE users SET firstname=?, lastname=?, email=?, address=?, password_hash=? WHERE id=?
		`, u.FirstName, u.LastName, u.Email, u.Address, u.Hash, u.ID)
	} else {
		_, err = r.db.ExecContext(ctx, `
			UPDATE users SET firstname=?, lastname=?, email=?, address=? WHERE id=?
		`, u.FirstName, u.LastName, u.Email, u.Address, u.ID)
	}
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *UserRepo) SetSeller(ctx context.Context, id string, seller bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET seller=? WHERE id=?`, seller, id)
	return err
}

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	var u domain.User
	err := sqlx.GetContext(ctx, r.db, &u, `
      SELECT u.id, u.email, u.firstname, u.lastname, u.password_hash, u.address, u.balance, u.seller,
             COALESCE(u.created_at,'') AS created_at
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}
