package domain

import "github.com/shopspring/decimal"

type User struct {
	ID        string          `db:"id" json:"id"`
	Email     string          `db:"email" json:"email"`
	FirstName string          `db:"firstname" json:"firstname"`
	LastName  string          `db:"lastname" json:"lastname"`
	Hash      string          `db:"password_hash" json:"-"`
	Address   string          `db:"address" json:"address"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	Seller    bool            `db:"seller" json:"seller"`
	CreatedAt string          `db:"created_at" json:"created_at"`
}

// PublicProfile is what other users may see.
type PublicProfile struct {
	ID        string `db:"id" json:"id"`
	FirstName string `db:"firstname" json:"firstname"`
	LastName  string `db:"lastname" json:"lastname"`
	Address   string `db:"address" json:"address"`
	Seller    bool   `db:"seller" json:"seller"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Address: u.Address, Seller: u.Seller}
}
