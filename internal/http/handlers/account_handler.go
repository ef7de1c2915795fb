package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "github.com/philipxlee/bazingamart/internal/log"
	"github.com/philipxlee/bazingamart/internal/repos"
	"github.com/philipxlee/bazingamart/internal/services"
	"github.com/philipxlee/bazingamart/internal/validate"
)

type AccountHandler struct {
	Accounts *services.AccountService
}

// GET /api/v1/me
func (h *AccountHandler) Me(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

type profileBody struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	Password  string `json:"password"`
}

// PUT /api/v1/me
func (h *AccountHandler) UpdateMe(c *fiber.Ctx) error {
	var in profileBody
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body")
	}
	email, ok := validate.Email(in.Email)
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "email"})
		return jsonError(c, fiber.StatusBadRequest, "invalid email")
	}
	first, ok1 := validate.Name(in.FirstName)
	last, ok2 := validate.Name(in.LastName)
	if !ok1 || !ok2 {
		return jsonError(c, fiber.StatusBadRequest, "names must be 1-20 characters")
	}
	if in.Password != "" && !validate.Password(in.Password) {
		return jsonError(c, fiber.StatusBadRequest, "password must be 8-20 characters with upper, lower, digit and symbol")
	}

	u, err := h.Accounts.UpdateProfile(c.UserContext(), currentUser(c).ID, services.ProfileUpdate{
		FirstName: first, LastName: last, Email: email, Address: in.Address, Password: in.Password,
	})
	if errors.Is(err, services.ErrEmailTaken) {
		return jsonError(c, fiber.StatusConflict, "email already registered")
	}
	if err != nil {
		applog.Error(c, "account.update", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not update profile")
	}
	applog.Audit(c, "account.update", map[string]any{"password_changed": in.Password != ""})
	return c.JSON(u)
}

type balanceBody struct {
	Op     string `json:"op"` // deposit | withdraw
	Amount string `json:"amount"`
}

// POST /api/v1/me/balance
func (h *AccountHandler) Balance(c *fiber.Ctx) error {
	var in balanceBody
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body")
	}
	amount, ok := validate.Amount(in.Amount)
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "amount"})
		return jsonError(c, fiber.StatusBadRequest, "amount must be a positive value with at most two decimals")
	}

	u := currentUser(c)
	var err error
	switch in.Op {
	case "deposit":
		u.Balance, err = h.Accounts.Deposit(c.UserContext(), u.ID, amount)
	case "withdraw":
		u.Balance, err = h.Accounts.Withdraw(c.UserContext(), u.ID, amount)
	default:
		return jsonError(c, fiber.StatusBadRequest, "op must be deposit or withdraw")
	}
	if errors.Is(err, services.ErrInsufficientFunds) {
		return jsonError(c, fiber.StatusConflict, "insufficient funds")
	}
	if err != nil {
		applog.Error(c, "account.balance", err, map[string]any{"op": in.Op})
		return jsonError(c, fiber.StatusInternalServerError, "could not update balance")
	}
	applog.Audit(c, "account.balance."+in.Op, map[string]any{"amount": amount.String()})
	return c.JSON(fiber.Map{"balance": u.Balance})
}

// GET /api/v1/users/:id
func (h *AccountHandler) Public(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "user not found")
	}
	view, err := h.Accounts.PublicProfile(c.UserContext(), id)
	if errors.Is(err, repos.ErrUserNotFound) {
		return jsonError(c, fiber.StatusNotFound, "user not found")
	}
	if err != nil {
		applog.Error(c, "account.public", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not load profile")
	}
	return c.JSON(view)
}
