package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/philipxlee/bazingamart/internal/log"
	"github.com/philipxlee/bazingamart/internal/services"
	"github.com/philipxlee/bazingamart/internal/validate"
)

type AuthHandler struct {
	Auth         *services.AuthService
	CookieSecure bool
}

func (h *AuthHandler) setSID(c *fiber.Ctx, sid string) {
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.CookieSecure,
	})
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": ""})
}

func (h *AuthHandler) loginFailed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).Render("login", fiber.Map{
		"Err": "Invalid email or password", "CSRFToken": c.Cookies("csrf_"),
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	email := c.FormValue("email")
	pass := c.FormValue("password")
	if _, ok := validate.Email(email); !ok {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": "bad_format"})
		return h.loginFailed(c)
	}
	if !validate.Password(pass) {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": "bad_password_format"})
		return h.loginFailed(c)
	}

	// A session id the browser already holds is never promoted to a login.
	sid := uuid.NewString()
	if _, err := h.Auth.Login(c.UserContext(), sid, email, pass); err != nil {
		log.Security(c, "auth.login.fail", map[string]any{"email": email})
		return h.loginFailed(c)
	}
	if old := c.Cookies("sid"); old != "" {
		_ = h.Auth.Logout(c.UserContext(), old)
	}
	h.setSID(c, sid)

	log.Audit(c, "auth.login.success", map[string]any{"email": email})
	return c.Redirect("/")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := c.Cookies("sid")
	if sid != "" {
		_ = h.Auth.Logout(c.UserContext(), sid)
	}
	// Expire cookie
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.CookieSecure,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	log.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return c.Redirect("/")
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Token exchanges credentials for a bearer token.
// POST /api/v1/token
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var in credentials
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body")
	}
	u, err := h.Auth.Authenticate(c.UserContext(), in.Email, in.Password)
	if err != nil {
		log.Security(c, "auth.token.fail", map[string]any{"email": in.Email})
		return jsonError(c, fiber.StatusUnauthorized, "invalid email or password")
	}
	tok, exp, err := h.Auth.IssueToken(u)
	if err != nil {
		log.Error(c, "auth.token.sign", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not issue token")
	}
	c.Locals("user", u)
	log.Audit(c, "auth.token.issued", nil)
	return c.JSON(fiber.Map{"access_token": tok, "token_type": "Bearer", "expires_at": exp.UTC().Format(time.RFC3339)})
}

type registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Address   string `json:"address"`
	Seller    bool   `json:"seller"`
}

// Register creates an account.
// POST /api/v1/users
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in registration
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body")
	}
	email, ok := validate.Email(in.Email)
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "email"})
		return jsonError(c, fiber.StatusBadRequest, "invalid email")
	}
	if !validate.Password(in.Password) {
		return jsonError(c, fiber.StatusBadRequest, "password must be 8-20 characters with upper, lower, digit and symbol")
	}
	first, ok1 := validate.Name(in.FirstName)
	last, ok2 := validate.Name(in.LastName)
	if !ok1 || !ok2 {
		return jsonError(c, fiber.StatusBadRequest, "names must be 1-20 characters")
	}

	u, err := h.Auth.Register(c.UserContext(), services.Registration{
		Email: email, Password: in.Password, FirstName: first, LastName: last, Address: in.Address, Seller: in.Seller,
	})
	if errors.Is(err, services.ErrEmailTaken) {
		return jsonError(c, fiber.StatusConflict, "email already registered")
	}
	if err != nil {
		log.Error(c, "auth.register", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not register")
	}
	c.Locals("user", u)
	log.Audit(c, "auth.register", map[string]any{"seller": u.Seller})
	return c.Status(fiber.StatusCreated).JSON(u)
}
