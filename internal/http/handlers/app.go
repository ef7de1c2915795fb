package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/philipxlee/bazingamart/internal/config"
	applog "github.com/philipxlee/bazingamart/internal/log"
	"github.com/philipxlee/bazingamart/web"
)

func isAPI(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}

// ErrorHandler logs the failure and answers without leaking internals.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	msg := "Something went wrong. Please try again."
	if code < fiber.StatusInternalServerError {
		msg = fe.Message
	} else {
		applog.Error(c, "server.error", err, nil)
	}
	if isAPI(c) {
		return jsonError(c, code, msg)
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

func rateLimited(event string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		applog.Security(c, event, nil)
		if isAPI(c) {
			return jsonError(c, fiber.StatusTooManyRequests, "rate limit exceeded, retry soon")
		}
		return c.Status(fiber.StatusTooManyRequests).Render("notfound", fiber.Map{"Message": "Too many attempts. Please try again later."})
	}
}

// NewApp builds the fiber app with middleware and every route wired to d.
func NewApp(d *Deps, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:        web.Engine(),
		ErrorHandler: ErrorHandler,
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	if d.Metrics != nil {
		app.Use(d.Metrics.Middleware())
	}
	app.Use(AttachUser(d.Auth))
	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:          cfg.RateLimit,
			Expiration:   time.Minute,
			LimitReached: rateLimited("rate.global.hit"),
			Next: func(c *fiber.Ctx) bool {
				p := c.Path()
				return p == "/healthz" || p == "/metrics"
			},
		}))
	}
	// API routes authenticate with bearer tokens and skip CSRF.
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		ContextKey:     "csrf",
		Next:           isAPI,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"form": c.FormValue("csrf")})
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	loginLimiter := limiter.New(limiter.Config{
		Max:          max(cfg.LoginLimit, 1),
		Expiration:   10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() + "|login" },
		LimitReached: rateLimited("rate.login.hit"),
	})
	checkoutLimiter := limiter.New(limiter.Config{
		Max:          max(cfg.CheckoutLimit, 1),
		Expiration:   time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() + "|checkout" },
		LimitReached: rateLimited("rate.checkout.hit"),
	})
	availLimiter := limiter.New(limiter.Config{
		Max:          15,
		Expiration:   30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() + "|avail" },
		LimitReached: rateLimited("rate.availability.hit"),
	})

	requireUser := RequireUser(d.Auth)
	requireAPI := RequireAPIUser(d.Auth)

	// ---------- Pages ----------
	app.Get("/", d.ProductHandler.Home)
	app.Get("/login", d.AuthHandler.LoginForm)
	app.Post("/login", loginLimiter, d.AuthHandler.Login)
	app.Post("/logout", d.AuthHandler.Logout)

	app.Get("/cart", requireUser, d.CartHandler.View)
	app.Post("/cart/items", requireUser, d.CartHandler.AddForm)
	app.Post("/cart/checkout", requireUser, checkoutLimiter, d.OrderHandler.CheckoutForm)
	app.Get("/orders", requireUser, d.OrderHandler.History)
	app.Get("/orders/:id", requireUser, d.OrderHandler.View)

	// ---------- API ----------
	api := app.Group("/api/v1")
	api.Post("/token", loginLimiter, d.AuthHandler.Token)
	api.Post("/users", d.AuthHandler.Register)
	api.Get("/users/:id", d.AccountHandler.Public)

	api.Get("/categories", d.ProductHandler.Categories)
	api.Get("/listings", d.ProductHandler.List)
	api.Get("/listings/top", d.ProductHandler.Top)
	api.Get("/listings/search", d.ProductHandler.Search)
	api.Get("/products/:id", d.ProductHandler.Detail)
	api.Get("/availability", availLimiter, d.InventoryHandler.Check)

	me := api.Group("/me", requireAPI)
	me.Get("/", d.AccountHandler.Me)
	me.Put("/", d.AccountHandler.UpdateMe)
	me.Post("/balance", d.AccountHandler.Balance)

	cart := api.Group("/cart", requireAPI)
	cart.Get("/", d.CartHandler.ViewJSON)
	cart.Post("/items", d.CartHandler.Add)
	cart.Put("/items", d.CartHandler.Update)
	cart.Delete("/items", d.CartHandler.Remove)
	cart.Put("/coupon", d.CartHandler.Coupon)

	api.Post("/checkout", requireAPI, checkoutLimiter, d.OrderHandler.CheckoutJSON)
	orders := api.Group("/orders", requireAPI)
	orders.Get("/", d.OrderHandler.HistoryJSON)
	orders.Get("/:id", d.OrderHandler.ViewJSON)

	seller := api.Group("/seller", requireAPI, RequireSeller())
	seller.Get("/listings", d.InventoryHandler.Listings)
	seller.Put("/listings", d.InventoryHandler.Save)
	seller.Get("/listings/export", d.InventoryHandler.Export)
	seller.Get("/items", d.InventoryHandler.SoldItems)
	seller.Put("/orders/:id/items", d.InventoryHandler.Fulfill)

	api.Get("/reviews/product/:id", d.ReviewHandler.ForProduct)
	api.Get("/reviews/seller/:id", d.ReviewHandler.ForSeller)
	api.Get("/reviews/author/:id", d.ReviewHandler.ByAuthor)
	api.Post("/reviews", requireAPI, d.ReviewHandler.Create)
	api.Put("/reviews/:id", requireAPI, d.ReviewHandler.Update)
	api.Delete("/reviews/:id", requireAPI, d.ReviewHandler.Delete)
	api.Post("/reviews/:id/upvote", requireAPI, d.ReviewHandler.Upvote)

	// ---------- Ops ----------
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return jsonError(c, fiber.StatusNotFound, "not found")
		}
		return notFound(c, "Page not found")
	})
	return app
}
