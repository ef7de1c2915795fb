package handlers

import (
	"github.com/jmoiron/sqlx"

	"github.com/philipxlee/bazingamart/internal/config"
	"github.com/philipxlee/bazingamart/internal/metrics"
	"github.com/philipxlee/bazingamart/internal/repos"
	"github.com/philipxlee/bazingamart/internal/services"
)

type Deps struct {
	Auth    *services.AuthService
	Metrics *metrics.Metrics

	AuthHandler      *AuthHandler
	AccountHandler   *AccountHandler
	ProductHandler   *ProductHandler
	InventoryHandler *InventoryHandler
	CartHandler      *CartHandler
	OrderHandler     *OrderHandler
	ReviewHandler    *ReviewHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, m *metrics.Metrics) *Deps {
	userRepo := repos.NewUserRepo(db)
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	cartRepo := repos.NewCartRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	reviewRepo := repos.NewReviewRepo(db)

	authSvc := &services.AuthService{
		Users:      userRepo,
		JWTSecret:  []byte(cfg.JWTSecret),
		TokenTTL:   cfg.JWTTTL,
		BcryptCost: cfg.BcryptCost,
	}
	catalogSvc := services.NewCatalogService(catRepo, prodRepo)
	invSvc := services.NewInventoryService(invRepo, orderRepo)
	cartSvc := services.NewCartService(db)

	return &Deps{
		Auth:             authSvc,
		Metrics:          m,
		AuthHandler:      &AuthHandler{Auth: authSvc, CookieSecure: cfg.CookieSecure},
		AccountHandler:   &AccountHandler{Accounts: services.NewAccountService(db, cfg.BcryptCost)},
		ProductHandler:   &ProductHandler{Catalog: catalogSvc},
		InventoryHandler: &InventoryHandler{Inv: invSvc, Fulfillment: services.NewFulfillmentService(db, m)},
		CartHandler:      &CartHandler{Cart: cartSvc},
		OrderHandler: &OrderHandler{
			Cart:     cartSvc,
			Checkout: services.NewCheckoutService(db, m),
			Order:    services.NewOrderService(cartRepo, orderRepo),
		},
		ReviewHandler: &ReviewHandler{Reviews: services.NewReviewService(reviewRepo, prodRepo, userRepo)},
	}
}
