package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/philipxlee/bazingamart/internal/log"
	"github.com/philipxlee/bazingamart/internal/services"
	"github.com/philipxlee/bazingamart/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

// Home renders the first page of available listings.
func (h *ProductHandler) Home(c *fiber.Ctx) error {
	page, err := h.Catalog.ListAvailable(c.UserContext(), c.QueryInt("page", 1), 24)
	if err != nil {
		log.Error(c, "catalog.home", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load the catalog"})
	}
	cats, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		log.Error(c, "catalog.categories", err, nil)
	}
	return render(c, "home", fiber.Map{"Page": page, "Categories": cats})
}

// GET /api/v1/listings
func (h *ProductHandler) List(c *fiber.Ctx) error {
	page, err := h.Catalog.ListAvailable(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("page_size", 12))
	if err != nil {
		log.Error(c, "catalog.list", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not load listings")
	}
	return c.JSON(page)
}

// GET /api/v1/products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return jsonError(c, fiber.StatusNotFound, "product not found")
	}
	ls, err := h.Catalog.GetProduct(c.UserContext(), id)
	if errors.Is(err, services.ErrProductNotFound) {
		return jsonError(c, fiber.StatusNotFound, "product not found")
	}
	if err != nil {
		log.Error(c, "catalog.product", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not load product")
	}
	return c.JSON(fiber.Map{"product_id": id, "listings": ls})
}

// GET /api/v1/listings/top?k=5
func (h *ProductHandler) Top(c *fiber.Ctx) error {
	ls, err := h.Catalog.TopExpensive(c.UserContext(), c.QueryInt("k", 5))
	if err != nil {
		log.Error(c, "catalog.top", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not load listings")
	}
	return c.JSON(ls)
}

// GET /api/v1/categories
func (h *ProductHandler) Categories(c *fiber.Ctx) error {
	cats, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		log.Error(c, "catalog.categories", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not load categories")
	}
	return c.JSON(cats)
}

// GET /api/v1/listings/search?q=&category=
func (h *ProductHandler) Search(c *fiber.Ctx) error {
	rawQ := c.Query("q")
	q := ""
	if strings.TrimSpace(rawQ) != "" {
		var ok bool
		if q, ok = validate.Q(rawQ); !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "q", "value": rawQ})
			return jsonError(c, fiber.StatusBadRequest, "enter a valid keyword (letters/numbers only)")
		}
	}
	category := strings.TrimSpace(c.Query("category"))
	if category != "" {
		if _, ok := validate.Q(category); !ok {
			log.Security(c, "validation.fail", map[string]any{"field": "category"})
			return jsonError(c, fiber.StatusBadRequest, "invalid category")
		}
	}

	page, err := h.Catalog.Search(c.UserContext(), q, category, c.QueryInt("page", 1), 20)
	if err != nil {
		log.Error(c, "search.error", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not load results")
	}
	return c.JSON(page)
}
