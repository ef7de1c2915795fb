package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "github.com/philipxlee/bazingamart/internal/log"
	"github.com/philipxlee/bazingamart/internal/repos"
	"github.com/philipxlee/bazingamart/internal/services"
	"github.com/philipxlee/bazingamart/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

// View renders the pending cart page.
func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(c.UserContext(), currentUser(c).ID)
	if err != nil {
		applog.Error(c, "cart.view", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	return render(c, "cart", fiber.Map{"Cart": cv})
}

// GET /api/v1/cart
func (h *CartHandler) ViewJSON(c *fiber.Ctx) error {
	cv, err := h.Cart.View(c.UserContext(), currentUser(c).ID)
	if err != nil {
		applog.Error(c, "cart.view", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not load cart")
	}
	return c.JSON(cv)
}

type cartItemBody struct {
	ProductID string `json:"product_id"`
	SellerID  string `json:"seller_id"`
	Quantity  int    `json:"quantity"`
}

func parseCartItem(c *fiber.Ctx) (cartItemBody, bool) {
	var in cartItemBody
	if err := c.BodyParser(&in); err != nil {
		return in, false
	}
	var ok1, ok2 bool
	in.ProductID, ok1 = validate.ID(in.ProductID)
	in.SellerID, ok2 = validate.ID(in.SellerID)
	if !ok1 || !ok2 {
		applog.Security(c, "validation.fail", map[string]any{"field": "listing"})
		return in, false
	}
	return in, true
}

// cartError maps cart business errors to API answers.
func cartError(c *fiber.Ctx, action string, err error) error {
	switch {
	case errors.Is(err, repos.ErrListingNotFound):
		return jsonError(c, fiber.StatusNotFound, "listing not found")
	case errors.Is(err, services.ErrListingUnavailable):
		return jsonError(c, fiber.StatusConflict, "listing is not available")
	case errors.Is(err, services.ErrNotEnoughStock):
		return jsonError(c, fiber.StatusConflict, "not enough stock")
	case errors.Is(err, services.ErrNoPendingCart), errors.Is(err, repos.ErrLineItemNotFound):
		return jsonError(c, fiber.StatusNotFound, "item is not in your cart")
	case errors.Is(err, services.ErrUnknownCoupon):
		return jsonError(c, fiber.StatusUnprocessableEntity, "unknown coupon code")
	}
	applog.Error(c, action, err, nil)
	return jsonError(c, fiber.StatusInternalServerError, "could not update cart")
}

// POST /api/v1/cart/items
func (h *CartHandler) Add(c *fiber.Ctx) error {
	in, ok := parseCartItem(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "product_id and seller_id are required")
	}
	if in.Quantity < 1 || in.Quantity > 50 {
		return jsonError(c, fiber.StatusBadRequest, "quantity must be 1-50")
	}
	if err := h.Cart.Add(c.UserContext(), currentUser(c).ID, in.ProductID, in.SellerID, in.Quantity); err != nil {
		return cartError(c, "cart.add", err)
	}
	applog.Info(c, "cart.add", map[string]any{"product_id": in.ProductID, "seller_id": in.SellerID, "qty": in.Quantity})
	return h.ViewJSON(c)
}

// AddForm handles the "Add to cart" button on the listing page.
// POST /cart/items
func (h *CartHandler) AddForm(c *fiber.Ctx) error {
	pid, ok1 := validate.ID(c.FormValue("product_id"))
	sid, ok2 := validate.ID(c.FormValue("seller_id"))
	if !ok1 || !ok2 {
		applog.Security(c, "validation.fail", map[string]any{"field": "listing"})
		return notFound(c, "This item is no longer available")
	}
	qty := validate.Qty(c.FormValue("quantity"))
	err := h.Cart.Add(c.UserContext(), currentUser(c).ID, pid, sid, qty)
	switch {
	case err == nil:
		applog.Info(c, "cart.add", map[string]any{"product_id": pid, "seller_id": sid, "qty": qty})
		return c.Redirect("/cart")
	case errors.Is(err, repos.ErrListingNotFound), errors.Is(err, services.ErrListingUnavailable):
		return notFound(c, "This item is no longer available")
	case errors.Is(err, services.ErrNotEnoughStock):
		cv, _ := h.Cart.View(c.UserContext(), currentUser(c).ID)
		c.Status(fiber.StatusConflict)
		return render(c, "cart", fiber.Map{"Cart": cv, "Err": "Not enough stock for that quantity."})
	}
	applog.Error(c, "cart.add", err, nil)
	return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not add to cart"})
}

// PUT /api/v1/cart/items
func (h *CartHandler) Update(c *fiber.Ctx) error {
	in, ok := parseCartItem(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "product_id and seller_id are required")
	}
	if in.Quantity > 50 {
		return jsonError(c, fiber.StatusBadRequest, "quantity must be at most 50")
	}
	if err := h.Cart.UpdateQuantity(c.UserContext(), currentUser(c).ID, in.ProductID, in.SellerID, in.Quantity); err != nil {
		return cartError(c, "cart.update", err)
	}
	return h.ViewJSON(c)
}

// DELETE /api/v1/cart/items
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	in, ok := parseCartItem(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "product_id and seller_id are required")
	}
	if err := h.Cart.Remove(c.UserContext(), currentUser(c).ID, in.ProductID, in.SellerID); err != nil {
		return cartError(c, "cart.remove", err)
	}
	return h.ViewJSON(c)
}

// PUT /api/v1/cart/coupon
func (h *CartHandler) Coupon(c *fiber.Ctx) error {
	var in struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body")
	}
	if in.Code != "" {
		if _, ok := validate.ID(in.Code); !ok {
			applog.Security(c, "validation.fail", map[string]any{"field": "coupon"})
			return jsonError(c, fiber.StatusBadRequest, "invalid coupon code")
		}
	}
	if err := h.Cart.ApplyCoupon(c.UserContext(), currentUser(c).ID, in.Code); err != nil {
		return cartError(c, "cart.coupon", err)
	}
	return h.ViewJSON(c)
}
