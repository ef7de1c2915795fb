package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "github.com/philipxlee/bazingamart/internal/log"
	"github.com/philipxlee/bazingamart/internal/repos"
	"github.com/philipxlee/bazingamart/internal/services"
	"github.com/philipxlee/bazingamart/internal/validate"
)

type OrderHandler struct {
	Cart     *services.CartService
	Checkout *services.CheckoutService
	Order    *services.OrderService
}

// checkoutStatus maps a checkout outcome to an HTTP status.
func checkoutStatus(o services.CheckoutOutcome) int {
	switch o {
	case services.CheckoutSuccess:
		return fiber.StatusOK
	case services.CheckoutEmptyCart, services.CheckoutInsufficientBalance, services.CheckoutInsufficientInventory:
		return fiber.StatusConflict
	default:
		return fiber.StatusServiceUnavailable
	}
}

func checkoutMessage(res services.CheckoutResult) string {
	switch res.Outcome {
	case services.CheckoutSuccess:
		return "Order placed."
	case services.CheckoutEmptyCart:
		return "Your cart is empty."
	case services.CheckoutInsufficientBalance:
		return "Your balance does not cover this order."
	case services.CheckoutInsufficientInventory:
		return "Not enough stock left for " + res.ProductName + "."
	default:
		return "Checkout could not be completed. Nothing was charged, please try again."
	}
}

// submit runs the checkout and writes the audit trail. ok is false when the
// cart references a listing that no longer exists.
func (h *OrderHandler) submit(c *fiber.Ctx) (services.CheckoutResult, bool, error) {
	res, err := h.Checkout.SubmitCart(c.UserContext(), currentUser(c).ID)
	if errors.Is(err, services.ErrUnknownListing) {
		applog.Security(c, "checkout.unknown_listing", map[string]any{"error": err.Error()})
		return res, false, nil
	}
	if err != nil {
		return res, false, err
	}

	fields := map[string]any{
		"outcome":  string(res.Outcome),
		"subtotal": res.Subtotal.String(),
		"discount": res.Discount.String(),
		"total":    res.Total.String(),
	}
	switch res.Outcome {
	case services.CheckoutSuccess:
		fields["order_id"] = res.OrderID
		applog.Audit(c, "checkout.success", fields)
	case services.CheckoutTransactionFailed:
		applog.Error(c, "checkout.tx_failed", res.Cause, fields)
	default:
		if res.ProductName != "" {
			fields["product"] = res.ProductName
		}
		applog.Info(c, "checkout.rejected", fields)
	}
	return res, true, nil
}

// POST /cart/checkout
func (h *OrderHandler) CheckoutForm(c *fiber.Ctx) error {
	res, ok, err := h.submit(c)
	if err != nil {
		applog.Error(c, "checkout.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not check out"})
	}
	if ok && res.Outcome == services.CheckoutSuccess {
		return c.Redirect("/orders/" + res.OrderID)
	}

	msg := "An item in your cart is no longer listed. Please remove it and try again."
	status := fiber.StatusUnprocessableEntity
	if ok {
		msg, status = checkoutMessage(res), checkoutStatus(res.Outcome)
	}
	cv, err := h.Cart.View(c.UserContext(), currentUser(c).ID)
	if err != nil {
		applog.Error(c, "cart.view", err, nil)
	}
	c.Status(status)
	return render(c, "cart", fiber.Map{"Cart": cv, "Err": msg})
}

// POST /api/v1/checkout
func (h *OrderHandler) CheckoutJSON(c *fiber.Ctx) error {
	res, ok, err := h.submit(c)
	if err != nil {
		applog.Error(c, "checkout.fail", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not check out")
	}
	if !ok {
		return jsonError(c, fiber.StatusUnprocessableEntity, "cart references a listing that no longer exists")
	}
	body := fiber.Map{
		"outcome":  res.Outcome,
		"message":  checkoutMessage(res),
		"subtotal": res.Subtotal,
		"discount": res.Discount,
		"total":    res.Total,
	}
	if res.OrderID != "" {
		body["order_id"] = res.OrderID
	}
	if res.ProductName != "" {
		body["product_name"] = res.ProductName
	}
	return c.Status(checkoutStatus(res.Outcome)).JSON(body)
}

// History lists orders for the current logged-in user.
func (h *OrderHandler) History(c *fiber.Ctx) error {
	orders, err := h.Order.History(c.UserContext(), currentUser(c).ID, c.QueryInt("page", 1), 20)
	if err != nil {
		applog.Error(c, "orders.history.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load orders"})
	}
	return render(c, "orders", fiber.Map{"Orders": orders})
}

// GET /api/v1/orders
func (h *OrderHandler) HistoryJSON(c *fiber.Ctx) error {
	orders, err := h.Order.History(c.UserContext(), currentUser(c).ID, c.QueryInt("page", 1), c.QueryInt("page_size", 20))
	if err != nil {
		applog.Error(c, "orders.history.fail", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not load orders")
	}
	return c.JSON(orders)
}

func (h *OrderHandler) detail(c *fiber.Ctx) (services.OrderDetail, error) {
	oid, ok := validate.ID(c.Params("id"))
	if !ok {
		return services.OrderDetail{}, repos.ErrOrderNotFound
	}
	d, err := h.Order.Detail(c.UserContext(), currentUser(c).ID, oid)
	if errors.Is(err, repos.ErrOrderNotFound) {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": oid})
	}
	return d, err
}

// View renders one order; other users' orders read as not found.
func (h *OrderHandler) View(c *fiber.Ctx) error {
	d, err := h.detail(c)
	if errors.Is(err, repos.ErrOrderNotFound) {
		return notFound(c, "Order not found")
	}
	if err != nil {
		applog.Error(c, "orders.view.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load order"})
	}
	return render(c, "order", fiber.Map{"Order": d})
}

// GET /api/v1/orders/:id
func (h *OrderHandler) ViewJSON(c *fiber.Ctx) error {
	d, err := h.detail(c)
	if errors.Is(err, repos.ErrOrderNotFound) {
		return jsonError(c, fiber.StatusNotFound, "order not found")
	}
	if err != nil {
		applog.Error(c, "orders.view.fail", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not load order")
	}
	return c.JSON(d)
}
