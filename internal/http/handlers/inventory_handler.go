package handlers

import (
	"bytes"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/philipxlee/bazingamart/internal/domain"
	applog "github.com/philipxlee/bazingamart/internal/log"
	"github.com/philipxlee/bazingamart/internal/repos"
	"github.com/philipxlee/bazingamart/internal/services"
	"github.com/philipxlee/bazingamart/internal/validate"
)

type InventoryHandler struct {
	Inv         *services.InventoryService
	Fulfillment *services.FulfillmentService
}

// GET /api/v1/availability?productId=&sellerId=
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	productID := strings.TrimSpace(c.Query("productId"))
	if productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing productId",
		})
	}
	if _, ok := validate.ID(productID); !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return jsonError(c, fiber.StatusBadRequest, "invalid productId")
	}
	sellerID, ok := validate.ID(c.Query("sellerId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "enter a valid sellerId",
		})
	}

	avail, err := h.Inv.CheckAvailability(c.UserContext(), productID, sellerID)
	if err != nil {
		applog.Error(c, "inventory.availability", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not check availability")
	}
	return c.JSON(avail)
}

// GET /api/v1/seller/listings
func (h *InventoryHandler) Listings(c *fiber.Ctx) error {
	ls, err := h.Inv.Listings(c.UserContext(), currentUser(c))
	if err != nil {
		applog.Error(c, "inventory.list", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not load inventory")
	}
	return c.JSON(ls)
}

type listingBody struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
	Available   *bool  `json:"available"`
}

// PUT /api/v1/seller/listings
func (h *InventoryHandler) Save(c *fiber.Ctx) error {
	var in listingBody
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body")
	}
	pid, ok := validate.ID(in.ProductID)
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "product_id"})
		return jsonError(c, fiber.StatusBadRequest, "invalid product_id")
	}
	name, ok := validate.Title(in.Name)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "name must be 1-120 characters")
	}
	price, ok := validate.Money(in.Price)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "price must be a non-negative amount")
	}
	if !validate.Stock(in.Quantity) {
		return jsonError(c, fiber.StatusBadRequest, "quantity must be between 0 and 100000")
	}
	available := true
	if in.Available != nil {
		available = *in.Available
	}

	l, err := h.Inv.SaveListing(c.UserContext(), currentUser(c), services.ListingInput{
		ProductID:   pid,
		Name:        name,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Price:       price,
		Quantity:    in.Quantity,
		Available:   available,
	})
	if errors.Is(err, services.ErrInvalidListing) {
		return jsonError(c, fiber.StatusBadRequest, "invalid listing")
	}
	if err != nil {
		applog.Error(c, "inventory.save", err, map[string]any{"product_id": pid})
		return jsonError(c, fiber.StatusInternalServerError, "could not save listing")
	}
	applog.Audit(c, "inventory.save", map[string]any{
		"product_id": l.ProductID, "qty": l.Quantity, "price": l.Price.String(), "available": l.Available,
	})
	return c.JSON(l)
}

// GET /api/v1/seller/listings/export
func (h *InventoryHandler) Export(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.Inv.Export(c.UserContext(), currentUser(c), &buf); err != nil {
		applog.Error(c, "inventory.export", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not export listings")
	}
	applog.Audit(c, "inventory.export", nil)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="listings.xlsx"`)
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return c.Send(buf.Bytes())
}

// GET /api/v1/seller/items?status=
func (h *InventoryHandler) SoldItems(c *fiber.Ctx) error {
	items, err := h.Inv.SellerItems(c.UserContext(), currentUser(c), c.Query("status"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidFulfillmentStatus) {
			return jsonError(c, fiber.StatusBadRequest, "status must be Incomplete or Fulfilled")
		}
		applog.Error(c, "inventory.items", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not load items")
	}
	return c.JSON(items)
}

type fulfillmentBody struct {
	ProductID string `json:"product_id"`
	SellerID  string `json:"seller_id"`
	Status    string `json:"status"`
}

// PUT /api/v1/seller/orders/:id/items
func (h *InventoryHandler) Fulfill(c *fiber.Ctx) error {
	orderID, ok := validate.ID(c.Params("id"))
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "line item not found")
	}
	var in fulfillmentBody
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid body")
	}
	u := currentUser(c)
	if in.SellerID == "" {
		in.SellerID = u.ID
	}

	res, err := h.Fulfillment.UpdateItemStatus(c.UserContext(), u.ID, orderID, in.ProductID, in.SellerID, in.Status)
	if errors.Is(err, repos.ErrLineItemNotFound) {
		return jsonError(c, fiber.StatusNotFound, "line item not found")
	}
	if errors.Is(err, repos.ErrListingNotFound) {
		applog.Security(c, "fulfillment.unknown_listing", map[string]any{"order_id": orderID, "product_id": in.ProductID})
		return jsonError(c, fiber.StatusNotFound, "listing not found")
	}
	if err != nil {
		applog.Error(c, "fulfillment.update", err, map[string]any{"order_id": orderID})
		return jsonError(c, fiber.StatusInternalServerError, "could not update line item")
	}

	fields := map[string]any{"order_id": orderID, "product_id": in.ProductID, "status": in.Status, "outcome": string(res.Outcome)}
	switch res.Outcome {
	case services.FulfillmentInvalidStatus:
		applog.Security(c, "validation.fail", map[string]any{"field": "status"})
		return c.Status(fiber.StatusBadRequest).JSON(res)
	case services.FulfillmentUnauthorizedUpdate:
		applog.Security(c, "access.denied.fulfillment", fields)
		return c.Status(fiber.StatusForbidden).JSON(res)
	}
	fields["order_status"] = string(res.OrderStatus)
	applog.Audit(c, "fulfillment.update", fields)
	return c.JSON(res)
}
