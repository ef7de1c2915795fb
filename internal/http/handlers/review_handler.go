package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "github.com/philipxlee/bazingamart/internal/log"
	"github.com/philipxlee/bazingamart/internal/repos"
	"github.com/philipxlee/bazingamart/internal/services"
	"github.com/philipxlee/bazingamart/internal/validate"
)

type ReviewHandler struct {
	Reviews *services.ReviewService
}

type reviewBody struct {
	ProductID string `json:"product_id"`
	SellerID  string `json:"seller_id"`
	Stars     int    `json:"stars"`
	Body      string `json:"body"`
}

const maxReviewBody = 2000

func reviewError(c *fiber.Ctx, action string, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidStars):
		return jsonError(c, fiber.StatusBadRequest, "stars must be between 1 and 5")
	case errors.Is(err, services.ErrReviewTarget):
		return jsonError(c, fiber.StatusBadRequest, "review exactly one of product_id or seller_id")
	case errors.Is(err, services.ErrUnknownTarget):
		return jsonError(c, fiber.StatusNotFound, "nothing to review with that id")
	case errors.Is(err, repos.ErrDuplicateReview):
		return jsonError(c, fiber.StatusConflict, "you already reviewed this")
	case errors.Is(err, repos.ErrReviewNotFound):
		return jsonError(c, fiber.StatusNotFound, "review not found")
	case errors.Is(err, services.ErrNotReviewOwner):
		applog.Security(c, "access.denied.review", nil)
		return jsonError(c, fiber.StatusForbidden, "not your review")
	}
	applog.Error(c, action, err, nil)
	return jsonError(c, fiber.StatusInternalServerError, "could not save review")
}

func reviewID(c *fiber.Ctx) (int64, bool) {
	id, err := c.ParamsInt("id")
	return int64(id), err == nil && id > 0
}

func parseReview(c *fiber.Ctx) (reviewBody, bool) {
	var in reviewBody
	if err := c.BodyParser(&in); err != nil {
		return in, false
	}
	in.Body = strings.TrimSpace(in.Body)
	return in, len(in.Body) <= maxReviewBody
}

// POST /api/v1/reviews
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	in, ok := parseReview(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid review")
	}
	for _, id := range []string{in.ProductID, in.SellerID} {
		if id == "" {
			continue
		}
		if _, ok := validate.ID(id); !ok {
			applog.Security(c, "validation.fail", map[string]any{"field": "review_target"})
			return jsonError(c, fiber.StatusBadRequest, "invalid review target")
		}
	}
	rv, err := h.Reviews.Add(c.UserContext(), currentUser(c).ID, services.ReviewInput{
		ProductID: in.ProductID, SellerID: in.SellerID, Stars: in.Stars, Body: in.Body,
	})
	if err != nil {
		return reviewError(c, "review.create", err)
	}
	applog.Audit(c, "review.create", map[string]any{"review_id": rv.ID, "stars": rv.Stars})
	return c.Status(fiber.StatusCreated).JSON(rv)
}

// PUT /api/v1/reviews/:id
func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	id, ok := reviewID(c)
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "review not found")
	}
	in, ok := parseReview(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid review")
	}
	rv, err := h.Reviews.Update(c.UserContext(), currentUser(c).ID, id, in.Stars, in.Body)
	if err != nil {
		return reviewError(c, "review.update", err)
	}
	applog.Audit(c, "review.update", map[string]any{"review_id": id})
	return c.JSON(rv)
}

// DELETE /api/v1/reviews/:id
func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	id, ok := reviewID(c)
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "review not found")
	}
	if err := h.Reviews.Delete(c.UserContext(), currentUser(c).ID, id); err != nil {
		return reviewError(c, "review.delete", err)
	}
	applog.Audit(c, "review.delete", map[string]any{"review_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /api/v1/reviews/:id/upvote
func (h *ReviewHandler) Upvote(c *fiber.Ctx) error {
	id, ok := reviewID(c)
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "review not found")
	}
	if err := h.Reviews.Upvote(c.UserContext(), id); err != nil {
		return reviewError(c, "review.upvote", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ReviewHandler) list(c *fiber.Ctx, load func(id string) (any, error)) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.JSON([]any{})
	}
	out, err := load(id)
	if err != nil {
		applog.Error(c, "review.list", err, nil)
		return jsonError(c, fiber.StatusInternalServerError, "could not load reviews")
	}
	return c.JSON(out)
}

// GET /api/v1/reviews/product/:id
func (h *ReviewHandler) ForProduct(c *fiber.Ctx) error {
	return h.list(c, func(id string) (any, error) { return h.Reviews.ByProduct(c.UserContext(), id) })
}

// GET /api/v1/reviews/seller/:id
func (h *ReviewHandler) ForSeller(c *fiber.Ctx) error {
	return h.list(c, func(id string) (any, error) { return h.Reviews.BySeller(c.UserContext(), id) })
}

// GET /api/v1/reviews/author/:id
func (h *ReviewHandler) ByAuthor(c *fiber.Ctx) error {
	return h.list(c, func(id string) (any, error) { return h.Reviews.RecentByAuthor(c.UserContext(), id) })
}
