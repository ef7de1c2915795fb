package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipxlee/bazingamart/internal/repos"
	"github.com/philipxlee/bazingamart/internal/services"
)

func newReviews(f *fixture) *services.ReviewService {
	return services.NewReviewService(repos.NewReviewRepo(f.db), repos.NewProductRepo(f.db), repos.NewUserRepo(f.db))
}

func TestReviewLifecycle(t *testing.T) {
	f := newFixture(t)
	f.user("s", "0", true)
	f.user("a", "0", false)
	f.user("other", "0", false)
	f.listing("p", "s", "Pot", "5.00", 2)
	svc := newReviews(f)

	_, err := svc.Add(f.ctx, "a", services.ReviewInput{ProductID: "p", SellerID: "s", Stars: 3})
	assert.ErrorIs(t, err, services.ErrReviewTarget)
	_, err = svc.Add(f.ctx, "a", services.ReviewInput{ProductID: "p", Stars: 6})
	assert.ErrorIs(t, err, services.ErrInvalidStars)
	_, err = svc.Add(f.ctx, "a", services.ReviewInput{ProductID: "ghost", Stars: 3})
	assert.ErrorIs(t, err, services.ErrUnknownTarget)
	_, err = svc.Add(f.ctx, "a", services.ReviewInput{SellerID: "other", Stars: 3})
	assert.ErrorIs(t, err, services.ErrUnknownTarget)

	rv, err := svc.Add(f.ctx, "a", services.ReviewInput{ProductID: "p", Stars: 4, Body: "solid"})
	require.NoError(t, err)
	assert.Equal(t, "p", rv.ProductID)
	_, err = svc.Add(f.ctx, "a", services.ReviewInput{ProductID: "p", Stars: 2})
	assert.ErrorIs(t, err, repos.ErrDuplicateReview)

	_, err = svc.Update(f.ctx, "other", rv.ID, 1, "spite")
	assert.ErrorIs(t, err, services.ErrNotReviewOwner)
	rv, err = svc.Update(f.ctx, "a", rv.ID, 5, "even better")
	require.NoError(t, err)
	assert.Equal(t, 5, rv.Stars)

	require.NoError(t, svc.Upvote(f.ctx, rv.ID))
	byProduct, err := svc.ByProduct(f.ctx, "p")
	require.NoError(t, err)
	require.Len(t, byProduct, 1)
	assert.Equal(t, 1, byProduct[0].Upvotes)

	assert.ErrorIs(t, svc.Delete(f.ctx, "other", rv.ID), services.ErrNotReviewOwner)
	require.NoError(t, svc.Delete(f.ctx, "a", rv.ID))
	recent, err := svc.RecentByAuthor(f.ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, recent)
}
