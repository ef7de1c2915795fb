package services

import (
	"context"
	"errors"

	"github.com/philipxlee/bazingamart/internal/domain"
	"github.com/philipxlee/bazingamart/internal/repos"
)

var (
	ErrInvalidStars   = errors.New("stars must be between 1 and 5")
	ErrReviewTarget   = errors.New("review needs exactly one of product or seller")
	ErrUnknownTarget  = errors.New("reviewed product or seller does not exist")
	ErrNotReviewOwner = errors.New("review belongs to another user")
)

type ReviewService struct {
	Reviews *repos.ReviewRepo
	Prods   *repos.ProductRepo
	Users   *repos.UserRepo
}

func NewReviewService(reviews *repos.ReviewRepo, prods *repos.ProductRepo, users *repos.UserRepo) *ReviewService {
	return &ReviewService{Reviews: reviews, Prods: prods, Users: users}
}

type ReviewInput struct {
	ProductID string
	SellerID  string
	Stars     int
	Body      string
}

func (s *ReviewService) Add(ctx context.Context, authorID string, in ReviewInput) (domain.Review, error) {
	if (in.ProductID == "") == (in.SellerID == "") {
		return domain.Review{}, ErrReviewTarget
	}
	if in.Stars < 1 || in.Stars > 5 {
		return domain.Review{}, ErrInvalidStars
	}
	if err := s.checkTarget(ctx, in); err != nil {
		return domain.Review{}, err
	}
	id, err := s.Reviews.Create(ctx, &domain.Review{
		AuthorID: authorID, ProductID: in.ProductID, SellerID: in.SellerID, Stars: in.Stars, Body: in.Body,
	})
	if err != nil {
		return domain.Review{}, err
	}
	return s.Reviews.Get(ctx, id)
}

func (s *ReviewService) checkTarget(ctx context.Context, in ReviewInput) error {
	if in.ProductID != "" {
		ls, err := s.Prods.ByProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if len(ls) == 0 {
			return ErrUnknownTarget
		}
		return nil
	}
	u, err := s.Users.ByID(ctx, in.SellerID)
	if errors.Is(err, repos.ErrUserNotFound) || (err == nil && !u.Seller) {
		return ErrUnknownTarget
	}
	return err
}

func (s *ReviewService) owned(ctx context.Context, authorID string, id int64) error {
	rv, err := s.Reviews.Get(ctx, id)
	if err != nil {
		return err
	}
	if rv.AuthorID != authorID {
		return ErrNotReviewOwner
	}
	return nil
}

func (s *ReviewService) Update(ctx context.Context, authorID string, id int64, stars int, body string) (domain.Review, error) {
	if stars < 1 || stars > 5 {
		return domain.Review{}, ErrInvalidStars
	}
	if err := s.owned(ctx, authorID, id); err != nil {
		return domain.Review{}, err
	}
	if err := s.Reviews.Update(ctx, id, stars, body); err != nil {
		return domain.Review{}, err
	}
	return s.Reviews.Get(ctx, id)
}

func (s *ReviewService) Delete(ctx context.Context, authorID string, id int64) error {
	if err := s.owned(ctx, authorID, id); err != nil {
		return err
	}
	return s.Reviews.Delete(ctx, id)
}

func (s *ReviewService) Upvote(ctx context.Context, id int64) error {
	return s.Reviews.Upvote(ctx, id)
}

func (s *ReviewService) ByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	return s.Reviews.ByProduct(ctx, productID)
}

func (s *ReviewService) BySeller(ctx context.Context, sellerID string) ([]domain.Review, error) {
	return s.Reviews.BySeller(ctx, sellerID)
}

// RecentByAuthor returns the author's five most recent reviews.
func (s *ReviewService) RecentByAuthor(ctx context.Context, authorID string) ([]domain.Review, error) {
	return s.Reviews.ByAuthor(ctx, authorID, 5)
}
