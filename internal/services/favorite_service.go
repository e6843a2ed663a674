// Package services – FavoriteService
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/repo"
)

// FavoriteService implements bookmark use-cases.
type FavoriteService struct {
	DB *gorm.DB
}

// NewFavoriteService constructs a FavoriteService.
func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{DB: db}
}

// Toggle removes the user's bookmark of placeID if present and adds it
// otherwise. It reports whether the place is bookmarked afterwards. Losing an
// insert race to a concurrent toggle counts as bookmarked.
func (s *FavoriteService) Toggle(ctx context.Context, user *domain.User, placeID uint) (favorited bool, err error) {
	ctx, span := startSpan(ctx, "FavoriteService", "Toggle", actorAttr(user), idAttr("place.id", placeID))
	defer func() {
		span.SetAttributes(attribute.Bool("favorited", favorited))
		endSpan(span, err)
	}()

	if err := requireActor(user); err != nil {
		return false, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetPlace(ctx, tx, placeID); err != nil {
			return notFoundOr(err, ErrPlaceNotFound)
		}
		fav, err := repo.GetFavorite(ctx, tx, user.ID, placeID)
		switch {
		case err == nil:
			favorited = false
			return repo.DeleteFavorite(ctx, tx, fav.ID)
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}
		if _, err := repo.CreateFavorite(ctx, tx, user.ID, placeID); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			return err
		}
		favorited = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return favorited, nil
}

// List returns the places the user bookmarked.
func (s *FavoriteService) List(ctx context.Context, user *domain.User) (out []domain.Place, err error) {
	ctx, span := startSpan(ctx, "FavoriteService", "List", actorAttr(user))
	defer func() { endSpan(span, err) }()

	if err := requireActor(user); err != nil {
		return nil, err
	}
	return repo.ListFavoritePlaces(ctx, s.DB, user.ID)
}
