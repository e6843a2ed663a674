// Package services – PurchaseService
//
// Buying a listing records a ledger row; there is no payment processing.
// A (buyer, place) pair is recorded at most once: the operation checks for a
// prior purchase and the unique index on the ledger backs it up under races.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/authz"
	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/repo"
)

// PurchaseService implements purchase use-cases.
type PurchaseService struct {
	DB *gorm.DB
}

// NewPurchaseService constructs a PurchaseService.
func NewPurchaseService(db *gorm.DB) *PurchaseService {
	return &PurchaseService{DB: db}
}

// Buy records that buyer purchased placeID.
//
// Errors:
//   - ErrPlaceNotFound when the listing does not exist.
//   - ErrSelfPurchase when buyer owns the listing.
//   - ErrAlreadyPurchased when buyer already bought it.
func (s *PurchaseService) Buy(ctx context.Context, buyer *domain.User, placeID uint) (p *domain.Purchase, err error) {
	ctx, span := startSpan(ctx, "PurchaseService", "Buy", actorAttr(buyer), idAttr("place.id", placeID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(buyer); err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		place, err := repo.GetPlace(ctx, tx, placeID)
		if err != nil {
			return notFoundOr(err, ErrPlaceNotFound)
		}
		if !authz.CanPurchase(buyer, place) {
			return ErrSelfPurchase
		}
		exists, err := repo.PurchaseExists(ctx, tx, buyer.ID, placeID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyPurchased
		}
		created, err := repo.CreatePurchase(ctx, tx, buyer.ID, placeID)
		if err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrAlreadyPurchased
			}
			if repo.IsForeignKeyViolation(err) {
				return ErrPlaceNotFound
			}
			return err
		}
		p = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListMine returns the buyer's purchases with the purchased places loaded.
func (s *PurchaseService) ListMine(ctx context.Context, buyer *domain.User) (out []domain.Purchase, err error) {
	ctx, span := startSpan(ctx, "PurchaseService", "ListMine", actorAttr(buyer))
	defer func() { endSpan(span, err) }()

	if err := requireActor(buyer); err != nil {
		return nil, err
	}
	return repo.ListPurchasesByUser(ctx, s.DB, buyer.ID)
}
