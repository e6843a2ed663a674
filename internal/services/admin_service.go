// Package services – AdminService
//
// The administrative surface is a thin adapter over the same repositories
// and predicates as the rest of the service layer. Every operation first
// checks that the actor is an administrator.
package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/authz"
	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/repo"
)

// AdminService implements administrator use-cases.
type AdminService struct {
	DB     *gorm.DB
	Places *PlaceService
	Images ImageStore
}

// NewAdminService constructs an AdminService that deletes places through places.
func NewAdminService(db *gorm.DB, places *PlaceService, images ImageStore) *AdminService {
	return &AdminService{DB: db, Places: places, Images: images}
}

func requireAdmin(actor *domain.User) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !authz.IsAdmin(actor) {
		return forbidden("administrator access required")
	}
	return nil
}

// ListUsers returns a page of accounts and the total count. Invalid paging
// values fall back to page 1 of 20.
func (s *AdminService) ListUsers(ctx context.Context, actor *domain.User, page, pageSize int) (out []domain.User, total int64, err error) {
	ctx, span := startSpan(ctx, "AdminService", "ListUsers", actorAttr(actor),
		attribute.Int("page", page), attribute.Int("page_size", pageSize))
	defer func() { endSpan(span, err) }()

	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err = repo.CountUsers(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.User{}, 0, nil
	}
	out, err = repo.ListUsersPage(ctx, s.DB, (page-1)*pageSize, pageSize)
	return out, total, err
}

// DeleteUser removes userID and everything they own. Users who bought a
// place, or whose places were bought, are kept so the purchase ledger stays
// intact. Administrators cannot delete themselves.
func (s *AdminService) DeleteUser(ctx context.Context, actor *domain.User, userID uint) (err error) {
	ctx, span := startSpan(ctx, "AdminService", "DeleteUser", actorAttr(actor), idAttr("user.id", userID))
	defer func() { endSpan(span, err) }()

	if err := requireAdmin(actor); err != nil {
		return err
	}
	if actor.ID == userID {
		return validationf("you cannot delete your own account")
	}

	var files []string
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := repo.GetUser(ctx, tx, userID)
		if err != nil {
			return notFoundOr(err, ErrUserNotFound)
		}
		bought, err := repo.CountPurchasesByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		sold, err := repo.CountPurchasesOfOwner(ctx, tx, userID)
		if err != nil {
			return err
		}
		if bought > 0 || sold > 0 {
			return ErrUserHasPurchases
		}
		places, err := repo.ListPlacesByOwner(ctx, tx, userID)
		if err != nil {
			return err
		}
		for _, p := range places {
			if p.ImageFile != nil {
				files = append(files, *p.ImageFile)
			}
			if _, err := repo.DeleteComplaintsForPlace(ctx, tx, p.ID); err != nil {
				return err
			}
		}
		files = append(files, u.Avatar)
		if err := repo.DeleteUser(ctx, tx, userID); err != nil {
			if repo.IsForeignKeyViolation(err) {
				return ErrUserHasPurchases
			}
			return notFoundOr(err, ErrUserNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, f := range files {
		removeImage(ctx, s.Images, f)
	}
	return nil
}

// DeletePlace removes any listing through the guarded place delete.
func (s *AdminService) DeletePlace(ctx context.Context, actor *domain.User, placeID uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.Places.Delete(ctx, actor, placeID)
}

// ListPlaces returns every listing.
func (s *AdminService) ListPlaces(ctx context.Context, actor *domain.User) ([]domain.Place, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return repo.ListPlaces(ctx, s.DB)
}

// ListPurchases returns the whole purchase ledger.
func (s *AdminService) ListPurchases(ctx context.Context, actor *domain.User) ([]domain.Purchase, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return repo.ListPurchases(ctx, s.DB)
}

// ListReviews returns every review.
func (s *AdminService) ListReviews(ctx context.Context, actor *domain.User) ([]domain.Review, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return repo.ListReviews(ctx, s.DB)
}

// ListComplaints returns every complaint.
func (s *AdminService) ListComplaints(ctx context.Context, actor *domain.User) ([]domain.Complaint, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return repo.ListComplaints(ctx, s.DB)
}
