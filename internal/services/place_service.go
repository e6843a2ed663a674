// Package services – PlaceService
//
// This file implements the listing lifecycle: create (with an optional image),
// list, title search, detail, update and the guarded delete. Write paths run
// in a single transaction and evaluate the authorization predicates inside it.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// actor and place identifiers.
package services

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/authz"
	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/repo"
)

const maxTitleRunes = 100

// PlaceInput carries the listing fields of a create or update request.
// Nil pointers mark missing fields.
type PlaceInput struct {
	Title       string
	Description string
	Latitude    *float64
	Longitude   *float64
	Price       *int64
}

// PlaceDetail is a listing as seen by a (possibly anonymous) visitor.
type PlaceDetail struct {
	Place     domain.Place    `json:"place"`
	Owner     domain.User     `json:"owner"`
	Purchased bool            `json:"purchased"`
	Favorited bool            `json:"favorited"`
	Reviews   []domain.Review `json:"reviews"`
}

// PlaceService implements listing use-cases.
type PlaceService struct {
	DB     *gorm.DB
	Images ImageStore
}

// NewPlaceService constructs a PlaceService.
func NewPlaceService(db *gorm.DB, images ImageStore) *PlaceService {
	return &PlaceService{DB: db, Images: images}
}

func (in PlaceInput) validate() (repo.PlaceFields, error) {
	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)
	switch {
	case title == "":
		return repo.PlaceFields{}, validationf("title is required")
	case utf8.RuneCountInString(title) > maxTitleRunes:
		return repo.PlaceFields{}, validationf("title must be at most %d characters", maxTitleRunes)
	case desc == "":
		return repo.PlaceFields{}, validationf("description is required")
	case in.Latitude == nil:
		return repo.PlaceFields{}, validationf("latitude is required")
	case in.Longitude == nil:
		return repo.PlaceFields{}, validationf("longitude is required")
	case in.Price == nil:
		return repo.PlaceFields{}, validationf("price is required")
	}
	// Presence is the only rule for coordinates and price; NaN is not a value.
	lat, lng := *in.Latitude, *in.Longitude
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return repo.PlaceFields{}, validationf("latitude and longitude must be numbers")
	}
	return repo.PlaceFields{
		Title:       title,
		Description: desc,
		Latitude:    lat,
		Longitude:   lng,
		Price:       *in.Price,
	}, nil
}

// Create stores the optional image and inserts a listing owned by owner.
// A storage failure aborts before any row is written; if the insert fails
// the stored image is removed again.
func (s *PlaceService) Create(ctx context.Context, owner *domain.User, in PlaceInput, image *Upload) (p *domain.Place, err error) {
	ctx, span := startSpan(ctx, "PlaceService", "Create", actorAttr(owner))
	defer func() { endSpan(span, err) }()

	if err := requireActor(owner); err != nil {
		return nil, err
	}
	fields, err := in.validate()
	if err != nil {
		return nil, err
	}

	stored, err := saveImage(ctx, s.Images, image)
	if err != nil {
		return nil, err
	}
	var imageFile *string
	if stored != "" {
		imageFile = &stored
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := repo.CreatePlace(ctx, tx, owner.ID, fields, imageFile)
		if err != nil {
			if repo.IsForeignKeyViolation(err) {
				return ErrUserNotFound
			}
			return err
		}
		p = created
		return nil
	})
	if err != nil {
		removeImage(ctx, s.Images, stored)
		return nil, err
	}
	span.SetAttributes(idAttr("place.id", p.ID))
	return p, nil
}

// List returns every listing in id order.
func (s *PlaceService) List(ctx context.Context) (out []domain.Place, err error) {
	ctx, span := startSpan(ctx, "PlaceService", "List")
	defer func() { endSpan(span, err) }()

	return repo.ListPlaces(ctx, s.DB)
}

// Search returns listings whose title contains q, compared under Unicode
// case folding. The query is used as given: an empty query matches nothing
// and whitespace is part of the needle.
func (s *PlaceService) Search(ctx context.Context, q string) (out []domain.Place, err error) {
	ctx, span := startSpan(ctx, "PlaceService", "Search", attribute.String("query", q))
	defer func() { endSpan(span, err) }()

	if q == "" {
		return []domain.Place{}, nil
	}
	all, err := repo.ListPlaces(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	fold := cases.Fold()
	needle := fold.String(q)
	out = make([]domain.Place, 0, len(all))
	for _, p := range all {
		if strings.Contains(fold.String(p.Title), needle) {
			out = append(out, p)
		}
	}
	span.SetAttributes(attribute.Int("results", len(out)))
	return out, nil
}

// Get returns the listing with id.
func (s *PlaceService) Get(ctx context.Context, id uint) (p *domain.Place, err error) {
	ctx, span := startSpan(ctx, "PlaceService", "Get", idAttr("place.id", id))
	defer func() { endSpan(span, err) }()

	p, err = repo.GetPlace(ctx, s.DB, id)
	if err != nil {
		return nil, notFoundOr(err, ErrPlaceNotFound)
	}
	return p, nil
}

// Detail returns the listing with its owner, the reviews the owner received
// and whether actor (may be nil) bought or bookmarked it.
func (s *PlaceService) Detail(ctx context.Context, actor *domain.User, id uint) (d *PlaceDetail, err error) {
	ctx, span := startSpan(ctx, "PlaceService", "Detail", actorAttr(actor), idAttr("place.id", id))
	defer func() { endSpan(span, err) }()

	p, err := repo.GetPlace(ctx, s.DB, id)
	if err != nil {
		return nil, notFoundOr(err, ErrPlaceNotFound)
	}
	owner, err := repo.GetUser(ctx, s.DB, p.UserID)
	if err != nil {
		return nil, err
	}
	reviews, err := repo.ListReviewsBySeller(ctx, s.DB, p.UserID)
	if err != nil {
		return nil, err
	}
	d = &PlaceDetail{Place: *p, Owner: *owner, Reviews: reviews}
	if actor != nil && actor.ID != 0 {
		if d.Purchased, err = repo.PurchaseExists(ctx, s.DB, actor.ID, id); err != nil {
			return nil, err
		}
		if d.Favorited, err = repo.FavoriteExists(ctx, s.DB, actor.ID, id); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// ListByOwner returns the actor's own listings.
func (s *PlaceService) ListByOwner(ctx context.Context, actor *domain.User) (out []domain.Place, err error) {
	ctx, span := startSpan(ctx, "PlaceService", "ListByOwner", actorAttr(actor))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return repo.ListPlacesByOwner(ctx, s.DB, actor.ID)
}

// Update rewrites a listing's fields. The owner may always edit; an admin
// may edit any listing. The owner never changes.
func (s *PlaceService) Update(ctx context.Context, actor *domain.User, id uint, in PlaceInput) (p *domain.Place, err error) {
	ctx, span := startSpan(ctx, "PlaceService", "Update", actorAttr(actor), idAttr("place.id", id))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := repo.GetPlace(ctx, tx, id)
		if err != nil {
			return notFoundOr(err, ErrPlaceNotFound)
		}
		if !authz.CanEditPlace(actor, cur, true) {
			return forbidden("only the owner or an administrator can edit this place")
		}
		fields, err := in.validate()
		if err != nil {
			return err
		}
		if err := repo.UpdatePlace(ctx, tx, id, fields); err != nil {
			return notFoundOr(err, ErrPlaceNotFound)
		}
		p, err = repo.GetPlace(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a listing that nobody bought together with its favorites
// and the complaints filed about it, in one transaction. The stored image is
// removed after commit.
func (s *PlaceService) Delete(ctx context.Context, actor *domain.User, id uint) (err error) {
	ctx, span := startSpan(ctx, "PlaceService", "Delete", actorAttr(actor), idAttr("place.id", id))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return err
	}
	var image string
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.GetPlace(ctx, tx, id)
		if err != nil {
			return notFoundOr(err, ErrPlaceNotFound)
		}
		if !authz.CanEditPlace(actor, p, true) {
			return forbidden("only the owner or an administrator can delete this place")
		}
		n, err := repo.CountPurchasesForPlace(ctx, tx, id)
		if err != nil {
			return err
		}
		if !authz.CanDeletePlace(n) {
			return ErrPlaceHasPurchases
		}
		if _, err := repo.DeleteFavoritesForPlace(ctx, tx, id); err != nil {
			return err
		}
		if _, err := repo.DeleteComplaintsForPlace(ctx, tx, id); err != nil {
			return err
		}
		if err := repo.DeletePlace(ctx, tx, id); err != nil {
			if repo.IsForeignKeyViolation(err) {
				return ErrPlaceHasPurchases
			}
			return notFoundOr(err, ErrPlaceNotFound)
		}
		if p.ImageFile != nil {
			image = *p.ImageFile
		}
		return nil
	})
	if err != nil {
		return err
	}
	removeImage(ctx, s.Images, image)
	return nil
}
