// Package services – ReviewService and ComplaintService
//
// Reviews are rated (1..5) feedback about a seller; complaints are unrated
// grievances, optionally about one of the seller's places. Neither requires a
// prior purchase and neither is unique per pair. Only the seller a review or
// complaint is about may answer it; a new answer overwrites the previous one.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/authz"
	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/repo"
)

const (
	minRating    = 1
	maxRating    = 5
	maxTextRunes = 5000
)

func cleanText(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", validationf("%s is required", field)
	}
	if utf8.RuneCountInString(s) > maxTextRunes {
		return "", validationf("%s must be at most %d characters", field, maxTextRunes)
	}
	return s, nil
}

// ensureSeller checks that sellerID names an existing user. Sellers may be
// reviewed or reported by anyone, themselves included.
func ensureSeller(ctx context.Context, db *gorm.DB, sellerID uint) error {
	ok, err := repo.UserExists(ctx, db, sellerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

// ReviewService implements review use-cases.
type ReviewService struct {
	DB *gorm.DB
}

// NewReviewService constructs a ReviewService.
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{DB: db}
}

// Leave records a review by reviewer about sellerID.
func (s *ReviewService) Leave(ctx context.Context, reviewer *domain.User, sellerID uint, text string, rating int) (r *domain.Review, err error) {
	ctx, span := startSpan(ctx, "ReviewService", "Leave", actorAttr(reviewer), idAttr("seller.id", sellerID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(reviewer); err != nil {
		return nil, err
	}
	if rating < minRating || rating > maxRating {
		return nil, validationf("rating must be between %d and %d", minRating, maxRating)
	}
	text, err = cleanText("text", text)
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureSeller(ctx, tx, sellerID); err != nil {
			return err
		}
		created, err := repo.CreateReview(ctx, tx, reviewer.ID, sellerID, text, rating)
		r = created
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Respond sets the seller's reply on reviewID.
func (s *ReviewService) Respond(ctx context.Context, actor *domain.User, reviewID uint, reply string) (r *domain.Review, err error) {
	ctx, span := startSpan(ctx, "ReviewService", "Respond", actorAttr(actor), idAttr("review.id", reviewID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := repo.GetReview(ctx, tx, reviewID)
		if err != nil {
			return notFoundOr(err, ErrReviewNotFound)
		}
		if !authz.CanRespondReview(actor, cur) {
			return forbidden("only the reviewed seller can reply")
		}
		text, err := cleanText("reply", reply)
		if err != nil {
			return err
		}
		if err := repo.SetReviewReply(ctx, tx, reviewID, text); err != nil {
			return notFoundOr(err, ErrReviewNotFound)
		}
		r, err = repo.GetReview(ctx, tx, reviewID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Written returns the reviews actor wrote.
func (s *ReviewService) Written(ctx context.Context, actor *domain.User) (out []domain.Review, err error) {
	ctx, span := startSpan(ctx, "ReviewService", "Written", actorAttr(actor))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return repo.ListReviewsByReviewer(ctx, s.DB, actor.ID)
}

// Received returns the reviews about actor.
func (s *ReviewService) Received(ctx context.Context, actor *domain.User) (out []domain.Review, err error) {
	ctx, span := startSpan(ctx, "ReviewService", "Received", actorAttr(actor))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return repo.ListReviewsBySeller(ctx, s.DB, actor.ID)
}

// ForSeller returns the reviews about sellerID.
func (s *ReviewService) ForSeller(ctx context.Context, sellerID uint) (out []domain.Review, err error) {
	ctx, span := startSpan(ctx, "ReviewService", "ForSeller", idAttr("seller.id", sellerID))
	defer func() { endSpan(span, err) }()

	ok, err := repo.UserExists(ctx, s.DB, sellerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	return repo.ListReviewsBySeller(ctx, s.DB, sellerID)
}

// ComplaintService implements complaint use-cases.
type ComplaintService struct {
	DB *gorm.DB
}

// NewComplaintService constructs a ComplaintService.
func NewComplaintService(db *gorm.DB) *ComplaintService {
	return &ComplaintService{DB: db}
}

// File records a complaint by reporter about sellerID. When placeID is set
// it must name one of the seller's places.
func (s *ComplaintService) File(ctx context.Context, reporter *domain.User, sellerID uint, text string, placeID *uint) (c *domain.Complaint, err error) {
	ctx, span := startSpan(ctx, "ComplaintService", "File", actorAttr(reporter), idAttr("seller.id", sellerID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(reporter); err != nil {
		return nil, err
	}
	text, err = cleanText("text", text)
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureSeller(ctx, tx, sellerID); err != nil {
			return err
		}
		if placeID != nil {
			p, err := repo.GetPlace(ctx, tx, *placeID)
			if err != nil {
				return notFoundOr(err, ErrPlaceNotFound)
			}
			if p.UserID != sellerID {
				return validationf("place %d does not belong to this seller", *placeID)
			}
		}
		created, err := repo.CreateComplaint(ctx, tx, reporter.ID, sellerID, text, placeID)
		c = created
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Respond sets the seller's response on complaintID.
func (s *ComplaintService) Respond(ctx context.Context, actor *domain.User, complaintID uint, response string) (c *domain.Complaint, err error) {
	ctx, span := startSpan(ctx, "ComplaintService", "Respond", actorAttr(actor), idAttr("complaint.id", complaintID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := repo.GetComplaint(ctx, tx, complaintID)
		if err != nil {
			return notFoundOr(err, ErrComplaintNotFound)
		}
		if !authz.CanRespondComplaint(actor, cur) {
			return forbidden("only the seller the complaint is about can respond")
		}
		text, err := cleanText("response", response)
		if err != nil {
			return err
		}
		if err := repo.SetComplaintResponse(ctx, tx, complaintID, text); err != nil {
			return notFoundOr(err, ErrComplaintNotFound)
		}
		c, err = repo.GetComplaint(ctx, tx, complaintID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Made returns the complaints actor filed.
func (s *ComplaintService) Made(ctx context.Context, actor *domain.User) (out []domain.Complaint, err error) {
	ctx, span := startSpan(ctx, "ComplaintService", "Made", actorAttr(actor))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return repo.ListComplaintsByReporter(ctx, s.DB, actor.ID)
}

// Received returns the complaints about actor.
func (s *ComplaintService) Received(ctx context.Context, actor *domain.User) (out []domain.Complaint, err error) {
	ctx, span := startSpan(ctx, "ComplaintService", "Received", actorAttr(actor))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return repo.ListComplaintsBySeller(ctx, s.DB, actor.ID)
}
