// Package services – UserService
//
// Registration, credential checks, profiles and the startup admin bootstrap.
// Passwords are stored as bcrypt hashes only.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/auth"
	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/repo"
)

const (
	maxUsernameRunes = 64
	maxBioRunes      = 2000
)

// UserService implements account use-cases.
type UserService struct {
	DB     *gorm.DB
	Images ImageStore
	// BcryptCost is passed to bcrypt; out-of-range values use the default.
	BcryptCost int
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, images ImageStore, bcryptCost int) *UserService {
	return &UserService{DB: db, Images: images, BcryptCost: bcryptCost}
}

// Profile is the public view of a user with their seller rating.
type Profile struct {
	User          domain.User `json:"user"`
	ReviewCount   int64       `json:"review_count"`
	AverageRating float64     `json:"average_rating"`
}

// Register creates a regular account. The username is trimmed and compared
// case-sensitively.
func (s *UserService) Register(ctx context.Context, username, password string) (u *domain.User, err error) {
	ctx, span := startSpan(ctx, "UserService", "Register")
	defer func() { endSpan(span, err) }()

	// Usernames are stored verbatim and matched exactly.
	if strings.TrimSpace(username) == "" {
		return nil, validationf("username is required")
	}
	if utf8.RuneCountInString(username) > maxUsernameRunes {
		return nil, validationf("username must be at most %d characters", maxUsernameRunes)
	}
	if password == "" {
		return nil, validationf("password is required")
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetUserByUsername(ctx, tx, username); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		created, err := repo.CreateUser(ctx, tx, username, hash, false)
		if errors.Is(err, repo.ErrDuplicate) {
			return ErrUsernameTaken
		}
		u = created
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate returns the user for valid credentials. Every failure is
// reported as ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (u *domain.User, err error) {
	ctx, span := startSpan(ctx, "UserService", "Authenticate")
	defer func() { endSpan(span, err) }()

	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err = repo.GetUserByUsername(ctx, s.DB, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Get returns the user with id.
func (s *UserService) Get(ctx context.Context, id uint) (u *domain.User, err error) {
	ctx, span := startSpan(ctx, "UserService", "Get", idAttr("user.id", id))
	defer func() { endSpan(span, err) }()

	u, err = repo.GetUser(ctx, s.DB, id)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return u, nil
}

// Profile returns the public profile of id with the count and mean of the
// reviews they received as a seller.
func (s *UserService) Profile(ctx context.Context, id uint) (p *Profile, err error) {
	ctx, span := startSpan(ctx, "UserService", "Profile", idAttr("user.id", id))
	defer func() { endSpan(span, err) }()

	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	n, avg, err := repo.SellerRating(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	return &Profile{User: *u, ReviewCount: n, AverageRating: avg}, nil
}

// UpdateProfile rewrites the actor's bio and, when avatar is given, stores
// the new image and replaces the previous one.
func (s *UserService) UpdateProfile(ctx context.Context, actor *domain.User, bio string, avatar *Upload) (u *domain.User, err error) {
	ctx, span := startSpan(ctx, "UserService", "UpdateProfile", actorAttr(actor))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	bio = strings.TrimSpace(bio)
	if utf8.RuneCountInString(bio) > maxBioRunes {
		return nil, validationf("bio must be at most %d characters", maxBioRunes)
	}

	stored, err := saveImage(ctx, s.Images, avatar)
	if err != nil {
		return nil, err
	}
	var newAvatar *string
	if stored != "" {
		newAvatar = &stored
	}

	var previous string
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := repo.GetUser(ctx, tx, actor.ID)
		if err != nil {
			return notFoundOr(err, ErrUserNotFound)
		}
		previous = cur.Avatar
		if err := repo.UpdateUserProfile(ctx, tx, actor.ID, bio, newAvatar); err != nil {
			return notFoundOr(err, ErrUserNotFound)
		}
		u, err = repo.GetUser(ctx, tx, actor.ID)
		return err
	})
	if err != nil {
		removeImage(ctx, s.Images, stored)
		return nil, err
	}
	if stored != "" && previous != stored {
		removeImage(ctx, s.Images, previous)
	}
	return u, nil
}

// EnsureAdmin makes sure an administrator named username exists with the
// given password. An existing regular account is promoted.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (u *domain.User, err error) {
	ctx, span := startSpan(ctx, "UserService", "EnsureAdmin", attribute.String("user.name", username))
	defer func() { endSpan(span, err) }()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, validationf("admin username and password are required")
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := repo.GetUserByUsername(ctx, tx, username)
		switch {
		case err == nil:
			if err := repo.PromoteUser(ctx, tx, existing.ID, hash); err != nil {
				return err
			}
			u, err = repo.GetUser(ctx, tx, existing.ID)
			return err
		case errors.Is(err, repo.ErrNotFound):
			u, err = repo.CreateUser(ctx, tx, username, hash, true)
			return err
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) hash(password string) (string, error) {
	h, err := auth.HashPassword(password, s.BcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", &Error{Kind: KindValidation, Msg: "password must be at most 72 bytes", Err: err}
	}
	return h, err
}
