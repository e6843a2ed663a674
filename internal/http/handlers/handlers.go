// Package handlers implements the marketplace REST API.
//
// Handlers are transport-thin: they decode and validate input, resolve the
// acting user from the auth middleware, call one service operation and
// render its result. Authorization decisions live in the services; the
// handlers only translate their typed errors (see errors.go).
package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/tbourn/go-places-market/internal/auth"
	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/http/middleware"
	"github.com/tbourn/go-places-market/internal/repo"
	"github.com/tbourn/go-places-market/internal/services"
	"github.com/tbourn/go-places-market/internal/utils"
)

//
// Service contracts
//

// UserService covers accounts and profiles.
type UserService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	Profile(ctx context.Context, id uint) (*services.Profile, error)
	UpdateProfile(ctx context.Context, actor *domain.User, bio string, avatar *services.Upload) (*domain.User, error)
}

// PlaceService covers the listing lifecycle.
type PlaceService interface {
	Create(ctx context.Context, owner *domain.User, in services.PlaceInput, image *services.Upload) (*domain.Place, error)
	List(ctx context.Context) ([]domain.Place, error)
	Search(ctx context.Context, q string) ([]domain.Place, error)
	Get(ctx context.Context, id uint) (*domain.Place, error)
	Detail(ctx context.Context, actor *domain.User, id uint) (*services.PlaceDetail, error)
	ListByOwner(ctx context.Context, actor *domain.User) ([]domain.Place, error)
	Update(ctx context.Context, actor *domain.User, id uint, in services.PlaceInput) (*domain.Place, error)
	Delete(ctx context.Context, actor *domain.User, id uint) error
}

// PurchaseService records acquisitions.
type PurchaseService interface {
	Buy(ctx context.Context, buyer *domain.User, placeID uint) (*domain.Purchase, error)
	ListMine(ctx context.Context, buyer *domain.User) ([]domain.Purchase, error)
}

// FavoriteService manages bookmarks.
type FavoriteService interface {
	Toggle(ctx context.Context, user *domain.User, placeID uint) (bool, error)
	List(ctx context.Context, user *domain.User) ([]domain.Place, error)
}

// ReviewService manages rated seller feedback.
type ReviewService interface {
	Leave(ctx context.Context, reviewer *domain.User, sellerID uint, text string, rating int) (*domain.Review, error)
	Respond(ctx context.Context, actor *domain.User, reviewID uint, reply string) (*domain.Review, error)
	Written(ctx context.Context, actor *domain.User) ([]domain.Review, error)
	Received(ctx context.Context, actor *domain.User) ([]domain.Review, error)
	ForSeller(ctx context.Context, sellerID uint) ([]domain.Review, error)
}

// ComplaintService manages grievances against sellers.
type ComplaintService interface {
	File(ctx context.Context, reporter *domain.User, sellerID uint, text string, placeID *uint) (*domain.Complaint, error)
	Respond(ctx context.Context, actor *domain.User, complaintID uint, response string) (*domain.Complaint, error)
	Made(ctx context.Context, actor *domain.User) ([]domain.Complaint, error)
	Received(ctx context.Context, actor *domain.User) ([]domain.Complaint, error)
}

// ChatService manages two-party conversations.
type ChatService interface {
	StartOrGet(ctx context.Context, actor *domain.User, otherID uint) (*domain.Chat, error)
	List(ctx context.Context, actor *domain.User) ([]domain.Chat, error)
	Get(ctx context.Context, actor *domain.User, chatID uint) (*domain.Chat, error)
}

// MessageService manages messages within a chat.
type MessageService interface {
	List(ctx context.Context, actor *domain.User, chatID uint) ([]domain.Message, error)
	Send(ctx context.Context, sender *domain.User, chatID uint, text string) (*domain.Message, error)
	Edit(ctx context.Context, actor *domain.User, chatID, messageID uint, text string) (*domain.Message, error)
	Delete(ctx context.Context, actor *domain.User, chatID, messageID uint) error
}

// AdminService is the administrative surface.
type AdminService interface {
	ListUsers(ctx context.Context, actor *domain.User, page, pageSize int) ([]domain.User, int64, error)
	DeleteUser(ctx context.Context, actor *domain.User, userID uint) error
	DeletePlace(ctx context.Context, actor *domain.User, placeID uint) error
	ListPlaces(ctx context.Context, actor *domain.User) ([]domain.Place, error)
	ListPurchases(ctx context.Context, actor *domain.User) ([]domain.Purchase, error)
	ListReviews(ctx context.Context, actor *domain.User) ([]domain.Review, error)
	ListComplaints(ctx context.Context, actor *domain.User) ([]domain.Complaint, error)
}

//
// Handler wiring
//

// Deps bundles everything the handlers need. DB backs the ETag statistics
// and the idempotency records.
type Deps struct {
	DB         *gorm.DB
	Users      UserService
	Places     PlaceService
	Purchases  PurchaseService
	Favorites  FavoriteService
	Reviews    ReviewService
	Complaints ComplaintService
	Chats      ChatService
	Messages   MessageService
	Admin      AdminService

	Tokens         auth.Config
	Sessions       auth.SessionStore
	IdempotencyTTL time.Duration
	// MaxUploadBytes bounds multipart forms held in memory.
	MaxUploadBytes int64
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handlers groups all API endpoints.
type Handlers struct {
	db         *gorm.DB
	users      UserService
	places     PlaceService
	purchases  PurchaseService
	favorites  FavoriteService
	reviews    ReviewService
	complaints ComplaintService
	chats      ChatService
	messages   MessageService
	admin      AdminService

	tokens    auth.Config
	sessions  auth.SessionStore
	idemTTL   time.Duration
	maxUpload int64
	now       func() time.Time
}

// New builds Handlers from d.
func New(d Deps) *Handlers {
	h := &Handlers{
		db:         d.DB,
		users:      d.Users,
		places:     d.Places,
		purchases:  d.Purchases,
		favorites:  d.Favorites,
		reviews:    d.Reviews,
		complaints: d.Complaints,
		chats:      d.Chats,
		messages:   d.Messages,
		admin:      d.Admin,
		tokens:     d.Tokens,
		sessions:   d.Sessions,
		idemTTL:    d.IdempotencyTTL,
		maxUpload:  d.MaxUploadBytes,
		now:        d.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.idemTTL <= 0 {
		h.idemTTL = 24 * time.Hour
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 2 << 20
	}
	return h
}

//
// Helpers
//

// actor returns the authenticated user; routes that reach a handler
// requiring one are always behind RequireAuth.
func actor(c *gin.Context) *domain.User {
	return middleware.CurrentUser(c)
}

// pathID parses the named path parameter as an entity id, writing a 400 on
// failure.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a positive integer")
	}
	return id, ok
}

// openUpload opens an uploaded file bound from a form. A nil header means
// the field was absent and yields a nil upload.
func openUpload(fh *multipart.FileHeader) (*services.Upload, func(), error) {
	noop := func() {}
	if fh == nil {
		return nil, noop, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return &services.Upload{Filename: fh.Filename, Body: f}, func() { _ = f.Close() }, nil
}

// parseForm reads a multipart or urlencoded form, mapping oversize bodies
// to 413 and anything else to 400.
func (h *Handlers) parseForm(c *gin.Context) bool {
	err := c.Request.ParseMultipartForm(h.maxUpload)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
		return false
	}
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid form body")
	return false
}

// bindForm parses the form under the upload limit and binds it into obj
// through its form tags and binding rules.
func (h *Handlers) bindForm(c *gin.Context, obj any, malformed string) bool {
	if !h.parseForm(c) {
		return false
	}
	if err := c.ShouldBind(obj); err != nil {
		failBind(c, err, malformed)
		return false
	}
	return true
}

// failBind writes the 400 for a body rejected by gin binding. A failed rule
// names the first offending field; anything else is reported as malformed.
func failBind(c *gin.Context, err error, malformed string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, malformed)
		return
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		fail(c, http.StatusBadRequest, ErrCodeValidation, field+" is required")
	case "min", "max":
		fail(c, http.StatusBadRequest, ErrCodeValidation, field+" is out of range")
	default:
		fail(c, http.StatusBadRequest, ErrCodeValidation, field+" is invalid")
	}
}

// rememberCreate records the resource created under the request's
// Idempotency-Key. Failures only cost a future replay, so they are logged.
func (h *Handlers) rememberCreate(c *gin.Context, resourceID uint, status int) {
	key, has := middleware.GetIdempotencyKey(c)
	if !has || h.db == nil {
		return
	}
	_, err := repo.CreateIdempotency(c.Request.Context(), h.db, middleware.UserID(c), middleware.IdempotencyScope(c), key, resourceID, status, h.idemTTL)
	// A concurrent retry may have stored the same key first.
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("store idempotency record")
	}
}

func markReplayed(c *gin.Context) {
	c.Header(middleware.HeaderIdempotencyReplayed, "true")
}
