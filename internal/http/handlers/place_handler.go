// Listing HTTP handlers.
//
//   - GET /places (ETag), GET /places/search, GET /places/{id}
//   - POST /places (multipart, Idempotency-Key), PUT /places/{id}, DELETE /places/{id}
//   - POST /places/{id}/buy, POST /places/{id}/favorite
//   - GET /me/places, /me/purchases, /me/favorites
package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/http/middleware"
	"github.com/tbourn/go-places-market/internal/observability"
	"github.com/tbourn/go-places-market/internal/repo"
	"github.com/tbourn/go-places-market/internal/services"
)

// PlaceRequest is the JSON body of PUT /places/{id}. All fields are required.
type PlaceRequest struct {
	Title       string   `json:"title" binding:"required" example:"Lake Villa"`
	Description string   `json:"description" binding:"required" example:"Three bedrooms by the water"`
	Latitude    *float64 `json:"latitude" binding:"required" example:"40.64"`
	Longitude   *float64 `json:"longitude" binding:"required" example:"22.94"`
	Price       *int64   `json:"price" binding:"required" example:"250000"`
}

func (r PlaceRequest) input() services.PlaceInput {
	return services.PlaceInput{
		Title:       r.Title,
		Description: r.Description,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Price:       r.Price,
	}
}

// PlaceForm is the multipart body of POST /places. Numbers are pointers so
// that an absent field fails the required rule instead of reading as zero.
type PlaceForm struct {
	Title       string                `form:"title" binding:"required"`
	Description string                `form:"description" binding:"required"`
	Latitude    *float64              `form:"latitude" binding:"required"`
	Longitude   *float64              `form:"longitude" binding:"required"`
	Price       *int64                `form:"price" binding:"required"`
	Image       *multipart.FileHeader `form:"image" json:"-"`
}

func (f PlaceForm) input() services.PlaceInput {
	return services.PlaceInput{
		Title:       f.Title,
		Description: f.Description,
		Latitude:    f.Latitude,
		Longitude:   f.Longitude,
		Price:       f.Price,
	}
}

// BuyResponse reports the purchase; AlreadyPurchased is true when the
// caller owned the place before this request.
type BuyResponse struct {
	Purchase         *domain.Purchase `json:"purchase,omitempty"`
	AlreadyPurchased bool             `json:"already_purchased"`
}

// FavoriteResponse reports the bookmark state after a toggle.
type FavoriteResponse struct {
	PlaceID   uint `json:"place_id"`
	Favorited bool `json:"favorited"`
}

// ListPlaces godoc
// @ID          listPlaces
// @Summary     All listings, oldest first
// @Description Supports a weak ETag via If-None-Match and may return 304.
// @Tags        Places
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {array}   domain.Place
// @Header      200  {string}  ETag  "Weak ETag for the current listing set"
// @Success     304  {string}  string  "Not Modified"
// @Router      /places [get]
func (h *Handlers) ListPlaces(c *gin.Context) {
	ctx := c.Request.Context()
	if h.db != nil {
		if count, newest, err := repo.PlacesStats(ctx, h.db); err == nil && notModified(c, "places", count, newest) {
			return
		}
	}
	out, err := h.places.List(ctx)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// SearchPlaces godoc
// @ID          searchPlaces
// @Summary     Case-insensitive substring search on titles
// @Tags        Places
// @Produce     json
// @Param       q    query    string  false  "Search text, matched as given; empty returns no results"
// @Success     200  {array}  domain.Place
// @Router      /places/search [get]
func (h *Handlers) SearchPlaces(c *gin.Context) {
	out, err := h.places.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// GetPlace godoc
// @ID          getPlace
// @Summary     Listing detail
// @Description Anonymous callers get purchased/favorited = false.
// @Tags        Places
// @Produce     json
// @Param       id   path      int  true  "Place ID"
// @Success     200  {object}  services.PlaceDetail
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /places/{id} [get]
func (h *Handlers) GetPlace(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	d, err := h.places.Detail(c.Request.Context(), actor(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// CreatePlace godoc
// @ID          createPlace
// @Summary     Publish a listing
// @Description Multipart form. Supports Idempotency-Key: a retry returns the listing created first.
// @Tags        Places
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header    string  false  "Key for safe retries"
// @Param       title            formData  string  true   "Title (max 100 chars)"
// @Param       description      formData  string  true   "Description"
// @Param       latitude         formData  number  true   "Latitude"
// @Param       longitude        formData  number  true   "Longitude"
// @Param       price            formData  int     true   "Price"
// @Param       image            formData  file    false  "png, jpg, jpeg or gif"
// @Success     201  {object}  domain.Place
// @Success     200  {object}  domain.Place  "Replayed"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     413  {object}  handlers.ErrorResponse
// @Router      /places [post]
func (h *Handlers) CreatePlace(c *gin.Context) {
	ctx := c.Request.Context()
	if id, replay := middleware.ReplayedResource(c); replay {
		if p, err := h.places.Get(ctx, id); err == nil {
			markReplayed(c)
			ok(c, http.StatusOK, p)
			return
		}
	}

	var form PlaceForm
	if !h.bindForm(c, &form, "latitude, longitude and price must be numbers") {
		return
	}
	image, closeImage, err := openUpload(form.Image)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable image upload")
		return
	}
	defer closeImage()

	p, err := h.places.Create(ctx, actor(c), form.input(), image)
	if err != nil {
		failErr(c, err)
		return
	}
	h.rememberCreate(c, p.ID, http.StatusCreated)
	observability.Record(observability.EventPlaceCreated)
	ok(c, http.StatusCreated, p)
}

// UpdatePlace godoc
// @ID          updatePlace
// @Summary     Edit a listing (owner or admin)
// @Tags        Places
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      int                    true  "Place ID"
// @Param       body  body      handlers.PlaceRequest  true  "New fields"
// @Success     200   {object}  domain.Place
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /places/{id} [put]
func (h *Handlers) UpdatePlace(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, "invalid JSON body")
		return
	}
	p, err := h.places.Update(c.Request.Context(), actor(c), id, req.input())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// DeletePlace godoc
// @ID          deletePlace
// @Summary     Delete a listing nobody bought (owner or admin)
// @Tags        Places
// @Security    BearerAuth
// @Param       id   path  int  true  "Place ID"
// @Success     204
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Place has purchases"
// @Router      /places/{id} [delete]
func (h *Handlers) DeletePlace(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.places.Delete(c.Request.Context(), actor(c), id); err != nil {
		failErr(c, err)
		return
	}
	observability.Record(observability.EventPlaceDeleted)
	noContent(c)
}

// BuyPlace godoc
// @ID          buyPlace
// @Summary     Buy a listing
// @Description Buying a place twice is not an error: the response says already_purchased.
// @Tags        Places
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      int  true  "Place ID"
// @Success     201  {object}  handlers.BuyResponse
// @Success     200  {object}  handlers.BuyResponse  "Already purchased"
// @Failure     403  {object}  handlers.ErrorResponse  "Own place"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /places/{id}/buy [post]
func (h *Handlers) BuyPlace(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	p, err := h.purchases.Buy(c.Request.Context(), actor(c), id)
	switch {
	case errors.Is(err, services.ErrAlreadyPurchased):
		observability.Record(observability.EventPurchaseDuplicate)
		ok(c, http.StatusOK, BuyResponse{AlreadyPurchased: true})
	case err != nil:
		failErr(c, err)
	default:
		observability.Record(observability.EventPurchaseCompleted)
		ok(c, http.StatusCreated, BuyResponse{Purchase: p})
	}
}

// ToggleFavorite godoc
// @ID          toggleFavorite
// @Summary     Add or remove a bookmark
// @Tags        Places
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      int  true  "Place ID"
// @Success     200  {object}  handlers.FavoriteResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /places/{id}/favorite [post]
func (h *Handlers) ToggleFavorite(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	fav, err := h.favorites.Toggle(c.Request.Context(), actor(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	if fav {
		observability.Record(observability.EventFavoriteAdded)
	} else {
		observability.Record(observability.EventFavoriteRemoved)
	}
	ok(c, http.StatusOK, FavoriteResponse{PlaceID: id, Favorited: fav})
}

// MyPlaces godoc
// @ID          myPlaces
// @Summary     Listings authored by the caller
// @Tags        Me
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  domain.Place
// @Router      /me/places [get]
func (h *Handlers) MyPlaces(c *gin.Context) {
	out, err := h.places.ListByOwner(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// MyPurchases godoc
// @ID          myPurchases
// @Summary     Purchases made by the caller
// @Tags        Me
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  domain.Purchase
// @Router      /me/purchases [get]
func (h *Handlers) MyPurchases(c *gin.Context) {
	out, err := h.purchases.ListMine(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// MyFavorites godoc
// @ID          myFavorites
// @Summary     Places bookmarked by the caller
// @Tags        Me
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  domain.Place
// @Router      /me/favorites [get]
func (h *Handlers) MyFavorites(c *gin.Context) {
	out, err := h.favorites.List(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}
