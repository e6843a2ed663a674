// Administrative HTTP handlers. Every route is mounted behind RequireAuth and
// RequireAdmin; the services check the admin flag again.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/observability"
	"github.com/tbourn/go-places-market/internal/utils"
)

const (
	defaultAdminPageSize = 20
	maxAdminPageSize     = 100
)

// UserPage is a page of accounts with pagination metadata.
type UserPage struct {
	Users      []domain.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

// AdminListUsers godoc
// @ID          adminListUsers
// @Summary     List accounts (paginated)
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       page       query     int  false  "Page number (1-based)"  default(1)
// @Param       page_size  query     int  false  "Page size (max 100)"    default(20)
// @Success     200  {object}  handlers.UserPage
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /admin/users [get]
func (h *Handlers) AdminListUsers(c *gin.Context) {
	page, size := utils.Page(c.Query("page"), c.Query("page_size"), defaultAdminPageSize, maxAdminPageSize)
	users, total, err := h.admin.ListUsers(c.Request.Context(), actor(c), page, size)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, UserPage{
		Users: users,
		Pagination: Pagination{
			Page:       page,
			PageSize:   size,
			Total:      total,
			TotalPages: utils.TotalPages(total, size),
			HasNext:    int64(page*size) < total,
		},
	})
}

// AdminDeleteUser godoc
// @ID          adminDeleteUser
// @Summary     Delete an account
// @Description Refused when the user bought anything or sold a place that has purchases.
// @Tags        Admin
// @Security    BearerAuth
// @Param       id   path  int  true  "User ID"
// @Success     204
// @Failure     400  {object}  handlers.ErrorResponse  "Own account"
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse
// @Router      /admin/users/{id} [delete]
func (h *Handlers) AdminDeleteUser(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.admin.DeleteUser(c.Request.Context(), actor(c), id); err != nil {
		failErr(c, err)
		return
	}
	observability.Record(observability.EventUserDeleted)
	noContent(c)
}

// AdminDeletePlace godoc
// @ID          adminDeletePlace
// @Summary     Delete any listing without purchases
// @Tags        Admin
// @Security    BearerAuth
// @Param       id   path  int  true  "Place ID"
// @Success     204
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Place has purchases"
// @Router      /admin/places/{id} [delete]
func (h *Handlers) AdminDeletePlace(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.admin.DeletePlace(c.Request.Context(), actor(c), id); err != nil {
		failErr(c, err)
		return
	}
	observability.Record(observability.EventPlaceDeleted)
	noContent(c)
}

// AdminListPlaces godoc
// @ID          adminListPlaces
// @Summary     All listings
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  domain.Place
// @Router      /admin/places [get]
func (h *Handlers) AdminListPlaces(c *gin.Context) {
	out, err := h.admin.ListPlaces(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// AdminListPurchases godoc
// @ID          adminListPurchases
// @Summary     All purchases
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  domain.Purchase
// @Router      /admin/purchases [get]
func (h *Handlers) AdminListPurchases(c *gin.Context) {
	out, err := h.admin.ListPurchases(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// AdminListReviews godoc
// @ID          adminListReviews
// @Summary     All reviews
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  domain.Review
// @Router      /admin/reviews [get]
func (h *Handlers) AdminListReviews(c *gin.Context) {
	out, err := h.admin.ListReviews(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// AdminListComplaints godoc
// @ID          adminListComplaints
// @Summary     All complaints
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  domain.Complaint
// @Router      /admin/complaints [get]
func (h *Handlers) AdminListComplaints(c *gin.Context) {
	out, err := h.admin.ListComplaints(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}
