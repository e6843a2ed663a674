// Account HTTP handlers.
//
//   - POST /auth/register, POST /auth/login, POST /auth/logout
//   - GET /me, PUT /me
//   - GET /users/{id}, GET /users/{id}/reviews
package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-places-market/internal/auth"
	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/http/middleware"
	"github.com/tbourn/go-places-market/internal/observability"
	"github.com/tbourn/go-places-market/internal/services"
)

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required" example:"correct horse battery"`
}

// ProfileForm is the multipart body of PUT /me.
type ProfileForm struct {
	Bio    string                `form:"bio" json:"bio"`
	Avatar *multipart.FileHeader `form:"avatar" json:"-"`
}

// LoginResponse carries a bearer token for the Authorization header.
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type" example:"Bearer"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// Register godoc
// @ID          register
// @Summary     Create an account
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CredentialsRequest  true  "Credentials"
// @Success     201   {object}  domain.User
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid username or password"
// @Failure     409   {object}  handlers.ErrorResponse  "Username taken"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password required")
		return
	}
	u, err := h.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	observability.Record(observability.EventUserRegistered)
	ok(c, http.StatusCreated, u)
}

// Login godoc
// @ID          login
// @Summary     Exchange credentials for a bearer token
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CredentialsRequest  true  "Credentials"
// @Success     200   {object}  handlers.LoginResponse
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     401   {object}  handlers.ErrorResponse  "Invalid username or password"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username and password required")
		return
	}
	u, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			observability.Record(observability.EventLoginFailed)
		}
		failErr(c, err)
		return
	}
	token, claims, err := auth.Mint(h.tokens, h.now(), u.ID)
	if err != nil {
		failErr(c, err)
		return
	}
	observability.Record(observability.EventLoginSucceeded)
	ok(c, http.StatusOK, LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt.Time,
		User:      u,
	})
}

// Logout godoc
// @ID          logout
// @Summary     Revoke the current token
// @Tags        Auth
// @Security    BearerAuth
// @Success     204
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		failErr(c, services.ErrUnauthenticated)
		return
	}
	if ttl := claims.Remaining(h.now()); ttl > 0 && h.sessions != nil {
		if err := h.sessions.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
			failErr(c, err)
			return
		}
	}
	noContent(c)
}

// Me godoc
// @ID          me
// @Summary     Current user's profile with rating summary
// @Tags        Users
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  services.Profile
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	p, err := h.users.Profile(c.Request.Context(), actor(c).ID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdateMe godoc
// @ID          updateMe
// @Summary     Update bio and avatar
// @Description Multipart form. An omitted avatar keeps the current one.
// @Tags        Users
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       bio     formData  string  false  "Profile text"
// @Param       avatar  formData  file    false  "png, jpg, jpeg or gif"
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Rejected image"
// @Failure     413  {object}  handlers.ErrorResponse
// @Router      /me [put]
func (h *Handlers) UpdateMe(c *gin.Context) {
	var form ProfileForm
	if !h.bindForm(c, &form, "invalid form body") {
		return
	}
	avatar, closeAvatar, err := openUpload(form.Avatar)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable avatar upload")
		return
	}
	defer closeAvatar()

	u, err := h.users.UpdateProfile(c.Request.Context(), actor(c), form.Bio, avatar)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// GetUser godoc
// @ID          getUser
// @Summary     Public profile of a user
// @Tags        Users
// @Produce     json
// @Param       id   path      int  true  "User ID"
// @Success     200  {object}  services.Profile
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	p, err := h.users.Profile(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// UserReviews godoc
// @ID          userReviews
// @Summary     Reviews received by a seller
// @Tags        Reviews
// @Produce     json
// @Param       id   path      int  true  "Seller ID"
// @Success     200  {array}   domain.Review
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /users/{id}/reviews [get]
func (h *Handlers) UserReviews(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	out, err := h.reviews.ForSeller(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}
