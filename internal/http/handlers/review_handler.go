// Review and complaint HTTP handlers.
//
//   - POST /users/{id}/reviews, PUT /reviews/{id}/reply
//   - POST /users/{id}/complaints, PUT /complaints/{id}/response
//   - GET /me/reviews, /me/reviews/received, /me/complaints, /me/complaints/received
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-places-market/internal/observability"
)

// ReviewRequest is the body of POST /users/{id}/reviews.
type ReviewRequest struct {
	Text   string `json:"text" binding:"required" example:"Smooth handover, honest listing"`
	Rating int    `json:"rating" binding:"required,min=1,max=5" example:"5"`
}

// ComplaintRequest is the body of POST /users/{id}/complaints. PlaceID, when
// set, must reference one of the seller's listings.
type ComplaintRequest struct {
	Text    string `json:"text" binding:"required" example:"Listing photos were misleading"`
	PlaceID *uint  `json:"place_id,omitempty" example:"12"`
}

// ReplyRequest is the body of the seller's answer to a review or complaint.
type ReplyRequest struct {
	Text string `json:"text" binding:"required" example:"Thanks for the feedback"`
}

// LeaveReview godoc
// @ID          leaveReview
// @Summary     Review a seller
// @Tags        Reviews
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      int                     true  "Seller ID"
// @Param       body  body      handlers.ReviewRequest  true  "Review"
// @Success     201   {object}  domain.Review
// @Failure     400   {object}  handlers.ErrorResponse  "Rating outside 1..5 or empty text"
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /users/{id}/reviews [post]
func (h *Handlers) LeaveReview(c *gin.Context) {
	sellerID, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, "invalid JSON body")
		return
	}
	r, err := h.reviews.Leave(c.Request.Context(), actor(c), sellerID, req.Text, req.Rating)
	if err != nil {
		failErr(c, err)
		return
	}
	observability.Record(observability.EventReviewLeft)
	ok(c, http.StatusCreated, r)
}

// ReplyToReview godoc
// @ID          replyToReview
// @Summary     Seller's reply to a review
// @Description Replying again overwrites the previous reply.
// @Tags        Reviews
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      int                    true  "Review ID"
// @Param       body  body      handlers.ReplyRequest  true  "Reply"
// @Success     200   {object}  domain.Review
// @Failure     400   {object}  handlers.ErrorResponse  "Empty reply"
// @Failure     403   {object}  handlers.ErrorResponse  "Not the reviewed seller"
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /reviews/{id}/reply [put]
func (h *Handlers) ReplyToReview(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, "invalid JSON body")
		return
	}
	r, err := h.reviews.Respond(c.Request.Context(), actor(c), id, req.Text)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// FileComplaint godoc
// @ID          fileComplaint
// @Summary     Complain about a seller
// @Tags        Complaints
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      int                        true  "Seller ID"
// @Param       body  body      handlers.ComplaintRequest  true  "Complaint"
// @Success     201   {object}  domain.Complaint
// @Failure     400   {object}  handlers.ErrorResponse  "Empty text or a place of another seller"
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /users/{id}/complaints [post]
func (h *Handlers) FileComplaint(c *gin.Context) {
	sellerID, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req ComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, "invalid JSON body")
		return
	}
	cp, err := h.complaints.File(c.Request.Context(), actor(c), sellerID, req.Text, req.PlaceID)
	if err != nil {
		failErr(c, err)
		return
	}
	observability.Record(observability.EventComplaintFiled)
	ok(c, http.StatusCreated, cp)
}

// RespondToComplaint godoc
// @ID          respondToComplaint
// @Summary     Seller's response to a complaint
// @Tags        Complaints
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      int                    true  "Complaint ID"
// @Param       body  body      handlers.ReplyRequest  true  "Response"
// @Success     200   {object}  domain.Complaint
// @Failure     400   {object}  handlers.ErrorResponse  "Empty response"
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /complaints/{id}/response [put]
func (h *Handlers) RespondToComplaint(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err, "invalid JSON body")
		return
	}
	cp, err := h.complaints.Respond(c.Request.Context(), actor(c), id, req.Text)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, cp)
}

// MyReviews godoc
// @ID          myReviews
// @Summary     Reviews written by the caller
// @Tags        Me
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  domain.Review
// @Router      /me/reviews [get]
func (h *Handlers) MyReviews(c *gin.Context) {
	out, err := h.reviews.Written(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// ReceivedReviews godoc
// @ID          receivedReviews
// @Summary     Reviews about the caller
// @Tags        Me
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  domain.Review
// @Router      /me/reviews/received [get]
func (h *Handlers) ReceivedReviews(c *gin.Context) {
	out, err := h.reviews.Received(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// MyComplaints godoc
// @ID          myComplaints
// @Summary     Complaints filed by the caller
// @Tags        Me
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  domain.Complaint
// @Router      /me/complaints [get]
func (h *Handlers) MyComplaints(c *gin.Context) {
	out, err := h.complaints.Made(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// ReceivedComplaints godoc
// @ID          receivedComplaints
// @Summary     Complaints about the caller
// @Tags        Me
// @Produce     json
// @Security    BearerAuth
// @Success     200  {array}  domain.Complaint
// @Router      /me/complaints/received [get]
func (h *Handlers) ReceivedComplaints(c *gin.Context) {
	out, err := h.complaints.Received(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}
