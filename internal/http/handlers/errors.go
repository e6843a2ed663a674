// Package handlers defines the HTTP error codes of the marketplace API and
// the translation of service failures into responses.
//
// Every error response carries one of these codes in the envelope:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "conflict",
//	  "message": "place already purchased"
//	}
//
// Clients branch on the code; the message is for humans.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-places-market/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_failed"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeTooLarge         = "payload_too_large"
	ErrCodeInternal         = "internal_error"
)

// kindStatus maps service error kinds to HTTP status and code.
var kindStatus = map[services.Kind]struct {
	status int
	code   string
}{
	services.KindValidation:   {http.StatusBadRequest, ErrCodeValidation},
	services.KindConflict:     {http.StatusConflict, ErrCodeConflict},
	services.KindForbidden:    {http.StatusForbidden, ErrCodeForbidden},
	services.KindNotFound:     {http.StatusNotFound, ErrCodeNotFound},
	services.KindUnauthorized: {http.StatusUnauthorized, ErrCodeUnauthorized},
}

// failErr writes the envelope for a service error. Untyped errors become a
// logged 500 whose message does not leak internals.
func failErr(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
		return
	}
	m, ok := kindStatus[services.KindOf(err)]
	if !ok {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}
	fail(c, m.status, m.code, err.Error())
}
