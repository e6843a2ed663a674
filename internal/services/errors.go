// Package services holds the marketplace's business operations: accounts,
// listings, purchases, favorites, reviews, complaints, chats and the admin
// surface. This file defines the typed error returned by every operation.
//
// Callers classify failures with errors.Is against the kind sentinels
// (ErrValidation, ErrNotFound, ...) or against a named sentinel such as
// ErrAlreadyPurchased. Translation into HTTP status codes is performed in the
// handler layer. Storage errors never cross this boundary untranslated.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-places-market/internal/repo"
)

// Kind classifies a service failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindForbidden
	KindNotFound
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is the typed failure of a service operation.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches kind sentinels (an *Error with only Kind set) by kind and
// everything else by identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Msg == "" && t.Err == nil {
		return e.Kind == t.Kind
	}
	return e == t
}

// Kind sentinels.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
)

// Named failures.
var (
	ErrUsernameTaken      = &Error{Kind: KindConflict, Msg: "username already taken"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Msg: "invalid username or password"}
	ErrUnauthenticated    = &Error{Kind: KindUnauthorized, Msg: "authentication required"}
	ErrAlreadyPurchased   = &Error{Kind: KindConflict, Msg: "place already purchased"}
	ErrPlaceHasPurchases  = &Error{Kind: KindConflict, Msg: "place has purchases and cannot be deleted"}
	ErrUserHasPurchases   = &Error{Kind: KindConflict, Msg: "user is part of purchases and cannot be deleted"}
	ErrSelfPurchase       = &Error{Kind: KindForbidden, Msg: "cannot purchase your own place"}
	ErrNotParticipant     = &Error{Kind: KindForbidden, Msg: "not a participant of this chat"}
	ErrMessageNotFound    = &Error{Kind: KindNotFound, Msg: "message not found"}
	ErrChatNotFound       = &Error{Kind: KindNotFound, Msg: "chat not found"}
	ErrPlaceNotFound      = &Error{Kind: KindNotFound, Msg: "place not found"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Msg: "user not found"}
	ErrReviewNotFound     = &Error{Kind: KindNotFound, Msg: "review not found"}
	ErrComplaintNotFound  = &Error{Kind: KindNotFound, Msg: "complaint not found"}
)

// KindOf returns the kind of err, KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

// notFoundOr maps repository not-found to nf and passes other errors through.
func notFoundOr(err, nf error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return nf
	}
	return err
}
