// Package authz holds the authorization predicates of the marketplace.
//
// Every predicate is a pure function over (actor, target): no I/O, no
// side effects. Services evaluate them inside the same transaction as the
// mutation they guard and turn a false result into a Forbidden error.
// A nil actor (anonymous request) is never authorized.
package authz

import "github.com/tbourn/go-places-market/internal/domain"

// CanEditPlace reports whether actor may modify place. Owners always may;
// administrators may only when adminContext is set (the admin surface).
func CanEditPlace(actor *domain.User, place *domain.Place, adminContext bool) bool {
	if actor == nil || place == nil {
		return false
	}
	if actor.ID == place.UserID {
		return true
	}
	return adminContext && actor.IsAdmin
}

// CanDeletePlace reports whether a place with the given number of purchases
// may be removed. It does not depend on who asks.
func CanDeletePlace(purchaseCount int64) bool {
	return purchaseCount == 0
}

// CanPurchase reports whether buyer may purchase place (no self-purchase).
func CanPurchase(buyer *domain.User, place *domain.Place) bool {
	if buyer == nil || place == nil {
		return false
	}
	return buyer.ID != place.UserID
}

// CanRespondReview reports whether actor is the seller the review is about.
func CanRespondReview(actor *domain.User, review *domain.Review) bool {
	if actor == nil || review == nil {
		return false
	}
	return actor.ID == review.SellerID
}

// CanRespondComplaint reports whether actor is the seller named by the complaint.
func CanRespondComplaint(actor *domain.User, complaint *domain.Complaint) bool {
	if actor == nil || complaint == nil {
		return false
	}
	return actor.ID == complaint.SellerID
}

// CanMutateMessage reports whether actor sent message.
func CanMutateMessage(actor *domain.User, message *domain.Message) bool {
	if actor == nil || message == nil {
		return false
	}
	return actor.ID == message.SenderID
}

// IsParticipant reports whether actor is one of the chat's two users.
func IsParticipant(actor *domain.User, chat *domain.Chat) bool {
	if actor == nil || chat == nil {
		return false
	}
	return chat.Has(actor.ID)
}

// IsAdmin reports whether actor may use the administrative surface.
func IsAdmin(actor *domain.User) bool {
	return actor != nil && actor.IsAdmin
}
