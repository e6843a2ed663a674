package observability

import "github.com/prometheus/client_golang/prometheus"

// Event names recorded by the HTTP layer after a successful operation.
const (
	EventUserRegistered    = "user_registered"
	EventLoginSucceeded    = "login_succeeded"
	EventLoginFailed       = "login_failed"
	EventPlaceCreated      = "place_created"
	EventPlaceDeleted      = "place_deleted"
	EventPurchaseCompleted = "purchase_completed"
	EventPurchaseDuplicate = "purchase_duplicate"
	EventFavoriteAdded     = "favorite_added"
	EventFavoriteRemoved   = "favorite_removed"
	EventReviewLeft        = "review_left"
	EventComplaintFiled    = "complaint_filed"
	EventChatStarted       = "chat_started"
	EventMessageSent       = "message_sent"
	EventUserDeleted       = "user_deleted"
)

var events = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "marketplace_events_total",
		Help: "Marketplace business events by type.",
	},
	[]string{"event"},
)

func init() {
	prometheus.MustRegister(events)
}

// Record increments the counter for event.
func Record(event string) {
	events.WithLabelValues(event).Inc()
}
