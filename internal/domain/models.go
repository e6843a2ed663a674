// Package domain defines the persistence models of the marketplace: users,
// places for sale, purchases, favorites, reviews, complaints and the
// two-party chats with their messages. These types are mapped with GORM and
// form the core data layer of the application.
//
// Every entity is keyed by an auto-incremented unsigned integer. Two-role
// relationships (reviewer/seller, reporter/seller, user1/user2) are modeled
// as two distinct foreign-key columns, each with its own index.
package domain

import "time"

// DefaultAvatar is the avatar reference assigned to newly registered users.
const DefaultAvatar = "default.jpg"

// User is a registered account. It is the root aggregate for authorization:
// every other entity is owned by, or scoped to, one or two users.
//
// Fields:
//   - Username: unique, case-sensitive login name.
//   - PasswordHash: bcrypt hash; never serialized.
//   - IsAdmin: grants access to the administrative surface.
//   - Avatar: stored file reference (defaults to DefaultAvatar).
//   - Bio: free-form profile text.
type User struct {
	ID           uint      `json:"id"         gorm:"primaryKey"`
	Username     string    `json:"username"   gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(128);not null"`
	IsAdmin      bool      `json:"is_admin"   gorm:"not null;default:false"`
	Avatar       string    `json:"avatar"     gorm:"type:varchar(120);not null;default:'default.jpg'"`
	Bio          string    `json:"bio"        gorm:"type:text;not null;default:''"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Place is a listing offered for sale by its author. The owner is set once
// at creation and never changes.
type Place struct {
	ID          uint      `json:"id"          gorm:"primaryKey"`
	Title       string    `json:"title"       gorm:"type:varchar(100);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Latitude    float64   `json:"latitude"    gorm:"not null"`
	Longitude   float64   `json:"longitude"   gorm:"not null"`
	Price       int64     `json:"price"       gorm:"not null"`
	ImageFile   *string   `json:"image_file,omitempty" gorm:"type:varchar(120)"`
	UserID      uint      `json:"user_id"     gorm:"not null;index:idx_places_user"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Author owns the listing. Deleting the user removes their listings.
	Author User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Place.
func (Place) TableName() string { return "places" }

// Purchase is a ledger row recording that a user acquired a place.
// A (user, place) pair appears at most once.
type Purchase struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	UserID    uint      `json:"user_id"    gorm:"not null;index:idx_purchases_user;uniqueIndex:ux_purchases_user_place,priority:1"`
	PlaceID   uint      `json:"place_id"   gorm:"not null;index:idx_purchases_place;uniqueIndex:ux_purchases_user_place,priority:2"`
	CreatedAt time.Time `json:"timestamp"`

	// RESTRICT keeps the ledger intact: a place or buyer with purchases
	// cannot be removed underneath it.
	User  User  `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Place Place `json:"-" gorm:"foreignKey:PlaceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Purchase.
func (Purchase) TableName() string { return "purchases" }

// Favorite is a user's bookmark of a place, unique per (user, place).
type Favorite struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	UserID    uint      `json:"user_id"    gorm:"not null;uniqueIndex:ux_favorites_user_place,priority:1"`
	PlaceID   uint      `json:"place_id"   gorm:"not null;index:idx_favorites_place;uniqueIndex:ux_favorites_user_place,priority:2"`
	CreatedAt time.Time `json:"created_at"`

	User  User  `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Place Place `json:"-" gorm:"foreignKey:PlaceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Favorite.
func (Favorite) TableName() string { return "favorites" }

// Review is rated feedback from a reviewer about a seller. Only the seller
// may write the Reply.
type Review struct {
	ID         uint      `json:"id"          gorm:"primaryKey"`
	ReviewerID uint      `json:"reviewer_id" gorm:"not null;index:idx_reviews_reviewer"`
	SellerID   uint      `json:"seller_id"   gorm:"not null;index:idx_reviews_seller"`
	Text       string    `json:"text"        gorm:"type:text;not null"`
	Rating     int       `json:"rating"      gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Reply      *string   `json:"reply,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`

	Reviewer User `json:"-" gorm:"foreignKey:ReviewerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Seller   User `json:"-" gorm:"foreignKey:SellerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Review.
func (Review) TableName() string { return "reviews" }

// Complaint is an unrated grievance from a reporter about a seller,
// optionally tied to one of the seller's places. Only the seller may write
// the Response.
type Complaint struct {
	ID         uint      `json:"id"          gorm:"primaryKey"`
	ReporterID uint      `json:"reporter_id" gorm:"not null;index:idx_complaints_reporter"`
	SellerID   uint      `json:"seller_id"   gorm:"not null;index:idx_complaints_seller"`
	Text       string    `json:"text"        gorm:"type:text;not null"`
	Response   *string   `json:"response,omitempty" gorm:"type:text"`
	PlaceID    *uint     `json:"place_id,omitempty" gorm:"index:idx_complaints_place"`
	CreatedAt  time.Time `json:"timestamp"`

	Reporter User   `json:"-" gorm:"foreignKey:ReporterID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Seller   User   `json:"-" gorm:"foreignKey:SellerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Place    *Place `json:"-" gorm:"foreignKey:PlaceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Complaint.
func (Complaint) TableName() string { return "complaints" }

// Chat is a conversation between exactly two users. Rows are written with
// User1ID < User2ID so that an unordered pair maps to one unique row.
type Chat struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	User1ID   uint      `json:"user1_id"   gorm:"not null;index:idx_chats_user1;uniqueIndex:ux_chats_pair,priority:1"`
	User2ID   uint      `json:"user2_id"   gorm:"not null;index:idx_chats_user2;uniqueIndex:ux_chats_pair,priority:2"`
	CreatedAt time.Time `json:"created_at"`

	User1 User `json:"-" gorm:"foreignKey:User1ID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User2 User `json:"-" gorm:"foreignKey:User2ID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Has reports whether userID is one of the two participants.
func (c Chat) Has(userID uint) bool {
	return userID != 0 && (c.User1ID == userID || c.User2ID == userID)
}

// Other returns the participant that is not userID.
func (c Chat) Other(userID uint) uint {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// Message is a single timestamped entry within a chat. SentAt is rewritten
// on edit; the ID keeps creation order and breaks timestamp ties.
type Message struct {
	ID        uint      `json:"id"        gorm:"primaryKey"`
	ChatID    uint      `json:"chat_id"   gorm:"not null;index:idx_chat_msgs,priority:1"`
	SenderID  uint      `json:"sender_id" gorm:"not null;index:idx_messages_sender"`
	Text      string    `json:"text"      gorm:"type:text;not null"`
	SentAt    time.Time `json:"timestamp" gorm:"not null;index:idx_chat_msgs,priority:2"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Chat   Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Sender User `json:"-" gorm:"foreignKey:SenderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
