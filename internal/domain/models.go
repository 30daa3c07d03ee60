// Package domain defines the persistence models for users, listings,
// purchases, and notification logs. These types are mapped with GORM and
// form the core data layer of the affiliate ledger.
package domain

import (
	"time"
)

// User roles.
const (
	RoleBuyer      = "buyer"
	RoleInfluencer = "influencer"
	RoleCompany    = "company"
	RoleAdmin      = "admin"
)

// Notification channels and delivery states.
const (
	ChannelCompany = "company"
	ChannelBuyer   = "buyer"

	NotificationPending   = "pending"
	NotificationDelivered = "delivered"
	NotificationFailed    = "failed"
)

// User is any participant of the ledger: a company selling through
// listings, an influencer referring buyers, or a buyer.
//
// Fields:
//   - Email: unique login/contact address.
//   - NotificationEmail: optional override used for order notices to companies.
//   - Role: one of buyer|influencer|company|admin (enforced by DB constraint).
type User struct {
	ID                int64     `json:"id"                           gorm:"primaryKey;autoIncrement"`
	Name              string    `json:"name"                         gorm:"type:varchar(255);not null"`
	Email             string    `json:"email"                        gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	NotificationEmail *string   `json:"notification_email,omitempty" gorm:"type:varchar(255)"`
	Role              string    `json:"role"                         gorm:"type:varchar(16);not null;default:'buyer';check:role IN ('buyer','influencer','company','admin')"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Listing is a product a company offers for sale.
//
// Stock is nil for unlimited stock; otherwise it never drops below zero.
// UnitPrice is in the smallest currency unit (e.g. yen).
type Listing struct {
	ID          int64      `json:"id"                 gorm:"primaryKey;autoIncrement"`
	CompanyID   int64      `json:"company_id"         gorm:"not null;index:idx_listings_company"`
	Title       string     `json:"title"              gorm:"type:varchar(255);not null"`
	ProductName string     `json:"product_name"       gorm:"type:varchar(255);not null"`
	UnitPrice   int64      `json:"unit_price"         gorm:"not null;check:unit_price > 0"`
	Stock       *int64     `json:"stock"              gorm:"check:stock IS NULL OR stock >= 0"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Company User `json:"-" gorm:"foreignKey:CompanyID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Listing.
func (Listing) TableName() string { return "listings" }

// Unlimited reports whether the listing has no stock limit.
func (l Listing) Unlimited() bool { return l.Stock == nil }

// Purchase is an immutable ledger entry: one committed order with its
// revenue split. CompanyAmount + InfluencerAmount + PlatformAmount always
// equals UnitPrice * Quantity, and IdempotencyKey is globally unique.
type Purchase struct {
	ID               int64     `json:"id"                gorm:"primaryKey;autoIncrement"`
	ListingID        int64     `json:"listing_id"        gorm:"not null;index:idx_purchases_listing"`
	ReferrerID       int64     `json:"referrer_id"       gorm:"not null;index:idx_purchases_referrer"`
	BuyerID          int64     `json:"buyer_id"          gorm:"not null;index:idx_purchases_buyer_created,priority:1"`
	Quantity         int64     `json:"quantity"          gorm:"not null;check:quantity >= 1"`
	UnitPrice        int64     `json:"unit_price"        gorm:"not null"`
	CompanyAmount    int64     `json:"company_amount"    gorm:"not null"`
	InfluencerAmount int64     `json:"influencer_amount" gorm:"not null"`
	PlatformAmount   int64     `json:"platform_amount"   gorm:"not null"`
	IdempotencyKey   string    `json:"idempotency_key"   gorm:"type:varchar(200);not null;uniqueIndex:ux_purchases_idempotency_key"`
	Handled          bool      `json:"handled"           gorm:"not null;default:false"`
	CreatedAt        time.Time `json:"created_at"        gorm:"index:idx_purchases_buyer_created,priority:2"`

	Listing  Listing `json:"-" gorm:"foreignKey:ListingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Referrer User    `json:"-" gorm:"foreignKey:ReferrerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Buyer    User    `json:"-" gorm:"foreignKey:BuyerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Purchase.
func (Purchase) TableName() string { return "purchases" }

// Total returns the gross amount of the purchase.
func (p Purchase) Total() int64 { return p.UnitPrice * p.Quantity }

// NotificationLog records one delivery attempt lifecycle for a single
// notification. Rows start pending and move to delivered or failed.
type NotificationLog struct {
	ID         int64      `json:"id"                   gorm:"primaryKey;autoIncrement"`
	PurchaseID *int64     `json:"purchase_id,omitempty" gorm:"index:idx_notification_logs_purchase"`
	UserID     *int64     `json:"user_id,omitempty"`
	Channel    string     `json:"channel"              gorm:"type:varchar(16);not null"`
	ToEmail    string     `json:"to_email"             gorm:"type:varchar(255);not null"`
	Subject    string     `json:"subject"              gorm:"type:varchar(255);not null"`
	Status     string     `json:"status"               gorm:"type:varchar(16);not null;default:'pending';index:idx_notification_logs_status;check:status IN ('pending','delivered','failed')"`
	Attempts   int        `json:"attempts"             gorm:"not null;default:0"`
	LastError  *string    `json:"last_error,omitempty" gorm:"type:text"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the database table name for NotificationLog.
func (NotificationLog) TableName() string { return "notification_logs" }
