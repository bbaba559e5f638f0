package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices are plain JSON numbers on the wire, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	StoreAmazon       = "amazon"
	StoreAliexpress   = "aliexpress"
	StoreMercadoLivre = "mercadolivre"
	StoreMagalu       = "magalu"
	StoreFastshop     = "fastshop"
	StoreAmericanas   = "americanas"
	StoreCea          = "cea"
)

const NotificationPlatformEmail = "email"

// Monitor is one tracked (user, url) subscription. (user_id, url) is unique.
type Monitor struct {
	ID                   int64               `db:"id" json:"id"`
	UserID               string              `db:"user_id" json:"user_id"`
	URL                  string              `db:"url" json:"url"`
	Store                string              `db:"store" json:"store"`
	Price                decimal.NullDecimal `db:"price" json:"price"`
	ProductName          *string             `db:"product_name" json:"product_name,omitempty"`
	Name                 *string             `db:"name" json:"name,omitempty"`
	DesiredPrice         decimal.NullDecimal `db:"desired_price" json:"desired_price"`
	NotificationPlatform *string             `db:"notification_platform" json:"notification_platform,omitempty"`
	IsBelowDesiredPrice  *bool               `db:"is_below_desired_price" json:"is_below_desired_price,omitempty"`
	LastMinedAt          time.Time           `db:"last_mined_at" json:"last_mined_at"`
	NextMineAt           time.Time           `db:"next_mine_at" json:"next_mine_at"`
	CreatedAt            time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time           `db:"updated_at" json:"updated_at"`
}

// PriceHistoryEntry is an append-only price observation for one monitor.
type PriceHistoryEntry struct {
	ID        int64           `db:"id" json:"id"`
	MonitorID int64           `db:"monitor_id" json:"monitor_id"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Store     string          `db:"store" json:"store"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// MonitorUpdate carries the fields supplied by one scrape. Absent fields
// (invalid NullDecimal, nil pointer) are left untouched on update and null
// on insert.
type MonitorUpdate struct {
	UserID               string
	URL                  string
	Store                string
	Price                decimal.NullDecimal
	Name                 *string
	DesiredPrice         decimal.NullDecimal
	NotificationPlatform *string
}

// MineTask is a scheduled re-scrape published to the mine queue.
type MineTask struct {
	MonitorID int64  `json:"monitor_id"`
	UserID    string `json:"user_id"`
	URL       string `json:"url"`
	Store     string `json:"store"`
}

// Notification is the payload sent to the notification endpoint when a price
// drops below the user's threshold.
type Notification struct {
	UserEmail    string          `json:"user_email" validate:"required,email"`
	UserName     string          `json:"user_name" validate:"required"`
	UserID       string          `json:"user_id"`
	ProductName  string          `json:"product_name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	DesiredPrice decimal.Decimal `json:"desired_price"`
	ProductURL   string          `json:"product_url" validate:"required,url"`
	Store        string          `json:"store"`
}
