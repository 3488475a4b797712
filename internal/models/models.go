package models

import (
	"strings"
	"time"

	"PixRelay/internal/pricing"
)

type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderPaid     OrderStatus = "paid"
	OrderExpired  OrderStatus = "expired"
	OrderRefunded OrderStatus = "refunded"

	// OrderNotFound is reported for ids the ledger does not hold, whether
	// they never existed or were already swept.
	OrderNotFound OrderStatus = "not_found"
)

// ParseStatus normalizes a gateway-provided status string.
func ParseStatus(s string) OrderStatus {
	return OrderStatus(strings.ToLower(strings.TrimSpace(s)))
}

// IsPaid reports whether the status denotes a completed payment.
func (s OrderStatus) IsPaid() bool {
	switch s {
	case OrderPaid, "approved", "completed":
		return true
	}
	return false
}

// Canonical folds gateway aliases together so paid, approved and completed
// share one notified-status slot.
func (s OrderStatus) Canonical() OrderStatus {
	if s.IsPaid() {
		return OrderPaid
	}
	return s
}

type Customer struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
}

func (c Customer) IsZero() bool { return c == Customer{} }

type Product struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (p Product) IsZero() bool { return p == Product{} }

type Offer struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	DiscountPrice int64  `json:"discount_price,omitempty"`
	Quantity      int    `json:"quantity,omitempty"`
}

func (o Offer) IsZero() bool { return o == Offer{} }

// Tracking holds UTM-style campaign parameters keyed by their wire name.
type Tracking map[string]string

// TrackingKeys lists every tracking key forwarded to attribution.
var TrackingKeys = []string{"src", "sck", "utm_source", "utm_campaign", "utm_medium", "utm_content", "utm_term"}

type Order struct {
	OrderID              string
	GatewayTransactionID string
	Status               OrderStatus
	TotalAmount          int64
	GatewayFee           int64
	Customer             Customer
	Product              Product
	Offer                Offer
	Tracking             Tracking
	NotifiedStatuses     map[OrderStatus]bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Notified reports whether status was already forwarded for this order.
func (o *Order) Notified(status OrderStatus) bool {
	return o.NotifiedStatuses[status.Canonical()]
}

// Clone returns a deep copy so callers never alias ledger state.
func (o *Order) Clone() *Order {
	c := *o
	if o.Tracking != nil {
		c.Tracking = make(Tracking, len(o.Tracking))
		for k, v := range o.Tracking {
			c.Tracking[k] = v
		}
	}
	c.NotifiedStatuses = make(map[OrderStatus]bool, len(o.NotifiedStatuses))
	for k, v := range o.NotifiedStatuses {
		c.NotifiedStatuses[k] = v
	}
	return &c
}

// Notification is a gateway status webhook after boundary decoding.
type Notification struct {
	Event      string
	GatewayID  string
	ExternalID string
	Status     OrderStatus
	Amount     pricing.Cents
	Fee        pricing.Cents
	Customer   Customer
	Product    Product
	Offer      Offer
	Tracking   Tracking
}
