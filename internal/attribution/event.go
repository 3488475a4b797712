package attribution

import (
	"time"

	"PixRelay/internal/models"
	"PixRelay/internal/pricing"
)

const (
	dateLayout = "2006-01-02 15:04:05"

	StatusWaitingPayment = "waiting_payment"
	StatusPaid           = "paid"
	StatusRefunded       = "refunded"
	StatusRefused        = "refused"

	fallbackName    = "Cliente"
	fallbackEmail   = "cliente@teste.com"
	fallbackCountry = "BR"
	fallbackProduct = "Produto"
)

type Customer struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone"`
	Document *string `json:"document"`
	Country  string  `json:"country"`
}

type Product struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	PlanID       *string `json:"planId"`
	PlanName     *string `json:"planName"`
	Quantity     int     `json:"quantity"`
	PriceInCents int64   `json:"priceInCents"`
}

type Commission struct {
	TotalPriceInCents     int64 `json:"totalPriceInCents"`
	GatewayFeeInCents     int64 `json:"gatewayFeeInCents"`
	UserCommissionInCents int64 `json:"userCommissionInCents"`
}

// Event is the order payload accepted by the attribution service.
type Event struct {
	OrderID            string            `json:"orderId"`
	Platform           string            `json:"platform"`
	PaymentMethod      string            `json:"paymentMethod"`
	Status             string            `json:"status"`
	CreatedAt          string            `json:"createdAt"`
	ApprovedDate       *string           `json:"approvedDate"`
	RefundedAt         *string           `json:"refundedAt"`
	Customer           Customer          `json:"customer"`
	Products           []Product         `json:"products"`
	TrackingParameters map[string]string `json:"trackingParameters"`
	Commission         Commission        `json:"commission"`
	IsTest             bool              `json:"isTest"`
}

// MapStatus translates a ledger status into the attribution vocabulary.
func MapStatus(status models.OrderStatus) string {
	switch {
	case status == models.OrderPending:
		return StatusWaitingPayment
	case status.IsPaid():
		return StatusPaid
	case status == models.OrderRefunded:
		return StatusRefunded
	case status == models.OrderExpired:
		return StatusRefused
	}
	return string(status)
}

// BuildEvent assembles the canonical payload. Timestamps are taken from
// now, not from the order's creation time.
func BuildEvent(orderID string, status models.OrderStatus, order *models.Order, platform string, isTest bool, now time.Time) Event {
	stamp := now.UTC().Format(dateLayout)
	paid := status.IsPaid()

	evt := Event{
		OrderID:            orderID,
		Platform:           platform,
		PaymentMethod:      "pix",
		Status:             MapStatus(status),
		CreatedAt:          stamp,
		Customer:           buildCustomer(order.Customer),
		Products:           []Product{buildProduct(orderID, order)},
		TrackingParameters: buildTracking(order.Tracking),
		Commission: Commission{
			TotalPriceInCents:     order.TotalAmount,
			GatewayFeeInCents:     order.GatewayFee,
			UserCommissionInCents: pricing.Commission(order.TotalAmount, order.GatewayFee, paid),
		},
		IsTest: isTest,
	}
	if paid {
		evt.ApprovedDate = &stamp
	}
	if status == models.OrderRefunded {
		evt.RefundedAt = &stamp
	}
	return evt
}

func buildCustomer(c models.Customer) Customer {
	out := Customer{
		Name:    c.Name,
		Email:   c.Email,
		Country: fallbackCountry,
	}
	if out.Name == "" {
		out.Name = fallbackName
	}
	if out.Email == "" {
		out.Email = fallbackEmail
	}
	if c.Phone != "" {
		out.Phone = &c.Phone
	}
	if c.Document != "" {
		out.Document = &c.Document
	}
	return out
}

func buildProduct(orderID string, order *models.Order) Product {
	p := Product{
		ID:           order.Product.ID,
		Name:         order.Product.Name,
		Quantity:     order.Offer.Quantity,
		PriceInCents: order.TotalAmount,
	}
	if p.ID == "" {
		p.ID = orderID
	}
	if p.Name == "" {
		p.Name = fallbackProduct
	}
	if p.Quantity <= 0 {
		p.Quantity = 1
	}
	if order.Offer.ID != "" {
		id := order.Offer.ID
		p.PlanID = &id
	}
	if order.Offer.Name != "" {
		name := order.Offer.Name
		p.PlanName = &name
	}
	return p
}

func buildTracking(t models.Tracking) map[string]string {
	out := make(map[string]string, len(models.TrackingKeys))
	for _, key := range models.TrackingKeys {
		out[key] = t[key]
	}
	return out
}
