package http

import (
	"bytes"
	"encoding/json"
	"strings"

	"PixRelay/internal/models"
	"PixRelay/internal/pricing"
)

// looseString accepts a JSON string or number. Gateways are not consistent
// about id types. Objects and arrays decode to "".
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*s = ""
		return nil
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
	case '{', '[', 'n':
		*s = ""
	default:
		*s = looseString(b)
	}
	return nil
}

type webhookBuyer struct {
	Name     looseString `json:"name"`
	Email    looseString `json:"email"`
	Phone    looseString `json:"phone"`
	Document looseString `json:"document"`
}

type webhookProduct struct {
	ID   looseString `json:"id"`
	Name looseString `json:"name"`
}

type webhookOffer struct {
	ID            looseString   `json:"id"`
	Name          looseString   `json:"name"`
	DiscountPrice pricing.Cents `json:"discount_price"`
	Quantity      pricing.Cents `json:"quantity"`
}

type webhookFees struct {
	GatewayFee pricing.Cents `json:"gateway_fee"`
}

type webhookEnvelope struct {
	Event looseString     `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// webhookData keeps the nested objects raw so a mistyped sub-object is
// dropped on its own instead of failing the whole notification.
type webhookData struct {
	ID          looseString     `json:"id"`
	Status      looseString     `json:"status"`
	ExternalID  looseString     `json:"external_id"`
	Amount      pricing.Cents   `json:"amount"`
	TotalAmount pricing.Cents   `json:"total_amount"`
	Fees        json.RawMessage `json:"fees"`
	Buyer       json.RawMessage `json:"buyer"`
	Product     json.RawMessage `json:"product"`
	Offer       json.RawMessage `json:"offer"`
	Tracking    json.RawMessage `json:"tracking"`
}

// decodeLoose unmarshals raw into a T, returning ok=false and the zero
// value when raw is absent, null or of the wrong shape.
func decodeLoose[T any](raw json.RawMessage) (T, bool) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

// parseNotification turns any well-formed JSON document into a
// notification, applying the boundary defaults: total_amount wins over
// amount, absent or mistyped sub-objects stay zero so they never overwrite
// the ledger.
func parseNotification(body json.RawMessage) models.Notification {
	env, _ := decodeLoose[webhookEnvelope](body)
	d, _ := decodeLoose[webhookData](env.Data)

	n := models.Notification{
		Event:      strings.TrimSpace(string(env.Event)),
		GatewayID:  strings.TrimSpace(string(d.ID)),
		ExternalID: strings.TrimSpace(string(d.ExternalID)),
		Status:     models.ParseStatus(string(d.Status)),
		Amount:     d.TotalAmount,
	}
	if !n.Amount.Valid {
		n.Amount = d.Amount
	}
	if fees, ok := decodeLoose[webhookFees](d.Fees); ok {
		n.Fee = fees.GatewayFee
	}
	if b, ok := decodeLoose[webhookBuyer](d.Buyer); ok {
		n.Customer = models.Customer{
			Name:     string(b.Name),
			Email:    string(b.Email),
			Phone:    string(b.Phone),
			Document: string(b.Document),
		}
	}
	if p, ok := decodeLoose[webhookProduct](d.Product); ok {
		n.Product = models.Product{ID: string(p.ID), Name: string(p.Name)}
	}
	if o, ok := decodeLoose[webhookOffer](d.Offer); ok {
		n.Offer = models.Offer{
			ID:            string(o.ID),
			Name:          string(o.Name),
			DiscountPrice: o.DiscountPrice.Value,
			Quantity:      int(o.Quantity.Value),
		}
	}
	if tracking, ok := decodeLoose[map[string]looseString](d.Tracking); ok && len(tracking) > 0 {
		n.Tracking = make(models.Tracking, len(tracking))
		for k, v := range tracking {
			n.Tracking[k] = string(v)
		}
	}
	return n
}
