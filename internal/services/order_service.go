package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"PixRelay/internal/document"
	"PixRelay/internal/events"
	"PixRelay/internal/gateway"
	"PixRelay/internal/models"
	"PixRelay/internal/payments"
	"PixRelay/internal/pricing"
	"PixRelay/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingAmount = errors.New("amount is required")
	ErrAmountTooLow  = errors.New("amount below minimum")
	ErrInvalidAmount = errors.New("amount out of range")
	ErrMissingID     = errors.New("missing order id")
)

// Gateway creates PIX transactions upstream.
type Gateway interface {
	CreateTransaction(ctx context.Context, req gateway.CreateTransactionRequest) (*gateway.Transaction, error)
}

// CreateOrderInput is the client payload of POST /create-payment.
type CreateOrderInput struct {
	Amount        *decimal.Decimal  `json:"amount" validate:"required"`
	Email         string            `json:"email" validate:"required,email"`
	Name          string            `json:"name" validate:"required"`
	Document      string            `json:"document"`
	Phone         string            `json:"phone"`
	ProductID     string            `json:"product_id"`
	ProductName   string            `json:"product_name"`
	OfferID       string            `json:"offer_id"`
	OfferName     string            `json:"offer_name"`
	DiscountPrice pricing.Cents     `json:"discount_price"`
	Quantity      int               `json:"quantity" validate:"gte=0"`
	Tracking      map[string]string `json:"tracking"`
}

type PixData struct {
	Code         string `json:"code"`
	QRCodeBase64 string `json:"qrcode_base64"`
}

type CreateOrderResult struct {
	Pix           PixData `json:"pix"`
	TransactionID string  `json:"transactionId"`
}

type OrderService struct {
	Store       *store.Ledger
	Gateway     Gateway
	Forwarder   payments.Forwarder
	Notifier    events.Notifier
	Logger      *slog.Logger
	MinAmount   int64
	ExpireAfter time.Duration
	Now         func() time.Time
}

// CreateOrder opens a gateway transaction, records it as pending and
// sends the initial attribution event.
func (s OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	if in.Amount == nil {
		return nil, ErrMissingAmount
	}
	amount := pricing.ToCents(*in.Amount)
	if !amount.Valid {
		return nil, ErrInvalidAmount
	}
	cents := amount.Value
	if cents < s.MinAmount {
		return nil, fmt.Errorf("%w: %d cents, minimum %d", ErrAmountTooLow, cents, s.MinAmount)
	}

	quantity := in.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	customer := models.Customer{
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.TrimSpace(in.Email),
		Phone:    document.NormalizePhone(in.Phone),
		Document: document.Resolve(in.Document),
	}
	product := models.Product{ID: in.ProductID, Name: in.ProductName}
	discount := in.DiscountPrice.Value
	if discount < 0 {
		discount = 0
	}
	offer := models.Offer{ID: in.OfferID, Name: in.OfferName, DiscountPrice: discount, Quantity: quantity}
	tracking := make(models.Tracking, len(in.Tracking))
	for k, v := range in.Tracking {
		if v != "" {
			tracking[k] = v
		}
	}

	orderID := uuid.NewString()
	req := gateway.CreateTransactionRequest{
		ExternalID: orderID,
		Amount:     cents,
		Buyer: gateway.Buyer{
			Name:     customer.Name,
			Email:    customer.Email,
			Document: customer.Document,
			Phone:    customer.Phone,
		},
		Offer: &gateway.Offer{
			ID:            offer.ID,
			Name:          offer.Name,
			DiscountPrice: offer.DiscountPrice,
			Quantity:      offer.Quantity,
		},
		Tracking: tracking,
	}
	if !product.IsZero() {
		req.Product = &gateway.Product{ID: product.ID, Name: product.Name}
	}

	tx, err := s.Gateway.CreateTransaction(ctx, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		OrderID:              orderID,
		GatewayTransactionID: tx.ID,
		Status:               models.OrderPending,
		TotalAmount:          cents,
		Customer:             customer,
		Product:              product,
		Offer:                offer,
		Tracking:             tracking,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	s.Store.PutOrder(order)
	s.Logger.Info("order created", "order_id", orderID, "gateway_id", tx.ID, "amount_cents", cents)

	if s.Forwarder != nil && s.Forwarder.Forward(ctx, orderID, models.OrderPending, order) {
		if err := s.Store.MarkNotified(orderID, models.OrderPending); err != nil {
			s.Logger.Warn("order gone before notified flag was set", "order_id", orderID, "err", err)
		}
	}

	return &CreateOrderResult{
		Pix:           PixData{Code: tx.PixCode, QRCodeBase64: tx.QRCodeBase64},
		TransactionID: orderID,
	}, nil
}

// CheckStatus returns the ledger status of an order. A pending order older
// than ExpireAfter is flipped to expired first.
func (s OrderService) CheckStatus(ctx context.Context, orderID string) (models.OrderStatus, error) {
	if orderID == "" {
		return "", ErrMissingID
	}

	cutoff := s.now().Add(-s.ExpireAfter)
	var expired bool
	order, err := s.Store.UpdateOrder(orderID, func(o *models.Order) {
		if o.Status == models.OrderPending && o.CreatedAt.Before(cutoff) {
			o.Status = models.OrderExpired
			o.UpdatedAt = s.now()
			expired = true
		}
	})
	if errors.Is(err, store.ErrOrderNotFound) {
		return models.OrderNotFound, nil
	}
	if err != nil {
		return "", err
	}

	if expired {
		s.Logger.Info("order expired on status query", "order_id", orderID)
		if s.Notifier != nil {
			s.Notifier.OrderStatusChanged(ctx, orderID, order.Status)
		}
	}
	return order.Status, nil
}

// GetOrder exposes a ledger snapshot, used by the websocket stream.
func (s OrderService) GetOrder(orderID string) (*models.Order, error) {
	return s.Store.GetOrder(orderID)
}

func (s OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
