package payments

import (
	"context"
	"log/slog"
	"time"

	"PixRelay/internal/events"
	"PixRelay/internal/models"
	"PixRelay/internal/store"
)

// Forwarder delivers an order event to the attribution service and
// reports whether it was accepted.
type Forwarder interface {
	Forward(ctx context.Context, orderID string, status models.OrderStatus, order *models.Order) bool
}

// Outcome describes what a notification did to the ledger.
type Outcome struct {
	OrderID   string
	Matched   bool
	Changed   bool
	Forwarded bool
	Status    models.OrderStatus
}

type Reconciler struct {
	Store     *store.Ledger
	Forwarder Forwarder
	Notifier  events.Notifier
	Logger    *slog.Logger
	Now       func() time.Time
}

func NewReconciler(st *store.Ledger, fwd Forwarder, notifier events.Notifier, logger *slog.Logger) *Reconciler {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &Reconciler{
		Store:     st,
		Forwarder: fwd,
		Notifier:  notifier,
		Logger:    logger,
		Now:       time.Now,
	}
}

// Resolve finds the ledger entry a notification refers to.
func (r *Reconciler) Resolve(n models.Notification) (string, bool) {
	return r.Store.Resolve(n.GatewayID, n.ExternalID)
}

// Apply reconciles one gateway notification. It never fails: misses and
// forward errors are logged and reported through the Outcome.
func (r *Reconciler) Apply(ctx context.Context, n models.Notification) Outcome {
	orderID, ok := r.Resolve(n)
	if !ok {
		return r.applyMiss(ctx, n)
	}

	var changed, forward bool
	order, err := r.Store.UpdateOrder(orderID, func(o *models.Order) {
		mergeNotification(o, n)
		switch {
		case n.Status != "" && n.Status != o.Status:
			o.Status = n.Status
			changed = true
			// a paid event already delivered is never sent twice
			forward = !(n.Status.IsPaid() && o.Notified(n.Status))
		case n.Status.IsPaid() && !o.Notified(n.Status):
			forward = true
		}
		o.UpdatedAt = r.Now()
	})
	if err != nil {
		// swept between resolve and update
		r.Logger.Info("order vanished during reconciliation", "order_id", orderID, "err", err)
		return r.applyMiss(ctx, n)
	}

	out := Outcome{OrderID: orderID, Matched: true, Changed: changed, Status: order.Status}
	if changed {
		r.Logger.Info("order status changed", "order_id", orderID, "gateway_id", n.GatewayID, "status", order.Status)
		r.Notifier.OrderStatusChanged(ctx, orderID, order.Status)
	}
	if !forward {
		r.Logger.Info("notification ignored, status unchanged", "order_id", orderID, "status", order.Status)
		return out
	}

	if r.Forwarder.Forward(ctx, orderID, order.Status, order) {
		out.Forwarded = true
		if err := r.Store.MarkNotified(orderID, order.Status); err != nil {
			r.Logger.Warn("order gone before notified flag was set", "order_id", orderID, "err", err)
		}
	} else {
		r.Logger.Warn("attribution forward failed, will retry on next notification", "order_id", orderID, "status", order.Status)
	}
	return out
}

// applyMiss handles notifications for orders the ledger does not hold.
// A completed payment is still forwarded so the conversion is not lost.
func (r *Reconciler) applyMiss(ctx context.Context, n models.Notification) Outcome {
	orderID := n.GatewayID
	if orderID == "" {
		orderID = n.ExternalID
	}
	out := Outcome{OrderID: orderID, Status: n.Status}
	if !n.Status.IsPaid() {
		r.Logger.Info("notification for unknown order dropped", "gateway_id", n.GatewayID, "external_id", n.ExternalID, "status", n.Status)
		return out
	}
	if orderID == "" {
		r.Logger.Warn("paid notification without any order reference dropped", "event", n.Event)
		return out
	}

	now := r.Now()
	order := &models.Order{
		OrderID:              orderID,
		GatewayTransactionID: n.GatewayID,
		Status:               n.Status,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	mergeNotification(order, n)

	r.Logger.Warn("paid notification for unknown order, forwarding from webhook data", "gateway_id", n.GatewayID, "external_id", n.ExternalID)
	out.Forwarded = r.Forwarder.Forward(ctx, orderID, n.Status, order)
	if !out.Forwarded {
		r.Logger.Error("best-effort forward for unknown order failed", "order_id", orderID)
	}
	return out
}

func mergeNotification(o *models.Order, n models.Notification) {
	if n.Fee.Valid {
		o.GatewayFee = n.Fee.Value
	}
	if n.Amount.Valid {
		o.TotalAmount = n.Amount.Value
	}
	if !n.Customer.IsZero() {
		o.Customer = n.Customer
	}
	if !n.Product.IsZero() {
		o.Product = n.Product
	}
	if !n.Offer.IsZero() {
		o.Offer = n.Offer
	}
	if len(n.Tracking) > 0 {
		if o.Tracking == nil {
			o.Tracking = make(models.Tracking, len(n.Tracking))
		}
		for k, v := range n.Tracking {
			if v != "" {
				o.Tracking[k] = v
			}
		}
	}
	if o.GatewayTransactionID == "" && n.GatewayID != "" {
		o.GatewayTransactionID = n.GatewayID
	}
}
