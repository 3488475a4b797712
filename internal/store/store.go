package store

import (
	"errors"
	"sync"
	"time"

	"PixRelay/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

// Ledger is the volatile order store. The primary map and the gateway id
// index are only ever touched under mu, so a single call never observes
// one without the other. A restart loses everything.
type Ledger struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	byGateway map[string]string
}

func New() *Ledger {
	return &Ledger{
		orders:    make(map[string]*models.Order),
		byGateway: make(map[string]string),
	}
}

// PutOrder inserts or replaces an order by id.
func (l *Ledger) PutOrder(order *models.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.orders[order.OrderID]; ok {
		l.unindex(prev)
	}
	stored := order.Clone()
	l.orders[order.OrderID] = stored
	l.index(stored)
}

func (l *Ledger) GetOrder(orderID string) (*models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order.Clone(), nil
}

func (l *Ledger) DeleteOrder(orderID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.delete(orderID)
}

func (l *Ledger) ResolveByGatewayID(gatewayID string) (string, bool) {
	if gatewayID == "" {
		return "", false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.byGateway[gatewayID]
	return id, ok
}

// Resolve maps an inbound reference to a live order id. The gateway id
// index wins; the caller-embedded order id is the fallback.
func (l *Ledger) Resolve(gatewayID, orderID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if gatewayID != "" {
		if id, ok := l.byGateway[gatewayID]; ok {
			return id, true
		}
	}
	if orderID != "" {
		if _, ok := l.orders[orderID]; ok {
			return orderID, true
		}
	}
	return "", false
}

// UpdateOrder applies fn to the live order atomically and returns a copy
// of the result. A changed gateway id is re-indexed. fn must not block.
func (l *Ledger) UpdateOrder(orderID string, fn func(o *models.Order)) (*models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	prevGateway := order.GatewayTransactionID
	fn(order)
	order.OrderID = orderID
	if order.GatewayTransactionID != prevGateway {
		if l.byGateway[prevGateway] == orderID {
			delete(l.byGateway, prevGateway)
		}
		l.index(order)
	}
	return order.Clone(), nil
}

// MarkNotified records that status was forwarded for the order.
func (l *Ledger) MarkNotified(orderID string, status models.OrderStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if order.NotifiedStatuses == nil {
		order.NotifiedStatuses = make(map[models.OrderStatus]bool)
	}
	order.NotifiedStatuses[status.Canonical()] = true
	return nil
}

// MarkExpired flips pending orders created before cutoff to expired and
// returns their ids.
func (l *Ledger) MarkExpired(cutoff, now time.Time) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ids []string
	for id, order := range l.orders {
		if order.Status == models.OrderPending && order.CreatedAt.Before(cutoff) {
			order.Status = models.OrderExpired
			order.UpdatedAt = now
			ids = append(ids, id)
		}
	}
	return ids
}

// DeleteCreatedBefore removes every order created before cutoff,
// regardless of status, and returns how many were removed.
func (l *Ledger) DeleteCreatedBefore(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, order := range l.orders {
		if order.CreatedAt.Before(cutoff) {
			l.delete(id)
			removed++
		}
	}
	return removed
}

func (l *Ledger) ListOrders() []*models.Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*models.Order, 0, len(l.orders))
	for _, order := range l.orders {
		out = append(out, order.Clone())
	}
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.orders)
}

func (l *Ledger) delete(orderID string) bool {
	order, ok := l.orders[orderID]
	if !ok {
		return false
	}
	l.unindex(order)
	delete(l.orders, orderID)
	return true
}

func (l *Ledger) index(order *models.Order) {
	if order.GatewayTransactionID == "" {
		return
	}
	// Keep the mapping 1:1: a gateway id moving to a new order leaves the
	// old order reachable by its own id only.
	if prevID, ok := l.byGateway[order.GatewayTransactionID]; ok && prevID != order.OrderID {
		if prev, ok := l.orders[prevID]; ok {
			prev.GatewayTransactionID = ""
		}
	}
	l.byGateway[order.GatewayTransactionID] = order.OrderID
}

func (l *Ledger) unindex(order *models.Order) {
	if order.GatewayTransactionID == "" {
		return
	}
	if l.byGateway[order.GatewayTransactionID] == order.OrderID {
		delete(l.byGateway, order.GatewayTransactionID)
	}
}
