package store

import (
	"errors"
	"testing"
	"time"

	"PixRelay/internal/models"
)

func newOrder(id, gatewayID string, createdAt time.Time) *models.Order {
	return &models.Order{
		OrderID:              id,
		GatewayTransactionID: gatewayID,
		Status:               models.OrderPending,
		TotalAmount:          1000,
		CreatedAt:            createdAt,
		UpdatedAt:            createdAt,
	}
}

func TestPutGetDelete(t *testing.T) {
	l := New()
	now := time.Now()
	l.PutOrder(newOrder("o1", "gw_1", now))

	got, err := l.GetOrder("o1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.GatewayTransactionID != "gw_1" || got.Status != models.OrderPending {
		t.Fatalf("unexpected order: %+v", got)
	}

	id, ok := l.ResolveByGatewayID("gw_1")
	if !ok || id != "o1" {
		t.Fatalf("expected gw_1 -> o1, got %q %v", id, ok)
	}

	if !l.DeleteOrder("o1") {
		t.Fatalf("expected delete to report removal")
	}
	if _, err := l.GetOrder("o1"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, ok := l.ResolveByGatewayID("gw_1"); ok {
		t.Fatalf("index entry survived delete")
	}
	if l.DeleteOrder("o1") {
		t.Fatalf("second delete should be a no-op")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	l := New()
	l.PutOrder(newOrder("o1", "", time.Now()))

	got, _ := l.GetOrder("o1")
	got.Status = models.OrderPaid
	got.NotifiedStatuses[models.OrderPaid] = true

	again, _ := l.GetOrder("o1")
	if again.Status != models.OrderPending || again.Notified(models.OrderPaid) {
		t.Fatalf("mutating a returned order leaked into the ledger: %+v", again)
	}
}

func TestResolvePrecedence(t *testing.T) {
	l := New()
	now := time.Now()
	l.PutOrder(newOrder("o1", "gw_1", now))
	l.PutOrder(newOrder("o2", "gw_2", now))

	if id, ok := l.Resolve("gw_1", "o2"); !ok || id != "o1" {
		t.Fatalf("gateway id should win, got %q", id)
	}
	if id, ok := l.Resolve("gw_unknown", "o2"); !ok || id != "o2" {
		t.Fatalf("expected fallback to own id, got %q", id)
	}
	if _, ok := l.Resolve("gw_unknown", "o_unknown"); ok {
		t.Fatalf("expected miss")
	}
	if _, ok := l.Resolve("", ""); ok {
		t.Fatalf("expected miss for empty references")
	}
}

func TestPutReplacesIndex(t *testing.T) {
	l := New()
	now := time.Now()
	l.PutOrder(newOrder("o1", "gw_old", now))
	l.PutOrder(newOrder("o1", "gw_new", now))

	if _, ok := l.ResolveByGatewayID("gw_old"); ok {
		t.Fatalf("stale gateway id still indexed")
	}
	if id, ok := l.ResolveByGatewayID("gw_new"); !ok || id != "o1" {
		t.Fatalf("new gateway id not indexed")
	}
}

func TestGatewayIDStaysOneToOne(t *testing.T) {
	l := New()
	now := time.Now()
	l.PutOrder(newOrder("o1", "gw_1", now))
	l.PutOrder(newOrder("o2", "gw_1", now))

	if id, _ := l.ResolveByGatewayID("gw_1"); id != "o2" {
		t.Fatalf("expected gw_1 -> o2, got %q", id)
	}
	o1, _ := l.GetOrder("o1")
	if o1.GatewayTransactionID != "" {
		t.Fatalf("o1 still claims gw_1")
	}

	// deleting o1 must not drop o2's mapping
	l.DeleteOrder("o1")
	if id, ok := l.ResolveByGatewayID("gw_1"); !ok || id != "o2" {
		t.Fatalf("o2 mapping lost")
	}
}

func TestUpdateOrderReindexes(t *testing.T) {
	l := New()
	l.PutOrder(newOrder("o1", "", time.Now()))

	updated, err := l.UpdateOrder("o1", func(o *models.Order) {
		o.GatewayTransactionID = "gw_9"
		o.Status = models.OrderPaid
		o.OrderID = "hijack"
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.OrderID != "o1" || updated.Status != models.OrderPaid {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if id, ok := l.ResolveByGatewayID("gw_9"); !ok || id != "o1" {
		t.Fatalf("gateway id set by update not indexed")
	}

	if _, err := l.UpdateOrder("missing", func(*models.Order) {}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestMarkNotified(t *testing.T) {
	l := New()
	l.PutOrder(newOrder("o1", "", time.Now()))

	if err := l.MarkNotified("o1", models.OrderPaid); err != nil {
		t.Fatalf("mark: %v", err)
	}
	got, _ := l.GetOrder("o1")
	if !got.Notified(models.OrderPaid) {
		t.Fatalf("paid not recorded")
	}
	if !got.Notified("approved") || !got.Notified("completed") {
		t.Fatalf("paid aliases must share the notified slot")
	}
	if err := l.MarkNotified("o1", "COMPLETED"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := l.MarkNotified("nope", models.OrderPaid); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestMarkExpiredAndDeleteCreatedBefore(t *testing.T) {
	l := New()
	now := time.Now()
	old := now.Add(-time.Hour)

	l.PutOrder(newOrder("old-pending", "gw_a", old))
	paid := newOrder("old-paid", "gw_b", old)
	paid.Status = models.OrderPaid
	l.PutOrder(paid)
	l.PutOrder(newOrder("fresh", "gw_c", now))

	ids := l.MarkExpired(now.Add(-30*time.Minute), now)
	if len(ids) != 1 || ids[0] != "old-pending" {
		t.Fatalf("expected only old-pending expired, got %v", ids)
	}
	got, _ := l.GetOrder("old-paid")
	if got.Status != models.OrderPaid {
		t.Fatalf("terminal order touched by MarkExpired")
	}

	removed := l.DeleteCreatedBefore(now.Add(-30 * time.Minute))
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 order left, got %d", l.Len())
	}
	for _, gw := range []string{"gw_a", "gw_b"} {
		if _, ok := l.ResolveByGatewayID(gw); ok {
			t.Fatalf("dangling index entry %s", gw)
		}
	}
	if len(l.ListOrders()) != 1 {
		t.Fatalf("ListOrders disagrees with Len")
	}
}
