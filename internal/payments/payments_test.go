package payments

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"PixRelay/internal/models"
	"PixRelay/internal/pricing"
	"PixRelay/internal/store"
)

type forwardCall struct {
	OrderID string
	Status  models.OrderStatus
	Order   *models.Order
}

type fakeForwarder struct {
	ok    bool
	calls []forwardCall
}

func (f *fakeForwarder) Forward(_ context.Context, orderID string, status models.OrderStatus, order *models.Order) bool {
	f.calls = append(f.calls, forwardCall{OrderID: orderID, Status: status, Order: order})
	return f.ok
}

type fakeNotifier struct {
	changes []string
}

func (f *fakeNotifier) OrderStatusChanged(_ context.Context, orderID string, status models.OrderStatus) {
	f.changes = append(f.changes, orderID+":"+string(status))
}

func newTestReconciler(ok bool) (*Reconciler, *store.Ledger, *fakeForwarder, *fakeNotifier) {
	st := store.New()
	fwd := &fakeForwarder{ok: ok}
	notifier := &fakeNotifier{}
	r := NewReconciler(st, fwd, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return r, st, fwd, notifier
}

func seedPending(st *store.Ledger, orderID, gatewayID string) {
	now := time.Now()
	st.PutOrder(&models.Order{
		OrderID:              orderID,
		GatewayTransactionID: gatewayID,
		Status:               models.OrderPending,
		TotalAmount:          1000,
		Customer:             models.Customer{Name: "Jane", Email: "a@b.com"},
		Product:              models.Product{ID: "p1", Name: "Ebook"},
		CreatedAt:            now,
		UpdatedAt:            now,
	})
}

func paidNotification(gatewayID string) models.Notification {
	return models.Notification{
		Event:     "transaction.processed",
		GatewayID: gatewayID,
		Status:    models.OrderPaid,
		Amount:    pricing.NewCents(1000),
		Fee:       pricing.NewCents(200),
	}
}

func TestApply_PaidWebhookUpdatesLedgerAndForwards(t *testing.T) {
	r, st, fwd, notifier := newTestReconciler(true)
	seedPending(st, "o1", "gw_1")

	out := r.Apply(context.Background(), paidNotification("gw_1"))
	if !out.Matched || !out.Changed || !out.Forwarded || out.OrderID != "o1" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	order, _ := st.GetOrder("o1")
	if order.Status != models.OrderPaid || order.TotalAmount != 1000 || order.GatewayFee != 200 {
		t.Fatalf("ledger not updated: %+v", order)
	}
	if !order.Notified(models.OrderPaid) {
		t.Fatalf("paid not recorded as notified")
	}
	if len(fwd.calls) != 1 {
		t.Fatalf("expected 1 forward, got %d", len(fwd.calls))
	}
	sent := fwd.calls[0].Order
	if pricing.Commission(sent.TotalAmount, sent.GatewayFee, true) != 800 {
		t.Fatalf("expected commission 800 from forwarded snapshot")
	}
	if len(notifier.changes) != 1 || notifier.changes[0] != "o1:paid" {
		t.Fatalf("unexpected status fan-out %v", notifier.changes)
	}
}

func TestApply_DuplicatePaidForwardsOnce(t *testing.T) {
	r, st, fwd, _ := newTestReconciler(true)
	seedPending(st, "o1", "gw_1")

	r.Apply(context.Background(), paidNotification("gw_1"))
	out := r.Apply(context.Background(), paidNotification("gw_1"))

	if out.Changed || out.Forwarded {
		t.Fatalf("duplicate paid must be suppressed, got %+v", out)
	}
	if len(fwd.calls) != 1 {
		t.Fatalf("expected exactly 1 forward, got %d", len(fwd.calls))
	}
}

func TestApply_DuplicatePaidRetriedAfterFailedForward(t *testing.T) {
	r, st, fwd, _ := newTestReconciler(false)
	seedPending(st, "o1", "gw_1")

	first := r.Apply(context.Background(), paidNotification("gw_1"))
	if first.Forwarded {
		t.Fatalf("forward should have failed")
	}
	order, _ := st.GetOrder("o1")
	if order.Status != models.OrderPaid {
		t.Fatalf("status must track gateway even when forwarding fails")
	}
	if order.Notified(models.OrderPaid) {
		t.Fatalf("failed forward must not set the notified flag")
	}

	fwd.ok = true
	second := r.Apply(context.Background(), paidNotification("gw_1"))
	if second.Changed || !second.Forwarded {
		t.Fatalf("expected retry forward on unchanged paid status, got %+v", second)
	}
	if len(fwd.calls) != 2 {
		t.Fatalf("expected 2 forward attempts, got %d", len(fwd.calls))
	}

	third := r.Apply(context.Background(), paidNotification("gw_1"))
	if third.Forwarded || len(fwd.calls) != 2 {
		t.Fatalf("no forward expected once paid was notified")
	}
}

func TestApply_StatusChangeAlwaysForwards(t *testing.T) {
	r, st, fwd, _ := newTestReconciler(true)
	seedPending(st, "o1", "gw_1")

	n := models.Notification{GatewayID: "gw_1", Status: models.OrderRefunded}
	out := r.Apply(context.Background(), n)
	if !out.Changed || !out.Forwarded {
		t.Fatalf("refund must forward, got %+v", out)
	}
	if len(fwd.calls) != 1 || fwd.calls[0].Status != models.OrderRefunded {
		t.Fatalf("unexpected forwards %+v", fwd.calls)
	}
}

func TestApply_PaidNeverForwardedTwiceAcrossChanges(t *testing.T) {
	r, st, fwd, _ := newTestReconciler(true)
	seedPending(st, "o1", "gw_1")

	r.Apply(context.Background(), paidNotification("gw_1"))
	r.Apply(context.Background(), models.Notification{GatewayID: "gw_1", Status: models.OrderRefunded})
	out := r.Apply(context.Background(), paidNotification("gw_1"))

	if !out.Changed || out.Forwarded {
		t.Fatalf("refunded -> paid changes the ledger but paid was already sent, got %+v", out)
	}
	order, _ := st.GetOrder("o1")
	if order.Status != models.OrderPaid {
		t.Fatalf("ledger must still follow the gateway, got %s", order.Status)
	}
	if len(fwd.calls) != 2 {
		t.Fatalf("expected 2 forwards, got %d", len(fwd.calls))
	}
}

func TestApply_RepeatedNonPaidStatusDropped(t *testing.T) {
	r, st, fwd, _ := newTestReconciler(true)
	seedPending(st, "o1", "gw_1")

	out := r.Apply(context.Background(), models.Notification{GatewayID: "gw_1", Status: models.OrderPending})
	if out.Changed || out.Forwarded || len(fwd.calls) != 0 {
		t.Fatalf("repeated pending must not forward, got %+v", out)
	}
}

func TestApply_FallsBackToExternalID(t *testing.T) {
	r, st, _, _ := newTestReconciler(true)
	seedPending(st, "o1", "")

	n := paidNotification("gw_new")
	n.ExternalID = "o1"
	out := r.Apply(context.Background(), n)
	if !out.Matched || out.OrderID != "o1" {
		t.Fatalf("expected match by external id, got %+v", out)
	}
	if id, ok := st.ResolveByGatewayID("gw_new"); !ok || id != "o1" {
		t.Fatalf("gateway id learned from webhook not indexed")
	}
}

func TestApply_MergeRules(t *testing.T) {
	r, st, _, _ := newTestReconciler(true)
	seedPending(st, "o1", "gw_1")

	n := models.Notification{
		GatewayID: "gw_1",
		Status:    models.OrderPending,
		Amount:    pricing.Cents{},
		Fee:       pricing.NewCents(150),
		Product:   models.Product{ID: "p2", Name: "Course"},
		Tracking:  models.Tracking{"utm_source": "ig"},
	}
	r.Apply(context.Background(), n)

	order, _ := st.GetOrder("o1")
	if order.TotalAmount != 1000 {
		t.Fatalf("invalid amount must keep previous value, got %d", order.TotalAmount)
	}
	if order.GatewayFee != 150 {
		t.Fatalf("expected fee 150, got %d", order.GatewayFee)
	}
	if order.Customer.Name != "Jane" {
		t.Fatalf("empty customer must not overwrite, got %+v", order.Customer)
	}
	if order.Product.ID != "p2" {
		t.Fatalf("non-empty product must overwrite, got %+v", order.Product)
	}
	if order.Tracking["utm_source"] != "ig" {
		t.Fatalf("tracking not merged")
	}
}

func TestApply_UnknownOrderPaidForwardsFromWebhook(t *testing.T) {
	r, st, fwd, notifier := newTestReconciler(true)

	n := paidNotification("gw_x")
	n.Customer = models.Customer{Name: "Ana", Email: "ana@x.com"}
	out := r.Apply(context.Background(), n)

	if out.Matched || !out.Forwarded {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(fwd.calls) != 1 {
		t.Fatalf("expected exactly 1 forward, got %d", len(fwd.calls))
	}
	call := fwd.calls[0]
	if call.OrderID != "gw_x" || call.Order.TotalAmount != 1000 || call.Order.Customer.Name != "Ana" {
		t.Fatalf("forward not built from webhook data: %+v", call)
	}
	if st.Len() != 0 {
		t.Fatalf("misses must not create ledger entries")
	}
	if len(notifier.changes) != 0 {
		t.Fatalf("misses must not fan out status changes")
	}
}

func TestApply_UnknownOrderOtherStatusDropped(t *testing.T) {
	r, _, fwd, _ := newTestReconciler(true)

	out := r.Apply(context.Background(), models.Notification{GatewayID: "gw_x", Status: models.OrderRefunded})
	if out.Matched || out.Forwarded || len(fwd.calls) != 0 {
		t.Fatalf("expected silent drop, got %+v", out)
	}
}

func TestApply_PaidAliasNotForwardedTwice(t *testing.T) {
	for _, alias := range []string{"approved", "completed", "APPROVED"} {
		t.Run(alias, func(t *testing.T) {
			r, st, fwd, _ := newTestReconciler(true)
			seedPending(st, "o1", "gw_1")

			r.Apply(context.Background(), paidNotification("gw_1"))
			n := paidNotification("gw_1")
			n.Status = models.ParseStatus(alias)
			out := r.Apply(context.Background(), n)

			if out.Forwarded {
				t.Fatalf("%s after paid must not forward again, got %+v", alias, out)
			}
			if len(fwd.calls) != 1 {
				t.Fatalf("expected 1 paid-family forward, got %d", len(fwd.calls))
			}
			order, _ := st.GetOrder("o1")
			if order.Status != n.Status {
				t.Fatalf("ledger must still follow the gateway, got %s", order.Status)
			}
		})
	}
}

func TestApply_UnknownPaidFallsBackToExternalID(t *testing.T) {
	r, _, fwd, _ := newTestReconciler(true)

	n := paidNotification("")
	n.ExternalID = "o-ext"
	out := r.Apply(context.Background(), n)
	if !out.Forwarded || len(fwd.calls) != 1 || fwd.calls[0].OrderID != "o-ext" {
		t.Fatalf("expected forward keyed by external id, got %+v %+v", out, fwd.calls)
	}
}

func TestApply_UnknownPaidWithoutAnyIDDropped(t *testing.T) {
	r, _, fwd, _ := newTestReconciler(true)

	out := r.Apply(context.Background(), paidNotification(""))
	if out.Forwarded || len(fwd.calls) != 0 {
		t.Fatalf("paid without ids must not forward an empty orderId, got %+v", out)
	}
}
