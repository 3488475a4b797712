package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"PixRelay/internal/events"
	"PixRelay/internal/gateway"
	"PixRelay/internal/payments"
	"PixRelay/internal/services"
	"PixRelay/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const webhookAck = "Webhook received"

type Handler struct {
	Orders     *services.OrderService
	Reconciler *payments.Reconciler
	Hub        *events.Hub
	Validate   *validator.Validate
	Logger     *slog.Logger
	IPEchoURL  string
	HTTPClient *http.Client
}

type checkStatusResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

func NewHandler(orders *services.OrderService, reconciler *payments.Reconciler, hub *events.Hub, logger *slog.Logger, ipEchoURL string) *Handler {
	return &Handler{
		Orders:     orders,
		Reconciler: reconciler,
		Hub:        hub,
		Validate:   validator.New(),
		Logger:     logger,
		IPEchoURL:  ipEchoURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req services.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "invalid json body", err.Error())
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "amount, email and name are required", validationErrorsToMap(err))
		return
	}

	res, err := h.Orders.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeCreateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) writeCreateError(w http.ResponseWriter, err error) {
	var apiErr *gateway.APIError
	switch {
	case errors.Is(err, services.ErrMissingAmount), errors.Is(err, services.ErrAmountTooLow), errors.Is(err, services.ErrInvalidAmount):
		writeErrorDetails(w, http.StatusBadRequest, "invalid amount", err.Error())
	case errors.As(err, &apiErr):
		h.Logger.Warn("gateway rejected transaction", "status", apiErr.StatusCode, "body", apiErr.Body)
		writeJSON(w, apiErr.StatusCode, errorResponse{
			Error:      "payment gateway error",
			Details:    relayBody(apiErr.Body),
			HTTPStatus: apiErr.StatusCode,
		})
	case errors.Is(err, gateway.ErrMalformedResponse):
		h.Logger.Error("gateway response without pix data", "err", err)
		writeErrorDetails(w, http.StatusBadGateway, "payment gateway error", err.Error())
	default:
		h.Logger.Error("gateway request failed", "err", err)
		writeErrorDetails(w, http.StatusBadGateway, "payment gateway unreachable", err.Error())
	}
}

// relayBody keeps a JSON upstream body structured and falls back to text.
func relayBody(body string) any {
	if json.Valid([]byte(body)) {
		return json.RawMessage(body)
	}
	return body
}

// Webhook acknowledges every syntactically valid notification. Misses and
// forward failures are the reconciler's concern, never the sender's.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "invalid json body", err.Error())
		return
	}

	n := parseNotification(body)
	out := h.Reconciler.Apply(r.Context(), n)
	h.Logger.Info("webhook processed",
		"event", n.Event,
		"gateway_id", n.GatewayID,
		"order_id", out.OrderID,
		"status", out.Status,
		"matched", out.Matched,
		"changed", out.Changed,
		"forwarded", out.Forwarded,
	)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, webhookAck)
}

func (h *Handler) CheckOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	status, err := h.Orders.CheckStatus(r.Context(), orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "check status failed")
		return
	}
	writeJSON(w, http.StatusOK, checkStatusResponse{Success: true, Status: string(status)})
}

// OrderStream upgrades to a websocket that pushes status changes of one order.
func (h *Handler) OrderStream(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	order, err := h.Orders.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get order failed")
		return
	}
	h.Hub.ServeWS(w, r, orderID, order.Status)
}

func (h *Handler) ServerIP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.IPEchoURL, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "bad ip echo url")
		return
	}
	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		writeErrorDetails(w, http.StatusBadGateway, "ip lookup failed", err.Error())
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "PixRelay is running")
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "orders": h.Orders.Store.Len()})
}
