package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	Router *chi.Mux
}

func NewServer(handler *Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors)

	r.Get("/", handler.Root)
	r.Get("/health", handler.Health)
	r.Get("/my-server-ip", handler.ServerIP)

	r.Post("/create-payment", handler.CreatePayment)
	r.Get("/check-order-status", handler.CheckOrderStatus)
	r.Post("/webhook/buckpay", handler.Webhook)
	r.Get("/ws/orders/{orderId}", handler.OrderStream)

	return &Server{Router: r}
}
