//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/monmat/order-manager/internal/order"
	"github.com/monmat/order-manager/internal/repository"
)

type OrderService interface {
	CreateOrder(ctx context.Context, cmd *order.CreateOrderCommand) (*repository.Order, error)
	PatchOrder(ctx context.Context, id uuid.UUID, patch *order.PatchOrderCommand) (*repository.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*repository.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]*repository.Order, error)
}

type UserRepo interface {
	ValidateUser(ctx context.Context, username, password string) (bool, error)
}

type Server struct {
	orders   OrderService
	userRepo UserRepo
	log      *zap.Logger
	server   *http.Server
}

func New(orders OrderService, userRepo UserRepo, log *zap.Logger) *Server {
	return &Server{
		orders:   orders,
		userRepo: userRepo,
		log:      log,
	}
}

func (s *Server) Run(port string) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("server starting", zap.String("port", port))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/orders", s.handleListOrders)
	api.HandleFunc("POST /api/orders", s.handleCreateOrder)
	api.HandleFunc("GET /api/orders/{uuid}", s.handleGetOrder)
	api.HandleFunc("PATCH /api/orders/{uuid}", s.handlePatchOrder)

	root := http.NewServeMux()
	root.Handle("/api/", s.basicAuthMiddleware(api))
	root.Handle("GET /metrics", promhttp.Handler())

	return root
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		valid, err := s.userRepo.ValidateUser(r.Context(), username, password)
		if err != nil || !valid {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
