package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"neighbor-storage-backend/internal/metrics"
	"neighbor-storage-backend/internal/security"
	"neighbor-storage-backend/internal/service"
)

// Services are the application services exposed over HTTP.
type Services struct {
	Auth    service.AuthService
	Users   service.UserService
	Items   service.ItemService
	Rentals service.RentalService
	Ledger  service.LedgerService
	Chat    service.ChatService
	Reviews service.ReviewService
	Admin   service.AdminService
}

type RouterOptions struct {
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	// Ping reports storage health for /healthz.
	Ping func(ctx context.Context) error
}

// NewRouter wires every route, its security middleware and CORS.
func NewRouter(svc Services, tm security.TokenManager, opts RouterOptions) http.Handler {
	r := mux.NewRouter()
	r.Use(accessLog(opts.Metrics), NewAuthMiddleware(tm).Handler)

	r.HandleFunc("/healthz", healthHandler(opts.Ping)).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	auth := NewAuthHandler(svc.Auth, svc.Users)
	api.HandleFunc("/auth/signup", auth.Signup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", auth.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", auth.Me).Methods(http.MethodGet)
	api.HandleFunc("/auth/profile", auth.UpdateProfile).Methods(http.MethodPut)

	wallet := NewWalletHandler(svc.Ledger)
	api.HandleFunc("/wallet", wallet.Get).Methods(http.MethodGet)
	api.HandleFunc("/wallet/topup", wallet.TopUp).Methods(http.MethodPost)
	api.HandleFunc("/wallet/withdraw", wallet.Withdraw).Methods(http.MethodPost)

	items := NewItemHandler(svc.Items, svc.Reviews)
	api.HandleFunc("/items", items.List).Methods(http.MethodGet)
	api.HandleFunc("/items", items.Create).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}", items.Get).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}", items.UpdateTerms).Methods(http.MethodPut)
	api.HandleFunc("/items/{id}", items.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/items/{id}/reviews", items.Reviews).Methods(http.MethodGet)

	rentals := NewRentalHandler(svc.Rentals, svc.Reviews)
	api.HandleFunc("/rentals", rentals.Create).Methods(http.MethodPost)
	api.HandleFunc("/rentals", rentals.List).Methods(http.MethodGet)
	api.HandleFunc("/rentals/{id}", rentals.Get).Methods(http.MethodGet)
	api.HandleFunc("/rentals/{id}/status", rentals.UpdateStatus).Methods(http.MethodPut)
	api.HandleFunc("/rentals/{id}/reviews", rentals.Review).Methods(http.MethodPost)

	chat := NewChatHandler(svc.Chat)
	api.HandleFunc("/chat/rooms", chat.ListRooms).Methods(http.MethodGet)
	api.HandleFunc("/chat/rooms", chat.OpenRoom).Methods(http.MethodPost)
	api.HandleFunc("/chat/rooms/{id}/messages", chat.ListMessages).Methods(http.MethodGet)
	api.HandleFunc("/chat/rooms/{id}/messages", chat.SendMessage).Methods(http.MethodPost)

	admin := NewAdminHandler(svc.Admin)
	api.HandleFunc("/admin/stats", admin.Stats).Methods(http.MethodGet)
	api.HandleFunc("/admin/reconciliation", admin.Reconciliation).Methods(http.MethodGet)
	api.HandleFunc("/admin/users/{id}/ban", admin.SetBanned).Methods(http.MethodPut)
	api.HandleFunc("/admin/items/{id}", admin.DeleteItem).Methods(http.MethodDelete)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	})
	return recovery(requestID(corsHandler(r)))
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
