package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"sectland-backend/internal/security"
)

// NewRouter builds the API router with authentication applied to every
// /api/v1 route
func NewRouter(handler *LandHandler, tokens security.TokenManager) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(tokens))

	api.HandleFunc("/sects/{id}/land/claim", handler.Claim).Methods("POST")
	api.HandleFunc("/sects/{id}/land/bind", handler.Bind).Methods("POST")
	api.HandleFunc("/sects/{id}/land/expand", handler.Expand).Methods("POST")
	api.HandleFunc("/sects/{id}/land/shrink", handler.Shrink).Methods("POST")
	api.HandleFunc("/sects/{id}/land/delete", handler.Delete).Methods("POST")
	api.HandleFunc("/sects/{id}/land/transfer", handler.Transfer).Methods("POST")
	api.HandleFunc("/sects/{id}/land/pay", handler.Pay).Methods("POST")
	api.HandleFunc("/sects/{id}/land/status", handler.Status).Methods("GET")

	api.HandleFunc("/land/debts", handler.DebtReport).Methods("GET")
	api.HandleFunc("/land/stats", handler.SchedulerStats).Methods("GET")

	return router
}
