package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xb1002/FactorFrameworkV2/internal/api/handlers"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

// RouterDeps carries what the router mounts. Metrics and Limiter are optional.
type RouterDeps struct {
	Factors *handlers.FactorHandler
	Metrics http.Handler
	Limiter *Limiter
	Logger  *logger.Logger
}

// NewRouter creates and configures the HTTP router
func NewRouter(d RouterDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics).Methods("GET")
	}

	// API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/evaluators", d.Factors.ListEvaluators).Methods("GET")
	api.HandleFunc("/factors", d.Factors.ListFactors).Methods("GET")
	api.HandleFunc("/factors/{name}", d.Factors.GetFactor).Methods("GET")
	api.HandleFunc("/evaluate", d.Factors.Evaluate).Methods("POST")
	if d.Limiter != nil {
		api.Use(d.Limiter.Middleware)
	}

	// Apply middleware
	r.Use(loggingMiddleware(d.Logger))
	r.Use(recoveryMiddleware(d.Logger))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "factorlab-api",
	})
}
