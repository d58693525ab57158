package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"safenet-risk-service/internal/interfaces/http/handler"
)

// Router wires the HTTP surface onto a ServeMux with method patterns
// and applies CORS headers on every response.
type Router struct {
	mux *http.ServeMux
}

func New(
	risk *handler.RiskHandler,
	challenges *handler.ChallengeHandler,
	alerts *handler.AlertHandler,
	health *handler.HealthHandler,
	registry *prometheus.Registry,
) *Router {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/risk/assess", risk.Assess)
	mux.HandleFunc("POST /api/v1/challenges/{transaction_id}/verify", challenges.Verify)
	mux.HandleFunc("POST /api/v1/challenges/{transaction_id}/resend", challenges.Resend)
	mux.HandleFunc("GET /api/v1/alerts", alerts.List)
	mux.HandleFunc("POST /api/v1/alerts/{id}/approve", alerts.Approve)
	mux.HandleFunc("POST /api/v1/alerts/{id}/reject", alerts.Reject)

	mux.HandleFunc("GET /healthz", health.Live)
	mux.HandleFunc("GET /readyz", health.Ready)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Router{mux: mux}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	rt.mux.ServeHTTP(w, r)
}
