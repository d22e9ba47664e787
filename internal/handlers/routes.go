package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sdko-org/get2put/internal/config"
	"github.com/sdko-org/get2put/internal/metrics"
)

// RegisterRoutes wires the operational endpoints first so the catch-all
// relay route does not shadow them.
// A nil op leaves the operator views unregistered.
func RegisterRoutes(r *mux.Router, cfg *config.Config, rh *RelayHandler, m *metrics.Metrics, op *OperatorHandler) {
	r.HandleFunc("/healthz", HandleHealth).Methods(http.MethodGet)
	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}
	if op != nil {
		r.HandleFunc("/tunnels/{id:[0-9]+}", op.GetTunnel).Methods(http.MethodGet)
		r.HandleFunc("/journal", op.RecentJournal).Methods(http.MethodGet)
	}

	relay := SessionMiddleware(cfg.SessionCookie, cfg.SessionTTL)(rh)
	r.Handle("/{path:.*}", relay).Methods(http.MethodGet)
}
