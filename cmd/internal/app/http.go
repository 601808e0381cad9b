package app

import (
	"net/http"
	"time"

	"lodge/cmd/internal/web"

	"github.com/jackc/pgx/v5/pgxpool"
)

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	dbPool *pgxpool.Pool,
	metrics *Metrics,
	site *web.Handler,
) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if dbPool == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}
		if err := PingDB(r.Context(), dbPool, 2*time.Second); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			log.Info("readyz.db.not_ready", "err", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("GET /metrics", metrics.Handler())

	site.Register(mux)
}
