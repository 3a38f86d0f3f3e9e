// notify-sink is a stand-in for the counterpart notification service during
// local development: it accepts every delivery and logs it.
package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/orbitrade/finance-backend/internal/logging"
)

func main() {
	logging.Init("notify-sink", "info", os.Getenv("APP_ENV"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	})
	mux.HandleFunc("POST /notify", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		slog.Info("notification received",
			"event_id", r.Header.Get("X-Event-ID"),
			"payload", string(body),
		)
		w.WriteHeader(http.StatusAccepted)
	})

	slog.Info("notify sink started", "addr", ":8081")
	if err := http.ListenAndServe(":8081", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
