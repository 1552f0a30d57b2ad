package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/benbjohnson/clock"

	"github.com/DoyleJ11/live-poll-backend/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

const Version = "0.3.0"

func Banner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("live-poll-backend " + Version + " is running\n"))
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func Health(clk clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status    string `json:"status"`
			Timestamp string `json:"timestamp"`
		}{Status: "ok", Timestamp: clk.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")})
	}
}

// Results serves the last committed session view.
func Results(s *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Snapshot())
	}
}
