package health

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	applog "github.com/janisto/greeting-service/internal/platform/logging"
)

// Response is the payload for the health endpoint.
type Response struct {
	Status          string `json:"status"`
	GreetingsServed int64  `json:"greetingsServed"`
}

// Counter reports how many greetings have been issued.
type Counter interface {
	Issued() int64
}

// Handler returns a plain HTTP handler for the health check endpoint.
// Reading the count does not take a greeting id.
func Handler(c Counter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var served int64
		if c != nil {
			served = c.Issued()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(Response{Status: "healthy", GreetingsServed: served}); err != nil {
			applog.LogWarn(r.Context(), "failed to write health response", zap.Error(err))
		}
	}
}
