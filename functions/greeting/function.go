// Package greeting serves the greeting endpoint as an HTTP Cloud Function.
//
// Each function instance keeps its own counter, so ids are unique and
// sequential per instance only.
package greeting

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
)

const (
	defaultName = "World"
	template    = "Hello, %s!"
)

func init() {
	functions.HTTP("Greeting", newHandler(new(atomic.Int64)))
}

// Response is the greeting payload.
type Response struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

type errorResponse struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
}

func newHandler(counter *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeJSON(w, http.StatusMethodNotAllowed, "application/problem+json", errorResponse{
				Title:  http.StatusText(http.StatusMethodNotAllowed),
				Status: http.StatusMethodNotAllowed,
			})
			return
		}

		name := r.URL.Query().Get("name")
		if name == "" {
			name = defaultName
		}
		writeJSON(w, http.StatusOK, "application/json", Response{
			ID:      counter.Add(1),
			Content: fmt.Sprintf(template, name),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
