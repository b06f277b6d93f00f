package api

import (
	"net/http"
	"time"

	"github.com/ignite/talent-bridge/internal/pkg/httputil"
)

var startedAt = time.Now()

// HandleHealth is the liveness endpoint.
// GET /health
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(startedAt).Round(time.Second).String(),
		"service": "talent-bridge",
	})
}
