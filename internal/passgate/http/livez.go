package http

import (
	"net/http"
	"time"

	"github.com/passgate/passgate/pkg/httpx"
)

// healthResponse is the payload shared by the liveness and readiness probes.
type healthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *healthChecks `json:"checks,omitempty"`
}

type healthChecks struct {
	Database string `json:"database"`
}

// LivezHandler is the liveness probe. It returns 200 OK whenever the
// process is up, regardless of dependency health.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := healthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		}
		httpx.WriteJSON(w, http.StatusOK, response)
	}
}
