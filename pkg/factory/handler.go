package factory

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carebridgehq/comms/pkg/comms"
)

// healthResponse is the operator-facing health report.
type healthResponse struct {
	Healthy  bool           `json:"healthy"`
	Adapters map[string]any `json:"adapters"`
}

// HealthHandler returns an HTTP handler for operator health queries:
//
//	GET /health              all cached adapters, 503 when any is unhealthy
//	GET /health/{type}/{org} one adapter, 404 when it has never been checked
func (f *Factory) HealthHandler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		all := f.Health()

		resp := healthResponse{Healthy: true, Adapters: make(map[string]any, len(all))}
		for key, hr := range all {
			resp.Adapters[key] = hr
			if !hr.Healthy {
				resp.Healthy = false
			}
		}

		status := http.StatusOK
		if !resp.Healthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	})

	r.Get("/health/{type}/{org}", func(w http.ResponseWriter, req *http.Request) {
		t := comms.ChannelType(chi.URLParam(req, "type"))
		org := chi.URLParam(req, "org")

		hr, ok := f.HealthFor(t, org)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "no health data for adapter",
			})
			return
		}

		status := http.StatusOK
		if !hr.Healthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, hr)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
