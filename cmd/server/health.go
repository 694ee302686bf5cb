package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/frodan/league-exchange/internal/logger"
)

const healthTimeout = 2 * time.Second

// dependency is a backing service checked by /health.
type dependency struct {
	name string
	ping func(ctx context.Context) error
}

type healthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// healthHandler answers 200 when every dependency responds and 503 otherwise.
func healthHandler(deps []dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Service: logger.Service}
		code := http.StatusOK
		for _, dep := range deps {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(deps))
			}
			if err := dep.ping(ctx); err != nil {
				resp.Checks[dep.name] = "unavailable"
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[dep.name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(resp)
	}
}
