package handler

import (
	"context"
	"net/http"
	"time"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health reports whether the service and its database are reachable.
func Health(service string, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"service": service, "database": "up"}
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				status["database"] = "down"
				respondJSON(w, http.StatusServiceUnavailable, Response{
					Success: false,
					Message: "Database unreachable",
					Data:    status,
				})
				return
			}
		}
		respondSuccess(w, http.StatusOK, "OK", status)
	}
}
