package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/emporia-labs/emporia-backend/internal/router"
)

// New mounts one reverse proxy per route. The prefix is stripped before the
// remaining path is joined onto the upstream URL.
func New(routes []Route, origins []string, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(router.CORSOptions(origins)))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		mounted := make([]string, len(routes))
		for i, rt := range routes {
			mounted[i] = rt.Prefix
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "OK",
			"data":    map[string]any{"service": "gateway", "routes": mounted},
		})
	})

	for _, rt := range routes {
		prefix := "/" + rt.Prefix
		r.Mount(prefix, http.StripPrefix(prefix, newProxy(rt, log)))
		log.Info("route mounted", "prefix", prefix, "upstream", rt.Upstream.String())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})

	return r
}

func newProxy(rt Route, log *slog.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(rt.Upstream)
			pr.SetXForwarded()
			if !strings.HasPrefix(pr.In.Header.Get("Content-Type"), "multipart/") {
				pr.Out.Header.Set("Content-Type", "application/json")
			}
		},
		// The gateway's own CORS headers are the only ones the client sees.
		ModifyResponse: func(resp *http.Response) error {
			for name := range resp.Header {
				if strings.HasPrefix(http.CanonicalHeaderKey(name), "Access-Control-") {
					resp.Header.Del(name)
				}
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.ErrorContext(r.Context(), "upstream request failed",
				"prefix", rt.Prefix,
				"upstream", rt.Upstream.String(),
				"path", r.URL.Path,
				"error", err,
			)
			writeError(w, http.StatusBadGateway, "Upstream service unavailable")
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}
