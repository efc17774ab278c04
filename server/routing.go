package server

import (
	"net/http"
	"strings"
)

// setupHTTPRoutes configures all HTTP handlers
func (s *Server) setupHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/generate-capabilities", s.corsMiddleware(s.HandleGenerate))
	mux.HandleFunc("/generate-capabilities/outline", s.corsMiddleware(s.HandleOutline))
	mux.HandleFunc("/ws/generate", s.corsMiddleware(s.HandleGenerateWS))
	mux.HandleFunc("/health", s.corsMiddleware(s.HandleHealth))
}

// corsMiddleware adds CORS headers for configured origins and answers preflight requests
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Run-ID, X-Warning-Count")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

// checkOrigin allows requests without an Origin header and origins that
// start with a configured allowed origin, so any port matches.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}
