// Package transport exposes the dashboard state over HTTP and WebSocket.
package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deploydesk/deploydesk/internal/storage"
	"github.com/deploydesk/deploydesk/pkg/types"
)

// DashboardAPI is what the transport needs from the app core.
type DashboardAPI interface {
	// State returns the current view state.
	State() types.ViewState

	// Deploy triggers the deploy command.
	Deploy() types.DeployResponse

	// Subscribe registers a view state listener for push updates.
	Subscribe() <-chan types.ViewState
}

// Server serves the dashboard API.
type Server struct {
	api       DashboardAPI
	history   storage.HistoryStore // optional
	logger    *slog.Logger
	startTime time.Time
	wsServer  *WebSocketServer

	corsAllowAll       bool
	corsAllowedOrigins []string
}

// NewServer creates the HTTP server and its WebSocket hub.
func NewServer(api DashboardAPI, history storage.HistoryStore, logger *slog.Logger, corsAllowedOrigins string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	wsServer := NewWebSocketServer(api, logger)
	wsServer.Start()

	s := &Server{
		api:       api,
		history:   history,
		logger:    logger,
		startTime: time.Now(),
		wsServer:  wsServer,
	}

	origins := strings.TrimSpace(corsAllowedOrigins)
	if origins == "" || origins == "*" {
		s.corsAllowAll = true
	} else {
		s.corsAllowedOrigins = strings.Split(origins, ",")
		for i, o := range s.corsAllowedOrigins {
			s.corsAllowedOrigins[i] = strings.TrimSpace(o)
		}
	}

	return s
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/state", s.corsMiddleware(s.handleState))
	mux.HandleFunc("/api/deploy", s.corsMiddleware(s.handleDeploy))
	mux.HandleFunc("/api/deployments", s.corsMiddleware(s.handleDeployments))
	mux.HandleFunc("/api/history", s.corsMiddleware(s.handleHistory))
	mux.HandleFunc("/ws", s.wsServer.Handler())

	mux.HandleFunc("/health", s.handleHealth)

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Stop shuts down the WebSocket hub.
func (s *Server) Stop() {
	s.wsServer.Stop()
}

// corsMiddleware adds CORS headers based on the configured allowed origins.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if s.corsAllowAll {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := false
			for _, o := range s.corsAllowedOrigins {
				if o == origin {
					allowed = true
					break
				}
			}
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// handleState returns the current view state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, s.api.State())
}

// handleDeploy triggers the deploy command. Precondition failures map to
// 422, a deploy already in flight to 409.
func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := s.api.Deploy()
	status := http.StatusAccepted
	if !resp.Accepted {
		// Submitting means a previous deploy is still in flight.
		if resp.State == types.CommandSubmitting {
			status = http.StatusConflict
		} else {
			status = http.StatusUnprocessableEntity
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// handleDeployments returns just the deployment list slice of the state.
func (s *Server) handleDeployments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, s.api.State().Deployments)
}

// handleHistory returns the session submission history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		writeJSON(w, []types.SubmissionRecord{})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.history.ListSubmissions(limit)
	if err != nil {
		s.logger.Error("failed to list submissions", slog.String("error", err.Error()))
		s.writeJSONError(w, "Failed to read history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, records)
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
