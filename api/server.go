package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/padlink/padlink/relay/session"
	"github.com/padlink/padlink/transport/websocket"
)

// Server is the HTTP surface of the relay: the session endpoints the
// front-end pages call, the websocket upgrade route, metrics, and
// static file serving.
type Server struct {
	registry  *session.Registry
	ws        *websocket.Handler
	router    *mux.Router
	staticDir string
	log       *zap.Logger
}

// NewServer creates the HTTP server around registry and ws. staticDir
// is the directory the front-end pages are served from.
func NewServer(registry *session.Registry, ws *websocket.Handler, staticDir string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		registry:  registry,
		ws:        ws,
		router:    mux.NewRouter(),
		staticDir: staticDir,
		log:       log,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/create-session", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/session/{id}", s.handleGetSession).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler())

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Front-end pages: the controller page for phones, the game page
	// and its assets at the root.
	s.router.HandleFunc("/controller", s.handleControllerPage).Methods("GET")
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Create()

	respondJSON(w, http.StatusCreated, map[string]string{
		"sessionId": sess.ID(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	sess, err := s.registry.Get(sessionID)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"exists":      false,
			"games":       0,
			"controllers": 0,
		})
		return
	}

	controllers, games := sess.Counts()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"exists":      true,
		"games":       games,
		"controllers": controllers,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.registry.List()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt().After(sessions[j].CreatedAt())
	})

	infos := make([]map[string]interface{}, 0, len(sessions))
	for _, sess := range sessions {
		controllers, games := sess.Counts()
		infos = append(infos, map[string]interface{}{
			"sessionId":   sess.ID(),
			"controllers": controllers,
			"games":       games,
			"createdAt":   sess.CreatedAt().Format(time.RFC3339),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(infos),
		"sessions": infos,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.ws.ServeWS(w, r)
}

// Static pages

func (s *Server) handleControllerPage(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.staticDir, "controller.html"))
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
