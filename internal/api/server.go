package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/tabscout/internal/config"
	"github.com/bryanchriswhite/tabscout/internal/events"
	"github.com/bryanchriswhite/tabscout/internal/logger"
	"github.com/bryanchriswhite/tabscout/internal/tracker"
	"github.com/bryanchriswhite/tabscout/internal/window"
)

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	tracker   *tracker.Manager
	configMgr *config.Manager
	upgrader  websocket.Upgrader
	http      *http.Server
	log       *zerolog.Logger
}

// NewServer creates a new API server. configMgr may be nil.
func NewServer(t *tracker.Manager, configMgr *config.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		tracker:   t,
		configMgr: configMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: logger.WithComponent("api"),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Records
	api.HandleFunc("/windows", s.handleGetWindows).Methods("GET")
	api.HandleFunc("/windows/focused", s.handleGetFocused).Methods("GET")
	api.HandleFunc("/windows/{id}", s.handleGetWindow).Methods("GET")
	api.HandleFunc("/windows/{id}/tabs", s.handleGetTabs).Methods("GET")

	// Actions
	api.HandleFunc("/windows/{id}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/windows/{id}/resize", s.handleResize).Methods("POST")
	api.HandleFunc("/windows/{id}/{action}", s.handleAction).Methods("POST")
	api.HandleFunc("/discover", s.handleDiscover).Methods("POST")

	// Live updates
	api.HandleFunc("/events", s.handleEvents)

	// Diagnostics
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/debug/cache", s.handleDumpCache).Methods("GET")
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves the API until Shutdown is called
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", "http://localhost"+addr).Msg("Starting server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug().Err(err).Msg("Failed to write response")
	}
}

// writeError maps tracker errors onto HTTP statuses
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tracker.ErrStale):
		status = http.StatusGone
	case errors.Is(err, tracker.ErrNotRunning):
		status = http.StatusServiceUnavailable
	case errors.Is(err, tracker.ErrUnsupported):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, tracker.ErrActionFailed):
		status = http.StatusConflict
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// HTTP Handlers

func (s *Server) handleGetWindows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := window.Type(q.Get("type"))
	if typ != "" && typ != window.TypeWindow && typ != window.TypeTab {
		http.Error(w, fmt.Sprintf("unknown type %q", typ), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusOK, s.tracker.Windows(typ, q.Get("app")))
}

func (s *Server) handleGetFocused(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.tracker.Focused()
	if !ok {
		http.Error(w, "No window focused", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetWindow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, ok := s.tracker.Cache().Get(id)
	if !ok {
		s.writeError(w, fmt.Errorf("%w: %s", tracker.ErrNotFound, id))
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetTabs(w http.ResponseWriter, r *http.Request) {
	tabs, err := s.tracker.Tabs(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	if tabs == nil {
		tabs = []window.Record{}
	}
	s.writeJSON(w, http.StatusOK, tabs)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	action, ok := tracker.ParseAction(vars["action"])
	if !ok {
		http.Error(w, fmt.Sprintf("unknown action %q", vars["action"]), http.StatusNotFound)
		return
	}

	rec, err := s.tracker.Perform(vars["id"], action)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Debug().Str("id", vars["id"]).Str("action", string(action)).Msg("Action performed")
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.X == nil || req.Y == nil {
		http.Error(w, "x and y are required", http.StatusBadRequest)
		return
	}

	rec, err := s.tracker.Move(mux.Vars(r)["id"], *req.X, *req.Y)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		http.Error(w, "width and height must be positive", http.StatusBadRequest)
		return
	}

	rec, err := s.tracker.Resize(mux.Vars(r)["id"], req.Width, req.Height)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	res, err := s.tracker.Discover(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	updates := s.tracker.Subscribe()
	if updates == nil {
		http.Error(w, "live updates are disabled", http.StatusServiceUnavailable)
		return
	}
	defer s.tracker.Unsubscribe(updates)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	// A failed read means the client went away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.tracker.Unsubscribe(updates)
				return
			}
		}
	}()

	// Send the focused window first
	if rec, ok := s.tracker.Focused(); ok {
		initial := events.Event{Kind: events.KindFocusChanged, ID: rec.StableID, PID: rec.PID, Record: &rec, At: rec.LastUpdate}
		if err := conn.WriteJSON(initial); err != nil {
			s.log.Debug().Err(err).Msg("WebSocket write error")
			return
		}
	}

	for ev := range updates {
		if err := conn.WriteJSON(ev); err != nil {
			s.log.Debug().Err(err).Msg("WebSocket write error")
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.tracker.Status()
	status := "healthy"
	switch {
	case !st.Running:
		status = "stopped"
	case st.Events != nil && st.Events.State == events.Degraded:
		status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": Version,
		"tracker": st,
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.configMgr == nil {
		s.writeJSON(w, http.StatusOK, s.tracker.Config())
		return
	}
	s.writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleDumpCache(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(s.tracker.Cache().Dump())); err != nil {
		s.log.Debug().Err(err).Msg("Failed to write cache dump")
	}
}

// Version is reported by the health endpoint
var Version = "0.1.0"
