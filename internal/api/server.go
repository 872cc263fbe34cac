// Package api serves the recent-alert history and live alert stream over
// HTTP: REST endpoints plus a websocket feed.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"scanguard/internal/storage"
)

type Server struct {
	store    *storage.Storage
	logger   *logrus.Logger
	upgrader websocket.Upgrader
	server   *http.Server
}

func NewServer(listen string, store *storage.Storage, logger *logrus.Logger) *Server {
	s := &Server{
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/alerts", s.GetAlerts).Methods("GET")
	router.HandleFunc("/api/v1/stats", s.GetStats).Methods("GET")
	router.HandleFunc("/api/v1/health", s.Health).Methods("GET")
	router.HandleFunc("/api/v1/ws/alerts", s.StreamAlerts)

	s.server = &http.Server{Addr: listen, Handler: router}
	return s
}

// Start runs the API server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Infof("API listening on %s", s.server.Addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("API server failed: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down API server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) GetAlerts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 25
	}
	if limit > 100 {
		limit = 100
	}

	scanType := r.URL.Query().Get("scan_type")

	alerts, total := s.store.Recent(page, limit, scanType)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": alerts,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, alertCount := s.store.GetStats()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tracked_ips": stats.TrackedIPs,
		"cleaned_ips": stats.CleanedIPs,
		"alert_count": alertCount,
	})
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StreamAlerts upgrades to a websocket and forwards every new alert as a
// JSON message until the client goes away.
func (s *Server) StreamAlerts(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := s.store.Subscribe()
	defer s.store.Unsubscribe(sub)

	// Reads are discarded but the pump notices a closed peer.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case a, ok := <-sub.Channel:
			if !ok {
				return
			}
			if err := conn.WriteJSON(a); err != nil {
				s.logger.Debugf("websocket write failed, dropping client: %v", err)
				return
			}
		case <-clientGone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Too late for an error status, the header is already out.
		return
	}
}
