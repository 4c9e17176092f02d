// Package api implements the HTTP facade: read-only tag/status endpoints,
// atomic configuration replacement, and OPC UA browse/discover endpoints
// that downcast to protocol-specific driver behavior.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	hclog "github.com/hashicorp/go-hclog"

	"github.com/forgeio/gateway/internal/app"
)

// Server wraps a gorilla/mux router bound to the shared application state.
type Server struct {
	log        hclog.Logger
	state      *app.State
	configPath string
	httpServer *http.Server
}

// New builds a Server listening on addr. configPath is the file PUT
// /api/config persists to.
func New(log hclog.Logger, state *app.State, addr string, configPath string) *Server {
	s := &Server{
		log:        log.Named("api"),
		state:      state,
		configPath: configPath,
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/tags", s.handleTags).Methods(http.MethodGet)
	router.HandleFunc("/api/config", s.handleGetConfig).Methods(http.MethodGet)
	router.HandleFunc("/api/config", s.handlePutConfig).Methods(http.MethodPut)
	router.HandleFunc("/api/opcua/discover", s.handleDiscoverDrivers).Methods(http.MethodGet)
	router.HandleFunc("/api/opcua/browse/{driver_id}", s.handleBrowse).Methods(http.MethodGet)
	router.HandleFunc("/api/opcua/discover-tags/{driver_id}", s.handleDiscoverTags).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving in the background. Bind failures are reported
// asynchronously through errCh so the caller can fold them into its own
// shutdown sequencing.
func (s *Server) Start(errCh chan<- error) {
	s.log.Info("listening", "addr", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
}

// Shutdown stops accepting new connections and waits for in-flight
// requests to finish, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
