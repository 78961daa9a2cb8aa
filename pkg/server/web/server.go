// Package web provides the plumbing shared by hookbox's webhook API and
// webmail UI servers.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"

	"github.com/hookbox/hookbox/pkg/account"
	"github.com/hookbox/hookbox/pkg/config"
	"github.com/hookbox/hookbox/pkg/message"
	"github.com/hookbox/hookbox/pkg/msghub"
)

// sessionName is the webmail session cookie name.
const sessionName = "hookbox-session"

// Server hosts one of the hookbox HTTP surfaces. The webhook API and the
// webmail UI each run their own instance with their own router.
type Server struct {
	name           string
	rootConfig     *config.Root
	router         *mux.Router
	manager        message.Manager
	accounts       *account.Manager
	hub            *msghub.Hub
	sessions       sessions.Store
	templates      *templateCache
	jsonErrors     bool
	server         *http.Server
	globalShutdown chan bool
}

// NewServer assembles a Server. jsonErrors selects JSON error bodies for
// unhandled errors, used by the API surface.
func NewServer(
	name string,
	conf *config.Root,
	mm message.Manager,
	am *account.Manager,
	hub *msghub.Hub,
	shutdownChan chan bool,
	jsonErrors bool) *Server {

	s := &Server{
		name:           name,
		rootConfig:     conf,
		router:         mux.NewRouter(),
		manager:        mm,
		accounts:       am,
		hub:            hub,
		jsonErrors:     jsonErrors,
		globalShutdown: shutdownChan,
	}
	if conf.Webmail.CookieAuthKey == "" {
		log.Info().Str("module", "web").Str("server", name).
			Msg("Generating random cookie auth key")
		s.sessions = sessions.NewCookieStore(securecookie.GenerateRandomKey(64))
	} else {
		s.sessions = sessions.NewCookieStore([]byte(conf.Webmail.CookieAuthKey))
	}
	s.templates = newTemplateCache(conf.Webmail, s)
	return s
}

// Router returns the server's router for route registration.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start begins listening for HTTP requests on addr, blocking until the
// context is canceled.
func (s *Server) Start(ctx context.Context, addr string) {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      requestLoggingWrapper(s.router),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Not using ListenAndServe, it lacks a way to close the listener.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error().Str("module", "web").Str("server", s.name).Err(err).
			Msg("Failed to start TCP4 listener")
		s.emergencyShutdown()
		return
	}
	log.Info().Str("module", "web").Str("server", s.name).Str("addr", addr).
		Msg("HTTP listening")

	go s.serve(ctx, listener)

	<-ctx.Done()
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutCtx); err != nil {
		log.Error().Str("module", "web").Str("server", s.name).Err(err).
			Msg("Failed to shut down HTTP server cleanly")
	}
}

// serve runs the HTTP server; it returns when the listener closes.
func (s *Server) serve(ctx context.Context, listener net.Listener) {
	err := s.server.Serve(listener)
	select {
	case <-ctx.Done():
		// Shutting down anyway.
	default:
		log.Error().Str("module", "web").Str("server", s.name).Err(err).
			Msg("HTTP server failed")
		s.emergencyShutdown()
	}
}

func (s *Server) emergencyShutdown() {
	select {
	case <-s.globalShutdown:
	default:
		close(s.globalShutdown)
	}
}
