package web

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"github.com/hookbox/hookbox/pkg/account"
	"github.com/hookbox/hookbox/pkg/config"
	"github.com/hookbox/hookbox/pkg/message"
	"github.com/hookbox/hookbox/pkg/msghub"
	"github.com/hookbox/hookbox/pkg/storage"
)

// Context is passed into every request handler function.
type Context struct {
	Vars       map[string]string
	Manager    message.Manager
	Accounts   *account.Manager
	Hub        *msghub.Hub
	RootConfig *config.Root
	Session    *sessions.Session
	IsJSON     bool

	// User is populated by the webmail session check; nil on the API
	// surface.
	User *storage.User

	server *Server
}

// Server returns the server handling this request.
func (c *Context) Server() *Server {
	return c.server
}

// Close the Context (currently does nothing).
func (c *Context) Close() {
	// Do nothing.
}

// headerMatch returns true if the request header specified by name contains
// the specified value. Case is ignored.
func headerMatch(req *http.Request, name string, value string) bool {
	name = http.CanonicalHeaderKey(name)
	value = strings.ToLower(value)
	for _, hv := range req.Header[name] {
		if value == strings.ToLower(hv) {
			return true
		}
	}
	return false
}

// NewContext returns a Context for the given HTTP request.
func (s *Server) NewContext(req *http.Request) (*Context, error) {
	session, err := s.sessions.Get(req, sessionName)
	if err != nil {
		// A bad cookie decodes as a fresh session; other errors abort.
		if session == nil {
			return nil, err
		}
	}
	return &Context{
		Vars:       mux.Vars(req),
		Manager:    s.manager,
		Accounts:   s.accounts,
		Hub:        s.hub,
		RootConfig: s.rootConfig,
		Session:    session,
		IsJSON:     s.jsonErrors || headerMatch(req, "Accept", "application/json"),
		server:     s,
	}, nil
}
