package web

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// HandlerFunc is the function type that handles an HTTP request in hookbox.
type HandlerFunc func(http.ResponseWriter, *http.Request, *Context) error

// handler adapts a HandlerFunc to http.Handler for a particular server.
type handler struct {
	server *Server
	fn     HandlerFunc
}

// Handler wraps a HandlerFunc for registration on this server's router.
func (s *Server) Handler(fn HandlerFunc) http.Handler {
	return handler{server: s, fn: fn}
}

// ServeHTTP builds the context and passes onto the real handler.
func (h handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx, err := h.server.NewContext(req)
	if err != nil {
		log.Error().Str("module", "web").Err(err).Msg("HTTP failed to create context")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer ctx.Close()

	// Run the handler, grab the error, and report it.
	err = h.fn(w, req, ctx)
	if err != nil {
		log.Error().Str("module", "web").Str("path", req.RequestURI).Err(err).
			Msg("Error handling request")
		if ctx.IsJSON {
			RenderJSONError(w, http.StatusInternalServerError, err)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// requestLoggingWrapper returns middleware that logs client requests.
func requestLoggingWrapper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		log.Debug().Str("module", "web").Str("remote", req.RemoteAddr).Str("proto", req.Proto).
			Str("method", req.Method).Str("path", req.RequestURI).Msg("Request")
		next.ServeHTTP(w, req)
	})
}
