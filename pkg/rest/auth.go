package rest

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hookbox/hookbox/pkg/config"
	"github.com/hookbox/hookbox/pkg/lockout"
	"github.com/hookbox/hookbox/pkg/server/web"
)

// keyGuard authenticates API requests against the static Bearer key and
// feeds the brute-force lockout tracker.
type keyGuard struct {
	key     string
	tracker *lockout.Tracker
}

func newKeyGuard(conf config.Webhook) *keyGuard {
	return &keyGuard{
		key:     conf.APIKey,
		tracker: lockout.New(conf.MaxFailures, conf.FailureWindow, conf.LockoutPeriod),
	}
}

// clientAddr extracts the client host from the request, ignoring the port.
func clientAddr(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// bearerToken pulls the token out of the Authorization header.
func bearerToken(req *http.Request) string {
	auth := req.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}

// wrap guards next with Bearer key authentication. Lockout is evaluated
// before the key so a locked client is rejected regardless of key validity.
func (g *keyGuard) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		addr := clientAddr(req)
		if locked, retryAfter := g.tracker.Locked(addr); locked {
			secs := int(retryAfter.Seconds()) + 1
			w.Header().Set("Retry-After", fmt.Sprint(secs))
			log.Warn().Str("module", "rest").Str("remote", addr).
				Int("retry_after", secs).Msg("Locked out client rejected")
			web.RenderJSONError(w, http.StatusTooManyRequests,
				fmt.Errorf("too many failed attempts, retry in %ds", secs))
			return
		}
		token := bearerToken(req)
		if subtle.ConstantTimeCompare([]byte(token), []byte(g.key)) != 1 {
			g.tracker.Failure(addr)
			log.Warn().Str("module", "rest").Str("remote", addr).
				Msg("Invalid or missing API key")
			web.RenderJSONError(w, http.StatusUnauthorized,
				errors.New("invalid or missing API key"))
			return
		}
		g.tracker.Success(addr)
		next.ServeHTTP(w, req)
	})
}
