package webui

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/hookbox/hookbox/pkg/server/web"
	"github.com/hookbox/hookbox/pkg/storage"
)

// Session value key for the logged in user.
const sessionUserKey = "user_id"

// loginUser records the user in the session cookie.
func loginUser(w http.ResponseWriter, req *http.Request, ctx *web.Context, user *storage.User) error {
	ctx.Session.Values[sessionUserKey] = user.ID.Hex()
	return ctx.Session.Save(req, w)
}

// logoutUser clears the session cookie.
func logoutUser(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	delete(ctx.Session.Values, sessionUserKey)
	ctx.Session.Options.MaxAge = -1
	return ctx.Session.Save(req, w)
}

// sessionUser resolves the session cookie to a stored user, nil when the
// session is anonymous or the account no longer exists.
func sessionUser(req *http.Request, ctx *web.Context) *storage.User {
	id, ok := ctx.Session.Values[sessionUserKey].(string)
	if !ok || id == "" {
		return nil
	}
	user, err := ctx.Accounts.Get(req.Context(), id)
	if err != nil {
		if err != storage.ErrNotExist {
			log.Error().Str("module", "webui").Str("id", id).Err(err).
				Msg("Failed to load session user")
		}
		return nil
	}
	return user
}

// requireUser wraps a handler, redirecting anonymous requests to the login
// page.
func requireUser(fn web.HandlerFunc) web.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
		user := sessionUser(req, ctx)
		if user == nil {
			http.Redirect(w, req, ctx.Server().Reverse("LoginForm"), http.StatusSeeOther)
			return nil
		}
		ctx.User = user
		return fn(w, req, ctx)
	}
}

// requireAdmin wraps a handler, rejecting non-admin users with a 403.
func requireAdmin(fn web.HandlerFunc) web.HandlerFunc {
	return requireUser(func(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
		if !ctx.User.IsAdmin() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return nil
		}
		return fn(w, req, ctx)
	})
}
