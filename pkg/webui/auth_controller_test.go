package webui

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookbox/hookbox/pkg/storage"
)

func TestAnonymousRedirectedToLogin(t *testing.T) {
	ts := newTestServer(t)
	w := ts.get("/")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestLoginPageRenders(t *testing.T) {
	ts := newTestServer(t)
	w := ts.get("/login")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sign in")
}

func TestLoginSuccess(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "sam@example.com", "hunter2")

	w := ts.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sam@example.com")
}

func TestLoginBadPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)

	w := ts.postForm("/login", url.Values{
		"email":    {"sam@example.com"},
		"password": {"wrong"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	// Still not authenticated.
	w = ts.get("/")
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestLogoutClearsSession(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "sam@example.com", "hunter2")

	w := ts.get("/logout")
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = ts.get("/")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestPasswordChange(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "sam@example.com", "hunter2")

	w := ts.postForm("/password", url.Values{
		"current_password": {"hunter2"},
		"new_password":     {"correcthorse"},
		"confirm_password": {"correcthorse"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	// Old password no longer works, new one does.
	ts.cookies = nil
	loginW := ts.postForm("/login", url.Values{
		"email":    {"sam@example.com"},
		"password": {"hunter2"},
	})
	assert.Equal(t, "/login", loginW.Header().Get("Location"))
	ts.login(t, "sam@example.com", "correcthorse")
}

func TestPasswordMismatchRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "sam@example.com", "hunter2")

	w := ts.postForm("/password", url.Values{
		"current_password": {"hunter2"},
		"new_password":     {"one"},
		"confirm_password": {"two"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	// Original password still valid.
	ts.cookies = nil
	ts.login(t, "sam@example.com", "hunter2")
}
