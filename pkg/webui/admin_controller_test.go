package webui

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookbox/hookbox/pkg/storage"
)

func TestUserListRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "sam@example.com", "hunter2")

	w := ts.get("/users")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserListAnonymousRedirected(t *testing.T) {
	ts := newTestServer(t)
	w := ts.get("/users")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestUserListRenders(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "root@example.com", "hunter2", storage.RoleAdmin)
	ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "root@example.com", "hunter2")

	w := ts.get("/users")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sam@example.com")
}

func TestUserCreate(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "root@example.com", "hunter2", storage.RoleAdmin)
	ts.login(t, "root@example.com", "hunter2")

	w := ts.postForm("/users", url.Values{
		"email":    {"new@example.com"},
		"password": {"hunter2"},
		"role":     {"user"},
		"aliases":  {"sales@example.com, info@example.com"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	user, err := ts.store.GetUserByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"sales@example.com", "info@example.com"}, user.Aliases)
	assert.Equal(t, storage.RoleUser, user.Role)
}

func TestUserCreateDuplicateFlashes(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "root@example.com", "hunter2", storage.RoleAdmin)
	ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "root@example.com", "hunter2")

	w := ts.postForm("/users", url.Values{
		"email":    {"sam@example.com"},
		"password": {"hunter2"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = ts.get("/users")
	assert.Contains(t, w.Body.String(), "already exists")
}

func TestUserEdit(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "root@example.com", "hunter2", storage.RoleAdmin)
	sam := ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "root@example.com", "hunter2")

	w := ts.postForm("/users/"+sam.ID.Hex()+"/edit", url.Values{
		"email":          {"sam@example.com"},
		"display_name":   {"Sam"},
		"role":           {"user"},
		"relay_username": {"sam-relay"},
		"relay_password": {"relay-secret"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	got, err := ts.store.GetUser(context.Background(), sam.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Sam", got.DisplayName)
	require.NotNil(t, got.Relay)
	assert.Equal(t, "sam-relay", got.Relay.Username)
	assert.Equal(t, "relay-secret", got.Relay.Password)
}

func TestUserDelete(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "root@example.com", "hunter2", storage.RoleAdmin)
	sam := ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "root@example.com", "hunter2")

	w := ts.postForm("/users/"+sam.ID.Hex()+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)

	_, err := ts.store.GetUser(context.Background(), sam.ID.Hex())
	assert.Equal(t, storage.ErrNotExist, err)
}

func TestUserDeleteSelfRefused(t *testing.T) {
	ts := newTestServer(t)
	root := ts.addUser(t, "root@example.com", "hunter2", storage.RoleAdmin)
	ts.login(t, "root@example.com", "hunter2")

	w := ts.postForm("/users/"+root.ID.Hex()+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)

	// Still present, with a flash explaining why.
	_, err := ts.store.GetUser(context.Background(), root.ID.Hex())
	assert.NoError(t, err)
	w = ts.get("/users")
	assert.Contains(t, w.Body.String(), "cannot delete your own account")
}

func TestUserRoleToggle(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "root@example.com", "hunter2", storage.RoleAdmin)
	sam := ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "root@example.com", "hunter2")

	w := ts.postForm("/users/"+sam.ID.Hex()+"/role", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)

	got, err := ts.store.GetUser(context.Background(), sam.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, storage.RoleAdmin, got.Role)
}
