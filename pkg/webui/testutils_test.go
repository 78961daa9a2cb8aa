package webui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hookbox/hookbox/pkg/account"
	"github.com/hookbox/hookbox/pkg/config"
	"github.com/hookbox/hookbox/pkg/message"
	"github.com/hookbox/hookbox/pkg/msghub"
	"github.com/hookbox/hookbox/pkg/server/web"
	"github.com/hookbox/hookbox/pkg/storage"
	"github.com/hookbox/hookbox/pkg/storage/mem"
)

// testServer bundles the webmail server with its backing store and a
// session cookie jar.
type testServer struct {
	server   *web.Server
	store    *mem.Store
	accounts *account.Manager
	manager  *message.StoreManager
	cookies  []*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	conf := &config.Root{
		Webmail: config.Webmail{
			TemplateDir:   "../../ui/templates",
			TemplateCache: true,
			CookieAuthKey: "webui-test-auth-key",
			PerPage:       20,
		},
	}
	store := mem.NewStore()
	mm := &message.StoreManager{Store: store}
	am := &account.Manager{Store: store}
	s := web.NewServer("webmail", conf, mm, am, msghub.New(0), make(chan bool), false)
	SetupRoutes(s)
	return &testServer{server: s, store: store, accounts: am, manager: mm}
}

// get issues a GET carrying the jar's session cookies.
func (ts *testServer) get(url string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", url, nil)
	for _, c := range ts.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)
	ts.keepCookies(w)
	return w
}

// postForm issues a POST with form values, carrying session cookies.
func (ts *testServer) postForm(url string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", url, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range ts.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)
	ts.keepCookies(w)
	return w
}

// keepCookies stores Set-Cookie responses for subsequent requests.
func (ts *testServer) keepCookies(w *httptest.ResponseRecorder) {
	res := w.Result()
	if cookies := res.Cookies(); len(cookies) > 0 {
		ts.cookies = cookies
	}
}

// addUser registers an account directly in the store.
func (ts *testServer) addUser(t *testing.T, email, password, role string, aliases ...string) *storage.User {
	t.Helper()
	user := &storage.User{Email: email, Role: role, Aliases: aliases}
	_, err := ts.accounts.Create(context.Background(), user, password)
	require.NoError(t, err)
	return user
}

// login authenticates through the login form, loading the session jar.
func (ts *testServer) login(t *testing.T, email, password string) {
	t.Helper()
	w := ts.postForm("/login", url.Values{
		"email":    {email},
		"password": {password},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))
}

// ingest stores an inbound email addressed to the given recipient.
func (ts *testServer) ingest(t *testing.T, to, subject string) string {
	t.Helper()
	id, err := ts.manager.Ingest(context.Background(), &storage.Email{
		From:    storage.Address{Name: "Sender", Email: "sender@example.com"},
		To:      []storage.Address{{Email: to}},
		Subject: subject,
		Text:    "body",
	})
	require.NoError(t, err)
	return id
}
