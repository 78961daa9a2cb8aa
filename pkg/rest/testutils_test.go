package rest

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hookbox/hookbox/pkg/account"
	"github.com/hookbox/hookbox/pkg/config"
	"github.com/hookbox/hookbox/pkg/message"
	"github.com/hookbox/hookbox/pkg/msghub"
	"github.com/hookbox/hookbox/pkg/server/web"
	"github.com/hookbox/hookbox/pkg/storage/mem"
)

const testAPIKey = "test-key-123"

// testServer bundles the API server with its backing store for assertions.
type testServer struct {
	server *web.Server
	store  *mem.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	conf := &config.Root{
		Webhook: config.Webhook{
			APIKey:        testAPIKey,
			MaxFailures:   5,
			FailureWindow: 5 * time.Minute,
			LockoutPeriod: 15 * time.Minute,
		},
	}
	store := mem.NewStore()
	mm := &message.StoreManager{Store: store}
	am := &account.Manager{Store: store}
	s := web.NewServer("api", conf, mm, am, msghub.New(0), make(chan bool), true)
	SetupRoutes(s, conf.Webhook)
	return &testServer{server: s, store: store}
}

// do issues a request against the test server's router with the given API
// key; an empty key omits the Authorization header.
func (ts *testServer) do(method, url, key, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)
	return w
}

// doFrom issues a request with a fixed client address, for lockout tests.
func (ts *testServer) doFrom(remoteAddr, method, url, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, nil)
	req.RemoteAddr = remoteAddr
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)
	return w
}
