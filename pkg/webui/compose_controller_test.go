package webui

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hookbox/hookbox/pkg/message"
	"github.com/hookbox/hookbox/pkg/relay"
	"github.com/hookbox/hookbox/pkg/storage"
)

// stubSender records relayed messages instead of speaking SMTP.
type stubSender struct {
	sent []*relay.Message
}

func (s *stubSender) Send(_ context.Context, _ relay.Credentials, msg *relay.Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

// relayUser creates a logged-out account holding relay credentials.
func (ts *testServer) relayUser(t *testing.T, email, password string) *storage.User {
	t.Helper()
	user := ts.addUser(t, email, password, storage.RoleUser)
	user.Relay = &storage.RelayCredentials{Username: "relay-user", Password: "relay-pass"}
	require.NoError(t, ts.accounts.Update(context.Background(), user, ""))
	return user
}

func TestComposeSend(t *testing.T) {
	ts := newTestServer(t)
	sender := &stubSender{}
	ts.manager.Sender = sender
	ts.relayUser(t, "sam@example.com", "hunter2")
	ts.login(t, "sam@example.com", "hunter2")

	w := ts.postForm("/compose", url.Values{
		"to":      {"pat@example.com, lee@example.com"},
		"cc":      {"boss@example.com"},
		"subject": {"status report"},
		"body":    {"<p>all good</p>"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?folder=sent", w.Header().Get("Location"))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"pat@example.com", "lee@example.com"}, msg.To)
	assert.Equal(t, []string{"boss@example.com"}, msg.Cc)
	assert.Equal(t, "sam@example.com", msg.FromAddr)

	w = ts.get("/?folder=sent")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "status report")
}

func TestComposeSendNoRecipients(t *testing.T) {
	ts := newTestServer(t)
	ts.manager.Sender = &stubSender{}
	ts.relayUser(t, "sam@example.com", "hunter2")
	ts.login(t, "sam@example.com", "hunter2")

	w := ts.postForm("/compose", url.Values{
		"subject": {"empty"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/compose", w.Header().Get("Location"))

	w = ts.get("/compose")
	assert.Contains(t, w.Body.String(), "At least one recipient is required")
}

func TestComposeSendWithoutRelayCredentials(t *testing.T) {
	ts := newTestServer(t)
	sender := &stubSender{}
	ts.manager.Sender = sender
	ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "sam@example.com", "hunter2")

	w := ts.postForm("/compose", url.Values{
		"to": {"pat@example.com"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, sender.sent)

	w = ts.get("/compose")
	assert.Contains(t, w.Body.String(), "No outbound mail credentials")
}

func TestComposeSendRemovesDraft(t *testing.T) {
	ts := newTestServer(t)
	ts.manager.Sender = &stubSender{}
	sam := ts.relayUser(t, "sam@example.com", "hunter2")
	ts.login(t, "sam@example.com", "hunter2")

	draftID, err := ts.manager.SaveDraft(context.Background(), sam, message.Outgoing{
		To:      []string{"pat@example.com"},
		Subject: "work in progress",
	})
	require.NoError(t, err)

	w := ts.postForm("/compose", url.Values{
		"to":       {"pat@example.com"},
		"subject":  {"work in progress"},
		"draft_id": {draftID},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	_, err = ts.store.GetDraft(context.Background(), draftID)
	assert.Equal(t, storage.ErrNotExist, err)
}

func TestComposeFormPrefillsDraft(t *testing.T) {
	ts := newTestServer(t)
	sam := ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "sam@example.com", "hunter2")

	draftID, err := ts.manager.SaveDraft(context.Background(), sam, message.Outgoing{
		To:      []string{"pat@example.com"},
		Subject: "half written",
		HTML:    "<p>so far</p>",
	})
	require.NoError(t, err)

	w := ts.get("/compose?draft=" + draftID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "half written")
	assert.Contains(t, w.Body.String(), "pat@example.com")
}

func TestDraftDelete(t *testing.T) {
	ts := newTestServer(t)
	sam := ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "sam@example.com", "hunter2")

	draftID, err := ts.manager.SaveDraft(context.Background(), sam, message.Outgoing{
		Subject: "discard me",
	})
	require.NoError(t, err)

	w := ts.postForm("/draft/"+draftID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?folder=drafts", w.Header().Get("Location"))

	_, err = ts.store.GetDraft(context.Background(), draftID)
	assert.Equal(t, storage.ErrNotExist, err)
}

func TestDraftSaveStrangerDenied(t *testing.T) {
	ts := newTestServer(t)
	sam := ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.addUser(t, "pat@example.com", "hunter2", storage.RoleUser)

	draftID, err := ts.manager.SaveDraft(context.Background(), sam, message.Outgoing{
		Subject: "private",
	})
	require.NoError(t, err)

	ts.login(t, "pat@example.com", "hunter2")
	w := ts.postForm("/draft", url.Values{
		"subject":  {"hijacked"},
		"draft_id": {draftID},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	draft, err := ts.store.GetDraft(context.Background(), draftID)
	require.NoError(t, err)
	assert.Equal(t, "private", draft.Subject)
}

func TestDraftSaveMissingDraft(t *testing.T) {
	ts := newTestServer(t)
	ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.login(t, "sam@example.com", "hunter2")

	w := ts.postForm("/draft", url.Values{
		"subject":  {"orphan"},
		"draft_id": {primitive.NewObjectID().Hex()},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraftDeleteStrangerDenied(t *testing.T) {
	ts := newTestServer(t)
	sam := ts.addUser(t, "sam@example.com", "hunter2", storage.RoleUser)
	ts.addUser(t, "pat@example.com", "hunter2", storage.RoleUser)

	draftID, err := ts.manager.SaveDraft(context.Background(), sam, message.Outgoing{
		Subject: "private",
	})
	require.NoError(t, err)

	ts.login(t, "pat@example.com", "hunter2")
	w := ts.postForm("/draft/"+draftID+"/delete", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
