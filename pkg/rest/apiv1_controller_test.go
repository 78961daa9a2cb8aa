package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookbox/hookbox/pkg/storage"
)

func TestHealthUnauthenticated(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do("GET", "/", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "Hookbox Webhook", body["service"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestWebhookStoresEmail(t *testing.T) {
	ts := newTestServer(t)
	payload := `{
		"from": {"name": "Sender", "email": "sender@example.com"},
		"to": [{"name": "Sam", "email": "sam@example.com"}],
		"subject": "Hello",
		"text": "plain body",
		"html": "<p>html body</p>",
		"envelope": {"from": "sender@example.com", "recipient": "sam@example.com"}
	}`
	w := ts.do("POST", "/webhook", testAPIKey, payload)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result struct {
		Success bool   `json:"success"`
		EmailID string `json:"email_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	require.NotEmpty(t, result.EmailID)

	email, err := ts.store.GetEmail(context.Background(), result.EmailID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", email.Subject)
	assert.Equal(t, "sam@example.com", email.To[0].Email)
	assert.False(t, email.Processed)
	assert.False(t, email.ReceivedAt.IsZero())
}

func TestWebhookPreservesUnknownFields(t *testing.T) {
	ts := newTestServer(t)
	payload := `{
		"subject": "Hello",
		"to": [{"email": "sam@example.com"}],
		"x-provider-tag": "forwarded",
		"spam_score": 0.25
	}`
	w := ts.do("POST", "/webhook", testAPIKey, payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		EmailID string `json:"email_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	email, err := ts.store.GetEmail(context.Background(), result.EmailID)
	require.NoError(t, err)
	assert.Equal(t, "forwarded", email.Extra["x-provider-tag"])
	assert.Equal(t, 0.25, email.Extra["spam_score"])
	assert.NotContains(t, email.Extra, "subject")
}

func TestEmailShowReturnsUnknownFields(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do("POST", "/webhook", testAPIKey, `{
		"subject": "Hello",
		"to": [{"email": "sam@example.com"}],
		"verdict": "PASS",
		"spam_score": 0.25
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result struct {
		EmailID string `json:"email_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	// The preserved payload fields come back in the rendered document.
	w = ts.do("GET", "/emails/"+result.EmailID, testAPIKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	var shown struct {
		Email map[string]interface{} `json:"email"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &shown))
	assert.Equal(t, "PASS", shown.Email["verdict"])
	assert.Equal(t, 0.25, shown.Email["spam_score"])
	assert.Equal(t, "Hello", shown.Email["subject"])

	// List responses carry them too.
	w = ts.do("GET", "/emails", testAPIKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Emails []map[string]interface{} `json:"emails"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Emails, 1)
	assert.Equal(t, "PASS", list.Emails[0]["verdict"])
}

func TestWebhookRejectsEmptyBody(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []string{"", "null", "{}"} {
		w := ts.do("POST", "/webhook", testAPIKey, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)

		var result struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Error)
	}

	// Nothing was stored.
	emails, _, err := ts.store.QueryEmails(context.Background(), storage.EmailQuery{})
	require.NoError(t, err)
	assert.Empty(t, emails)
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do("POST", "/webhook", testAPIKey, `{"subject": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmailList(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 15; i++ {
		payload := fmt.Sprintf(`{"subject": "msg %02d", "to": [{"email": "sam@example.com"}]}`, i)
		w := ts.do("POST", "/webhook", testAPIKey, payload)
		require.Equal(t, http.StatusOK, w.Code)
	}

	// Default limit is ten.
	w := ts.do("GET", "/emails", testAPIKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Success bool             `json:"success"`
		Count   int              `json:"count"`
		Emails  []*storage.Email `json:"emails"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.True(t, list.Success)
	assert.Equal(t, 10, list.Count)
	require.Len(t, list.Emails, 10)

	// Skip walks past the newest entries.
	w = ts.do("GET", "/emails?limit=10&skip=10", testAPIKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 5, list.Count)
}

func TestEmailListFilters(t *testing.T) {
	ts := newTestServer(t)
	payloads := []string{
		`{"subject": "Invoice 42", "from": {"email": "billing@example.com"}, "to": [{"email": "sam@example.com"}]}`,
		`{"subject": "Lunch plans", "from": {"email": "pat@example.com"}, "to": [{"email": "sam@example.com"}]}`,
	}
	for _, p := range payloads {
		w := ts.do("POST", "/webhook", testAPIKey, p)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := ts.do("GET", "/emails?from_email=billing@example.com", testAPIKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count  int              `json:"count"`
		Emails []*storage.Email `json:"emails"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Invoice 42", list.Emails[0].Subject)

	w = ts.do("GET", "/emails?subject=lunch", testAPIKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
}

func TestEmailListBadLimit(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do("GET", "/emails?limit=banana", testAPIKey, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmailShow(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do("POST", "/webhook", testAPIKey,
		`{"subject": "Hello", "to": [{"email": "sam@example.com"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		EmailID string `json:"email_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	w = ts.do("GET", "/emails/"+result.EmailID, testAPIKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	var shown struct {
		Success bool           `json:"success"`
		Email   *storage.Email `json:"email"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &shown))
	assert.True(t, shown.Success)
	assert.Equal(t, "Hello", shown.Email.Subject)
}

func TestEmailShowNotFound(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do("GET", "/emails/64b000000000000000000000", testAPIKey, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmailAttachment(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do("POST", "/webhook", testAPIKey, `{
		"subject": "With file",
		"to": [{"email": "sam@example.com"}],
		"attachments": [{"name": "hello.txt", "type": "text/plain", "content": "aGVsbG8="}]
	}`)
	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		EmailID string `json:"email_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

	w = ts.do("GET", "/emails/"+result.EmailID+"/attachment/hello.txt", testAPIKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "hello", w.Body.String())

	w = ts.do("GET", "/emails/"+result.EmailID+"/attachment/missing.txt", testAPIKey, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
