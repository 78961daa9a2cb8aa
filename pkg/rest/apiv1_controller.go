package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hookbox/hookbox/pkg/rest/model"
	"github.com/hookbox/hookbox/pkg/server/web"
	"github.com/hookbox/hookbox/pkg/storage"
)

// serviceName identifies this API in health responses.
const serviceName = "Hookbox Webhook"

// knownEmailFields are the payload keys mapped onto Email struct fields;
// anything else is preserved verbatim in Extra.
var knownEmailFields = map[string]struct{}{
	"id": {}, "_id": {}, "from": {}, "to": {}, "cc": {}, "subject": {},
	"text": {}, "html": {}, "headers": {}, "message-id": {}, "envelope": {},
	"attachments": {}, "inlines": {}, "received_at": {}, "processed": {},
}

// HealthV1 reports service health; it is the only unguarded endpoint.
func HealthV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	return web.RenderJSON(w, &model.JSONHealthV1{
		Status:    "healthy",
		Service:   serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// parsePayload decodes a webhook payload, keeping unmapped fields so the
// stored document matches what the provider delivered.
func parsePayload(body []byte) (*storage.Email, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.New("no data received")
	}
	email := &storage.Email{}
	if err := json.Unmarshal(trimmed, email); err != nil {
		return nil, fmt.Errorf("malformed payload: %v", err)
	}
	var all map[string]interface{}
	if err := json.Unmarshal(trimmed, &all); err != nil {
		return nil, fmt.Errorf("malformed payload: %v", err)
	}
	if len(all) == 0 {
		return nil, errors.New("no data received")
	}
	for k := range all {
		if _, known := knownEmailFields[k]; known {
			delete(all, k)
		}
	}
	if len(all) > 0 {
		email.Extra = all
	}
	return email, nil
}

// WebhookReceiveV1 ingests an inbound email payload from the forwarding
// provider.
func WebhookReceiveV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	email, err := parsePayload(body)
	if err != nil {
		web.RenderJSONError(w, http.StatusBadRequest, err)
		return nil
	}
	id, err := ctx.Manager.Ingest(req.Context(), email)
	if err != nil {
		// Surfaced as a JSON 500 by the handler wrapper.
		return fmt.Errorf("store email: %v", err)
	}
	return web.RenderJSON(w, &model.JSONIngestResultV1{
		Success: true,
		Message: "Email received and stored",
		EmailID: id,
	})
}

// queryInt parses an integer query parameter, using def when absent.
func queryInt(req *http.Request, name string, def int64) (int64, error) {
	v := req.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be numeric", name)
	}
	return n, nil
}

// EmailListV1 returns stored emails, newest first. Query parameters: limit
// (default 10), skip (default 0), from_email (exact), subject (substring).
func EmailListV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	limit, err := queryInt(req, "limit", 10)
	if err != nil {
		web.RenderJSONError(w, http.StatusBadRequest, err)
		return nil
	}
	skip, err := queryInt(req, "skip", 0)
	if err != nil {
		web.RenderJSONError(w, http.StatusBadRequest, err)
		return nil
	}
	emails, _, err := ctx.Manager.ListEmails(req.Context(), storage.EmailQuery{
		FromEmail: req.URL.Query().Get("from_email"),
		Subject:   req.URL.Query().Get("subject"),
		Skip:      skip,
		Limit:     limit,
	})
	if err != nil {
		return fmt.Errorf("list emails: %v", err)
	}
	if emails == nil {
		emails = []*storage.Email{}
	}
	return web.RenderJSON(w, &model.JSONEmailListV1{
		Success: true,
		Count:   len(emails),
		Emails:  emails,
	})
}

// EmailShowV1 returns a single stored email by identifier.
func EmailShowV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	email, err := ctx.Manager.GetEmail(req.Context(), ctx.Vars["id"])
	if err == storage.ErrNotExist {
		web.RenderJSONError(w, http.StatusNotFound, errors.New("email not found"))
		return nil
	}
	if err != nil {
		return fmt.Errorf("get email %q: %v", ctx.Vars["id"], err)
	}
	return web.RenderJSON(w, &model.JSONEmailV1{Success: true, Email: email})
}

// EmailAttachmentV1 serves the raw bytes of a named attachment, searching
// regular attachments before inline parts.
func EmailAttachmentV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	name := ctx.Vars["name"]
	att, content, disposition, err := ctx.Manager.Attachment(req.Context(), ctx.Vars["id"], name)
	if err == storage.ErrNotExist {
		web.RenderJSONError(w, http.StatusNotFound, errors.New("attachment not found"))
		return nil
	}
	if err != nil {
		return fmt.Errorf("get attachment %q: %v", name, err)
	}
	w.Header().Set("Content-Type", att.Type)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("%s; filename=%q", disposition, att.Name))
	_, err = w.Write(content)
	return err
}
