package webui

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/hookbox/hookbox/pkg/message"
	"github.com/hookbox/hookbox/pkg/server/web"
	"github.com/hookbox/hookbox/pkg/storage"
)

// splitAddresses turns a comma separated form field into a list of
// addresses, dropping empties.
func splitAddresses(field string) []string {
	var out []string
	for _, part := range strings.Split(field, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// outgoingFromForm builds an Outgoing from the compose form fields.
func outgoingFromForm(req *http.Request) message.Outgoing {
	return message.Outgoing{
		To:      splitAddresses(req.PostFormValue("to")),
		Cc:      splitAddresses(req.PostFormValue("cc")),
		Bcc:     splitAddresses(req.PostFormValue("bcc")),
		Subject: req.PostFormValue("subject"),
		HTML:    req.PostFormValue("body"),
		DraftID: req.PostFormValue("draft_id"),
	}
}

// ComposeForm renders the compose editor, prefilled from a draft when the
// draft query parameter is present.
func ComposeForm(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	var draft *storage.Draft
	if id := req.URL.Query().Get("draft"); id != "" {
		var err error
		draft, err = ctx.Manager.OpenDraft(req.Context(), ctx.User, id)
		if err != nil {
			return viewError(w, err)
		}
	}
	errorFlash := ctx.Session.Flashes("errors")
	if err := ctx.Session.Save(req, w); err != nil {
		return err
	}
	return ctx.Server().RenderTemplate("compose.html", w, map[string]interface{}{
		"ctx":        ctx,
		"user":       ctx.User,
		"draft":      draft,
		"errorFlash": errorFlash,
	})
}

// ComposeSend relays the composed message and records it in the sent
// folder. The originating draft, if any, is removed.
func ComposeSend(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	out := outgoingFromForm(req)
	if len(out.To) == 0 {
		ctx.Session.AddFlash("At least one recipient is required", "errors")
		_ = ctx.Session.Save(req, w)
		http.Redirect(w, req, ctx.Server().Reverse("ComposeForm"), http.StatusSeeOther)
		return nil
	}
	_, err := ctx.Manager.Send(req.Context(), ctx.User, out)
	if err == message.ErrNoRelay {
		ctx.Session.AddFlash("No outbound mail credentials configured for your account", "errors")
		_ = ctx.Session.Save(req, w)
		http.Redirect(w, req, ctx.Server().Reverse("ComposeForm"), http.StatusSeeOther)
		return nil
	}
	if err != nil {
		ctx.Session.AddFlash(fmt.Sprintf("Send failed: %v", err), "errors")
		_ = ctx.Session.Save(req, w)
		http.Redirect(w, req, ctx.Server().Reverse("ComposeForm"), http.StatusSeeOther)
		return nil
	}
	ctx.Session.AddFlash("Message sent", "notices")
	_ = ctx.Session.Save(req, w)
	uri := fmt.Sprintf("%s?folder=%s", ctx.Server().Reverse("FolderIndex"), message.FolderSent)
	http.Redirect(w, req, uri, http.StatusSeeOther)
	return nil
}

// DraftSave stores the compose form as a draft, updating in place when it
// originated from one.
func DraftSave(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	out := outgoingFromForm(req)
	if _, err := ctx.Manager.SaveDraft(req.Context(), ctx.User, out); err != nil {
		// Updating someone else's draft id, or a deleted one.
		return viewError(w, err)
	}
	ctx.Session.AddFlash("Draft saved", "notices")
	_ = ctx.Session.Save(req, w)
	uri := fmt.Sprintf("%s?folder=%s", ctx.Server().Reverse("FolderIndex"), message.FolderDrafts)
	http.Redirect(w, req, uri, http.StatusSeeOther)
	return nil
}

// DraftDelete removes one of the user's drafts.
func DraftDelete(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	err := ctx.Manager.DeleteDraft(req.Context(), ctx.User, ctx.Vars["id"])
	if err != nil {
		return viewError(w, err)
	}
	uri := fmt.Sprintf("%s?folder=%s", ctx.Server().Reverse("FolderIndex"), message.FolderDrafts)
	http.Redirect(w, req, uri, http.StatusSeeOther)
	return nil
}
