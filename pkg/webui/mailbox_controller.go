package webui

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/hookbox/hookbox/pkg/message"
	"github.com/hookbox/hookbox/pkg/policy"
	"github.com/hookbox/hookbox/pkg/server/web"
	"github.com/hookbox/hookbox/pkg/storage"
	"github.com/hookbox/hookbox/pkg/webui/sanitize"
)

// validFolders are the logical folders the listing accepts.
var validFolders = map[string]bool{
	message.FolderInbox:  true,
	message.FolderUnread: true,
	message.FolderAll:    true,
	message.FolderSent:   true,
	message.FolderDrafts: true,
}

// queryIntDefault parses a positive integer query parameter, falling back
// to def on absence or garbage.
func queryIntDefault(req *http.Request, name string, def int) int {
	v := req.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// FolderIndex renders a page of the selected folder for the logged in user.
func FolderIndex(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	folder := req.URL.Query().Get("folder")
	if folder == "" {
		folder = message.FolderInbox
	}
	if !validFolders[folder] {
		http.NotFound(w, req)
		return nil
	}
	freq := message.FolderRequest{
		Folder:  folder,
		Search:  req.URL.Query().Get("search"),
		Page:    queryIntDefault(req, "page", 1),
		PerPage: queryIntDefault(req, "per_page", ctx.RootConfig.Webmail.PerPage),
	}
	page, err := ctx.Manager.Folder(req.Context(), ctx.User, freq)
	if err != nil {
		return fmt.Errorf("list folder %q: %v", folder, err)
	}
	errorFlash := ctx.Session.Flashes("errors")
	noticeFlash := ctx.Session.Flashes("notices")
	if err := ctx.Session.Save(req, w); err != nil {
		return err
	}
	return ctx.Server().RenderTemplate("inbox.html", w, map[string]interface{}{
		"ctx":         ctx,
		"user":        ctx.User,
		"page":        page,
		"search":      freq.Search,
		"paged":       page.TotalPages > 1,
		"hasPrev":     page.Page > 1,
		"hasNext":     int64(page.Page) < page.TotalPages,
		"prevPage":    page.Page - 1,
		"nextPage":    page.Page + 1,
		"errorFlash":  errorFlash,
		"noticeFlash": noticeFlash,
	})
}

// MessageView renders a single message from the given folder. Inbox views
// mark the message as read; drafts open in the compose editor.
func MessageView(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	folder := ctx.Vars["folder"]
	id := ctx.Vars["id"]
	data := map[string]interface{}{
		"ctx":    ctx,
		"user":   ctx.User,
		"folder": folder,
	}
	switch folder {
	case message.FolderInbox, message.FolderUnread, message.FolderAll:
		email, err := ctx.Manager.OpenMessage(req.Context(), ctx.User, id)
		if err != nil {
			return viewError(w, err)
		}
		var body template.HTML
		if email.HTML != "" {
			clean, err := sanitize.HTML(email.HTML)
			if err != nil {
				return fmt.Errorf("sanitize message %q: %v", id, err)
			}
			body = template.HTML(clean)
		} else {
			body = web.TextToHTML(email.Text)
		}
		data["email"] = email
		data["body"] = body
		return ctx.Server().RenderTemplate("message.html", w, data)
	case message.FolderSent:
		sent, err := ctx.Manager.OpenSent(req.Context(), ctx.User, id)
		if err != nil {
			return viewError(w, err)
		}
		body, err := sanitize.HTML(sent.HTML)
		if err != nil {
			return fmt.Errorf("sanitize sent %q: %v", id, err)
		}
		data["sent"] = sent
		data["body"] = template.HTML(body)
		return ctx.Server().RenderTemplate("sent.html", w, data)
	case message.FolderDrafts:
		uri := fmt.Sprintf("%s?draft=%s", ctx.Server().Reverse("ComposeForm"), id)
		http.Redirect(w, req, uri, http.StatusSeeOther)
		return nil
	}
	http.NotFound(w, req)
	return nil
}

// AttachmentDownload serves an attachment after checking the user may view
// the owning message.
func AttachmentDownload(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	id := ctx.Vars["id"]
	email, err := ctx.Manager.GetEmail(req.Context(), id)
	if err == storage.ErrNotExist {
		http.NotFound(w, req)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get email %q: %v", id, err)
	}
	if !policy.CanViewInbox(ctx.User, email) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil
	}
	name := ctx.Vars["name"]
	att, content, disposition, err := ctx.Manager.Attachment(req.Context(), id, name)
	if err == storage.ErrNotExist {
		http.NotFound(w, req)
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

// viewError maps manager errors onto HTTP status pages.
func viewError(w http.ResponseWriter, err error) error {
	switch err {
	case storage.ErrNotExist:
		http.Error(w, "Message not found", http.StatusNotFound)
		return nil
	case message.ErrAccessDenied:
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil
	}
	return err
}
