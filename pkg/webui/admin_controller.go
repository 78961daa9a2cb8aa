package webui

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/hookbox/hookbox/pkg/account"
	"github.com/hookbox/hookbox/pkg/server/web"
	"github.com/hookbox/hookbox/pkg/storage"
)

// userFromForm builds a User from the admin form fields.
func userFromForm(req *http.Request) *storage.User {
	user := &storage.User{
		Email:       strings.TrimSpace(req.PostFormValue("email")),
		DisplayName: strings.TrimSpace(req.PostFormValue("display_name")),
		Role:        req.PostFormValue("role"),
		Aliases:     splitAddresses(req.PostFormValue("aliases")),
	}
	username := strings.TrimSpace(req.PostFormValue("relay_username"))
	password := req.PostFormValue("relay_password")
	if username != "" || password != "" {
		user.Relay = &storage.RelayCredentials{
			Username: username,
			Password: password,
		}
	}
	return user
}

// UserList renders the admin user management page.
func UserList(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	users, err := ctx.Accounts.List(req.Context())
	if err != nil {
		return fmt.Errorf("list users: %v", err)
	}
	errorFlash := ctx.Session.Flashes("errors")
	noticeFlash := ctx.Session.Flashes("notices")
	if err := ctx.Session.Save(req, w); err != nil {
		return err
	}
	return ctx.Server().RenderTemplate("users.html", w, map[string]interface{}{
		"ctx":         ctx,
		"user":        ctx.User,
		"users":       users,
		"errorFlash":  errorFlash,
		"noticeFlash": noticeFlash,
	})
}

// UserCreate adds a new account from the admin form.
func UserCreate(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	user := userFromForm(req)
	password := req.PostFormValue("password")
	redirect := func() {
		http.Redirect(w, req, ctx.Server().Reverse("UserList"), http.StatusSeeOther)
	}
	if user.Email == "" || password == "" {
		ctx.Session.AddFlash("Email and password are required", "errors")
		_ = ctx.Session.Save(req, w)
		redirect()
		return nil
	}
	_, err := ctx.Accounts.Create(req.Context(), user, password)
	if err == account.ErrDuplicateEmail {
		ctx.Session.AddFlash("A user with that email already exists", "errors")
		_ = ctx.Session.Save(req, w)
		redirect()
		return nil
	}
	if err != nil {
		return fmt.Errorf("create user: %v", err)
	}
	ctx.Session.AddFlash("User created", "notices")
	_ = ctx.Session.Save(req, w)
	redirect()
	return nil
}

// UserEditForm renders the edit page for one account.
func UserEditForm(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	subject, err := ctx.Accounts.Get(req.Context(), ctx.Vars["id"])
	if err == storage.ErrNotExist {
		http.NotFound(w, req)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get user %q: %v", ctx.Vars["id"], err)
	}
	errorFlash := ctx.Session.Flashes("errors")
	if err := ctx.Session.Save(req, w); err != nil {
		return err
	}
	return ctx.Server().RenderTemplate("user_edit.html", w, map[string]interface{}{
		"ctx":        ctx,
		"user":       ctx.User,
		"subject":    subject,
		"errorFlash": errorFlash,
	})
}

// UserEdit applies the edit form to an account. A blank password leaves the
// existing one in place.
func UserEdit(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	subject, err := ctx.Accounts.Get(req.Context(), ctx.Vars["id"])
	if err == storage.ErrNotExist {
		http.NotFound(w, req)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get user %q: %v", ctx.Vars["id"], err)
	}
	form := userFromForm(req)
	if form.Email != "" {
		subject.Email = form.Email
	}
	subject.DisplayName = form.DisplayName
	subject.Aliases = form.Aliases
	if form.Role == storage.RoleAdmin || form.Role == storage.RoleUser {
		subject.Role = form.Role
	}
	if form.Relay != nil {
		// A blank relay password keeps the stored one.
		if form.Relay.Password == "" && subject.Relay != nil {
			form.Relay.Password = subject.Relay.Password
		}
		subject.Relay = form.Relay
	}
	if err := ctx.Accounts.Update(req.Context(), subject, req.PostFormValue("password")); err != nil {
		return fmt.Errorf("update user %q: %v", ctx.Vars["id"], err)
	}
	ctx.Session.AddFlash("User updated", "notices")
	_ = ctx.Session.Save(req, w)
	http.Redirect(w, req, ctx.Server().Reverse("UserList"), http.StatusSeeOther)
	return nil
}

// UserDelete removes an account. Admins cannot delete themselves.
func UserDelete(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	err := ctx.Accounts.Delete(req.Context(), ctx.User, ctx.Vars["id"])
	if err == account.ErrSelfDelete {
		ctx.Session.AddFlash("You cannot delete your own account", "errors")
		_ = ctx.Session.Save(req, w)
		http.Redirect(w, req, ctx.Server().Reverse("UserList"), http.StatusSeeOther)
		return nil
	}
	if err == storage.ErrNotExist {
		http.NotFound(w, req)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete user %q: %v", ctx.Vars["id"], err)
	}
	ctx.Session.AddFlash("User deleted", "notices")
	_ = ctx.Session.Save(req, w)
	http.Redirect(w, req, ctx.Server().Reverse("UserList"), http.StatusSeeOther)
	return nil
}

// UserRoleToggle flips an account between admin and user.
func UserRoleToggle(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	err := ctx.Accounts.ToggleRole(req.Context(), ctx.Vars["id"])
	if err == storage.ErrNotExist {
		http.NotFound(w, req)
		return nil
	}
	if err != nil {
		return fmt.Errorf("toggle role %q: %v", ctx.Vars["id"], err)
	}
	http.Redirect(w, req, ctx.Server().Reverse("UserList"), http.StatusSeeOther)
	return nil
}
