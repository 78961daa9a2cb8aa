package webui

import (
	"net/http"

	"github.com/hookbox/hookbox/pkg/account"
	"github.com/hookbox/hookbox/pkg/server/web"
)

// LoginForm renders the login page.
func LoginForm(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	if sessionUser(req, ctx) != nil {
		http.Redirect(w, req, ctx.Server().Reverse("FolderIndex"), http.StatusSeeOther)
		return nil
	}
	errorFlash := ctx.Session.Flashes("errors")
	if err := ctx.Session.Save(req, w); err != nil {
		return err
	}
	return ctx.Server().RenderTemplate("login.html", w, map[string]interface{}{
		"ctx":        ctx,
		"errorFlash": errorFlash,
	})
}

// Login processes a login form submission.
func Login(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	email := req.PostFormValue("email")
	password := req.PostFormValue("password")
	user, err := ctx.Accounts.Authenticate(req.Context(), email, password)
	if err == account.ErrInvalidCredentials {
		ctx.Session.AddFlash("Invalid email or password", "errors")
		_ = ctx.Session.Save(req, w)
		http.Redirect(w, req, ctx.Server().Reverse("LoginForm"), http.StatusSeeOther)
		return nil
	}
	if err != nil {
		return err
	}
	if err := loginUser(w, req, ctx, user); err != nil {
		return err
	}
	http.Redirect(w, req, ctx.Server().Reverse("FolderIndex"), http.StatusSeeOther)
	return nil
}

// Logout clears the session and returns to the login page.
func Logout(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	if err := logoutUser(w, req, ctx); err != nil {
		return err
	}
	http.Redirect(w, req, ctx.Server().Reverse("LoginForm"), http.StatusSeeOther)
	return nil
}

// PasswordForm renders the self-service password change page.
func PasswordForm(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	errorFlash := ctx.Session.Flashes("errors")
	noticeFlash := ctx.Session.Flashes("notices")
	if err := ctx.Session.Save(req, w); err != nil {
		return err
	}
	return ctx.Server().RenderTemplate("password.html", w, map[string]interface{}{
		"ctx":         ctx,
		"user":        ctx.User,
		"errorFlash":  errorFlash,
		"noticeFlash": noticeFlash,
	})
}

// PasswordChange updates the user's own password after verifying the
// current one.
func PasswordChange(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	current := req.PostFormValue("current_password")
	next := req.PostFormValue("new_password")
	confirm := req.PostFormValue("confirm_password")
	redirect := func() {
		http.Redirect(w, req, ctx.Server().Reverse("PasswordForm"), http.StatusSeeOther)
	}
	if next == "" || next != confirm {
		ctx.Session.AddFlash("New passwords do not match", "errors")
		_ = ctx.Session.Save(req, w)
		redirect()
		return nil
	}
	err := ctx.Accounts.SetPassword(req.Context(), ctx.User, current, next)
	if err == account.ErrInvalidCredentials {
		ctx.Session.AddFlash("Current password is incorrect", "errors")
		_ = ctx.Session.Save(req, w)
		redirect()
		return nil
	}
	if err != nil {
		return err
	}
	ctx.Session.AddFlash("Password updated", "notices")
	_ = ctx.Session.Save(req, w)
	redirect()
	return nil
}
