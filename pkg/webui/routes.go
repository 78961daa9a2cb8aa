// Package webui powers Hookbox's webmail GUI
package webui

import (
	"github.com/hookbox/hookbox/pkg/server/web"
)

// SetupRoutes populates the routes for the webmail UI.
func SetupRoutes(s *web.Server) {
	r := s.Router()

	r.Path("/health").Handler(s.Handler(Health)).Name("Health").Methods("GET")
	r.Path("/login").Handler(s.Handler(LoginForm)).Name("LoginForm").Methods("GET")
	r.Path("/login").Handler(s.Handler(Login)).Name("Login").Methods("POST")
	r.Path("/logout").Handler(s.Handler(Logout)).Name("Logout").Methods("GET")

	r.Path("/").Handler(
		s.Handler(requireUser(FolderIndex))).Name("FolderIndex").Methods("GET")
	r.Path("/view/{folder}/{id}").Handler(
		s.Handler(requireUser(MessageView))).Name("MessageView").Methods("GET")
	r.Path("/view/{folder}/{id}/attachment/{name}").Handler(
		s.Handler(requireUser(AttachmentDownload))).Name("AttachmentDownload").Methods("GET")
	r.Path("/compose").Handler(
		s.Handler(requireUser(ComposeForm))).Name("ComposeForm").Methods("GET")
	r.Path("/compose").Handler(
		s.Handler(requireUser(ComposeSend))).Name("ComposeSend").Methods("POST")
	r.Path("/draft").Handler(
		s.Handler(requireUser(DraftSave))).Name("DraftSave").Methods("POST")
	r.Path("/draft/{id}/delete").Handler(
		s.Handler(requireUser(DraftDelete))).Name("DraftDelete").Methods("POST")
	r.Path("/password").Handler(
		s.Handler(requireUser(PasswordForm))).Name("PasswordForm").Methods("GET")
	r.Path("/password").Handler(
		s.Handler(requireUser(PasswordChange))).Name("PasswordChange").Methods("POST")

	r.Path("/users").Handler(
		s.Handler(requireAdmin(UserList))).Name("UserList").Methods("GET")
	r.Path("/users").Handler(
		s.Handler(requireAdmin(UserCreate))).Name("UserCreate").Methods("POST")
	r.Path("/users/{id}/edit").Handler(
		s.Handler(requireAdmin(UserEditForm))).Name("UserEditForm").Methods("GET")
	r.Path("/users/{id}/edit").Handler(
		s.Handler(requireAdmin(UserEdit))).Name("UserEdit").Methods("POST")
	r.Path("/users/{id}/delete").Handler(
		s.Handler(requireAdmin(UserDelete))).Name("UserDelete").Methods("POST")
	r.Path("/users/{id}/role").Handler(
		s.Handler(requireAdmin(UserRoleToggle))).Name("UserRoleToggle").Methods("POST")
}
