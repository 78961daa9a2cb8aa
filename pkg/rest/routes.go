package rest

import (
	"github.com/hookbox/hookbox/pkg/config"
	"github.com/hookbox/hookbox/pkg/server/web"
)

// SetupRoutes populates the routes for the webhook API. Every endpoint
// other than the health check requires the Bearer API key.
func SetupRoutes(s *web.Server, conf config.Webhook) {
	guard := newKeyGuard(conf)
	r := s.Router()

	r.Path("/").Handler(
		s.Handler(HealthV1)).Name("HealthV1").Methods("GET")
	r.Path("/webhook").Handler(
		guard.wrap(s.Handler(WebhookReceiveV1))).Name("WebhookReceiveV1").Methods("POST")
	r.Path("/emails").Handler(
		guard.wrap(s.Handler(EmailListV1))).Name("EmailListV1").Methods("GET")
	r.Path("/emails/{id}").Handler(
		guard.wrap(s.Handler(EmailShowV1))).Name("EmailShowV1").Methods("GET")
	r.Path("/emails/{id}/attachment/{name}").Handler(
		guard.wrap(s.Handler(EmailAttachmentV1))).Name("EmailAttachmentV1").Methods("GET")
	r.Path("/monitor/messages").Handler(
		guard.wrap(s.Handler(MonitorMessagesV1))).Name("MonitorMessagesV1").Methods("GET")
}
