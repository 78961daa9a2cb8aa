package webui

import (
	"net/http"
	"time"

	"github.com/hookbox/hookbox/pkg/rest/model"
	"github.com/hookbox/hookbox/pkg/server/web"
)

// Health reports webmail health, pinging the document store.
func Health(w http.ResponseWriter, req *http.Request, ctx *web.Context) error {
	health := &model.JSONHealthV1{
		Status:    "healthy",
		Service:   "Hookbox Webmail",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := ctx.Manager.Ping(req.Context()); err != nil {
		health.Status = "unhealthy"
		health.Error = err.Error()
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	return web.RenderJSON(w, health)
}
