package web

import (
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hookbox/hookbox/pkg/config"
)

// templateCache parses and optionally caches the webmail page templates.
type templateCache struct {
	mu     sync.Mutex
	cached map[string]*template.Template
	conf   config.Webmail
	funcs  template.FuncMap
}

func newTemplateCache(conf config.Webmail, s *Server) *templateCache {
	return &templateCache{
		cached: map[string]*template.Template{},
		conf:   conf,
		funcs: template.FuncMap{
			"friendlyTime": FriendlyTime,
			"reverse":      s.Reverse,
			"stringsJoin":  strings.Join,
			"textToHtml":   TextToHTML,
		},
	}
}

// RenderTemplate fetches the named template and renders it to the provided
// ResponseWriter.
func (s *Server) RenderTemplate(name string, w http.ResponseWriter, data interface{}) error {
	t, err := s.templates.parse(name)
	if err != nil {
		log.Error().Str("module", "web").Str("template", name).Err(err).
			Msg("Error in template")
		return err
	}
	w.Header().Set("Expires", "-1")
	return t.Execute(w, data)
}

// parse loads the requested template along with _base.html, caching the
// result (if configured to do so).
func (tc *templateCache) parse(name string) (*template.Template, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if t, ok := tc.cached[name]; ok {
		return t, nil
	}
	tempFile := filepath.Join(tc.conf.TemplateDir, filepath.FromSlash(name))
	t := template.New("_base.html").Funcs(tc.funcs)
	t, err := t.ParseFiles(filepath.Join(tc.conf.TemplateDir, "_base.html"), tempFile)
	if err != nil {
		return nil, err
	}

	// Caching can be disabled for template development.
	if tc.conf.TemplateCache {
		tc.cached[name] = t
	}
	return t, nil
}
