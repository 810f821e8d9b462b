package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const layoutTemplate = "layout.html"

var pageTemplates = []string{
	"landing.html",
	"login.html",
	"signup.html",
	"forgot_password.html",
	"loading.html",
	"onboarding.html",
	"home.html",
	"progress.html",
	"goals.html",
	"jobs.html",
	"guilds.html",
	"learn.html",
}

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

var templateFuncs = template.FuncMap{
	"percent": func(n, of int) int {
		if of <= 0 {
			return 0
		}
		if n >= of {
			return 100
		}
		return n * 100 / of
	},
}

// ParseTemplate parses a page together with the shared layout.
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(layoutTemplate).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), layoutTemplate, name)
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return nil, fmt.Errorf("[parsePages] %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data PageData) {
	tmpl, ok := s.pages[page]
	if !ok {
		log.Error().Str("page", page).Msg("unknown page template")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}
	data.AppName = s.config.GetAppName()
	data.RequestID = requestID(r)
	if data.Error == "" {
		data.Error = r.URL.Query().Get(errorMsgParam)
	}
	if data.Notice == "" {
		data.Notice = r.URL.Query().Get(noticeMsgParam)
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Err(err).Str("page", page).Msg("Failed to render template")
	}
}
