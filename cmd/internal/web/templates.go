package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"lodge/cmd/identity"
)

//go:embed templates/*.html
var templateFS embed.FS

type templates struct {
	set *template.Template
}

func loadTemplates() (*templates, error) {
	set, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &templates{set: set}, nil
}

// pageData is the single payload shape every page receives. Unused fields
// stay zero.
type pageData struct {
	Visitor Visitor
	Title   string

	// Error carries the decoded form error of the current page, if any.
	Error   *FormError
	LoginTo string

	Users  []identity.User
	User   identity.User
	Search string
}

// render executes the named page into a buffer first so a template failure
// becomes a clean 500 instead of a half-written body.
func (h *Handler) render(w http.ResponseWriter, status int, page string, data pageData) {
	var buf bytes.Buffer
	if err := h.tmpl.set.ExecuteTemplate(&buf, page, data); err != nil {
		h.log.Error("web.render.fail", "page", page, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// formError decodes the `e` query parameter, nil when absent.
func formError(r *http.Request) *FormError {
	s := r.URL.Query().Get("e")
	if s == "" {
		return nil
	}
	e := ParseFormError(s)
	return &e
}
