package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"lodge/cmd/identity"
	"lodge/cmd/security/cookie"
	"lodge/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Counters is the slice of the metrics surface this package feeds.
type Counters interface {
	CountSignup()
	CountLogin(outcome string)
}

// Handler owns every page of the site.
type Handler struct {
	log       *slog.Logger
	store     identity.Store
	pool      *pgxpool.Pool
	passwords password.Config
	cookies   *cookie.Codec
	counters  Counters
	tmpl      *templates
}

// NewHandler wires the site handler. pool may be nil in tests; the audit
// trail is then skipped.
func NewHandler(
	log *slog.Logger,
	store identity.Store,
	pool *pgxpool.Pool,
	passwords password.Config,
	cookies *cookie.Codec,
	counters Counters,
) (*Handler, error) {
	if log == nil {
		return nil, fmt.Errorf("web: nil logger")
	}
	if store == nil {
		return nil, fmt.Errorf("web: nil store")
	}
	if cookies == nil {
		return nil, fmt.Errorf("web: nil cookie codec")
	}

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	return &Handler{
		log:       log,
		store:     store,
		pool:      pool,
		passwords: passwords,
		cookies:   cookies,
		counters:  counters,
		tmpl:      tmpl,
	}, nil
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.guard(LevelAnyone, h.index))

	mux.HandleFunc("GET /signup", h.guard(LevelAnyone, h.signupForm))
	mux.HandleFunc("POST /signup", h.guard(LevelAnyone, h.signupSubmit))
	mux.HandleFunc("GET /login", h.guard(LevelAnyone, h.loginForm))
	mux.HandleFunc("POST /login", h.guard(LevelAnyone, h.loginSubmit))
	mux.HandleFunc("GET /logout", h.guard(LevelAnyone, h.logout))

	mux.HandleFunc("GET /dashboard", h.guard(LevelUser, h.dashboard))

	mux.HandleFunc("GET /users", h.guard(LevelUser, h.usersList))
	mux.HandleFunc("GET /users.json", h.guard(LevelUser, h.usersJSON))
	mux.HandleFunc("GET /users/{ref}", h.guard(LevelUser, h.userProfile))
	mux.HandleFunc("GET /users/{id}/edit", h.guard(LevelUser, h.editForm))
	mux.HandleFunc("POST /users/{id}/edit", h.guard(LevelUser, h.editSubmit))
	mux.HandleFunc("POST /users/{id}/delete", h.guard(LevelAdmin, h.deleteUser))

	// Everything else through the same layout as the rest of the site.
	mux.HandleFunc("/", h.guard(LevelAnyone, h.notFound))
}

// redirectWithError sends the browser back to a form page with the error
// code (and optional login target) attached.
func redirectWithError(w http.ResponseWriter, r *http.Request, page string, code FormError, to string) {
	q := url.Values{}
	q.Set("e", code.String())
	if to != "" {
		q.Set("to", to)
	}
	http.Redirect(w, r, page+"?"+q.Encode(), http.StatusSeeOther)
}

func (h *Handler) internalError(w http.ResponseWriter, event string, err error) {
	h.log.Error(event, "err", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
