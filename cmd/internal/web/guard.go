package web

import (
	"net/http"
	"net/url"

	"lodge/cmd/identity"
)

// Level is the capability a handler requires. Resolution happens once per
// request, so every authorization decision flows through guard.
type Level int

const (
	// LevelAnyone accepts guests; a valid cookie still resolves the identity
	// so the page can render differently for members.
	LevelAnyone Level = iota

	// LevelUser requires a valid cookie resolving to an active identity.
	LevelUser

	// LevelAdmin additionally requires an elevated tier.
	LevelAdmin
)

// Visitor is the per-request identity resolution. User is nil for guests.
type Visitor struct {
	User *identity.User
}

// LoggedIn reports whether the request carries a resolved identity.
func (v Visitor) LoggedIn() bool { return v.User != nil }

// Elevated reports whether the visitor may perform administrative actions.
func (v Visitor) Elevated() bool { return v.User != nil && v.User.Elevated() }

// resolveVisitor turns the session cookie into a Visitor. Missing, invalid,
// or dangling cookies all yield a guest; they are not errors.
func (h *Handler) resolveVisitor(r *http.Request) Visitor {
	id, ok := h.cookies.FromRequest(r)
	if !ok {
		return Visitor{}
	}

	u, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if !identity.IsNotFound(err) {
			h.log.Error("guard.resolve.fail", "user_id", id, "err", err)
		}
		return Visitor{}
	}
	if !u.Active {
		return Visitor{}
	}
	return Visitor{User: &u}
}

// guard wraps a page handler with the capability check for level.
func (h *Handler) guard(level Level, fn func(http.ResponseWriter, *http.Request, Visitor)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := h.resolveVisitor(r)

		switch level {
		case LevelAnyone:
			// Guests welcome.
		case LevelUser:
			if !v.LoggedIn() {
				h.redirectToLogin(w, r)
				return
			}
		case LevelAdmin:
			if !v.LoggedIn() {
				h.redirectToLogin(w, r)
				return
			}
			if !v.Elevated() {
				h.forbidden(w, v)
				return
			}
		}

		fn(w, r, v)
	}
}

// redirectToLogin sends an unauthenticated request to the login page with
// the original path preserved as the post-login target.
func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Path
	if r.URL.RawQuery != "" {
		to += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, "/login?to="+url.QueryEscape(to), http.StatusSeeOther)
}

func (h *Handler) forbidden(w http.ResponseWriter, v Visitor) {
	h.render(w, http.StatusForbidden, "forbidden", pageData{Visitor: v, Title: "Forbidden"})
}

func (h *Handler) notFound(w http.ResponseWriter, _ *http.Request, v Visitor) {
	h.render(w, http.StatusNotFound, "notfound", pageData{Visitor: v, Title: "Not Found"})
}
