package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"lodge/cmd/identity"
	"lodge/cmd/security/cookie"
)

// dummySalt feeds a throwaway hash computation when the login email is
// unknown, so response timing does not reveal whether an account exists.
const dummySalt = "4sSLE9Fl1i02hyTdzxA51w"

func (h *Handler) signupForm(w http.ResponseWriter, r *http.Request, v Visitor) {
	h.render(w, http.StatusOK, "signup", pageData{
		Visitor: v,
		Title:   "Sign up",
		Error:   formError(r),
	})
}

// signupSubmit admits a new identity. Validation short-circuits: the first
// violated rule decides the form error, in a fixed order.
func (h *Handler) signupSubmit(w http.ResponseWriter, r *http.Request, _ Visitor) {
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/signup", Other, "")
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	pass := r.PostFormValue("password")
	repeat := r.PostFormValue("password_repeat")
	realName := strings.TrimSpace(r.PostFormValue("real_name"))
	handle := strings.TrimSpace(r.PostFormValue("handle"))
	mmost := strings.TrimSpace(r.PostFormValue("mmost"))

	if email == "" || pass == "" || handle == "" || mmost == "" {
		redirectWithError(w, r, "/signup", Credentials, "")
		return
	}
	if utf8.RuneCountInString(handle) > identity.HandleMaxLen ||
		utf8.RuneCountInString(mmost) > identity.MmostMaxLen {
		redirectWithError(w, r, "/signup", Length, "")
		return
	}
	if pass != repeat {
		redirectWithError(w, r, "/signup", PasswordMismatch, "")
		return
	}
	if identity.IsReservedHandle(handle) {
		redirectWithError(w, r, "/signup", ReservedName, "")
		return
	}

	ctx := r.Context()

	taken, err := h.store.EmailTaken(ctx, email)
	if err != nil {
		h.internalError(w, "auth.signup.check.fail", err)
		return
	}
	if taken {
		redirectWithError(w, r, "/signup", EmailExists, "")
		return
	}
	taken, err = h.store.HandleTaken(ctx, handle)
	if err != nil {
		h.internalError(w, "auth.signup.check.fail", err)
		return
	}
	if taken {
		redirectWithError(w, r, "/signup", GitExists, "")
		return
	}
	taken, err = h.store.MmostTaken(ctx, mmost)
	if err != nil {
		h.internalError(w, "auth.signup.check.fail", err)
		return
	}
	if taken {
		redirectWithError(w, r, "/signup", MmostExists, "")
		return
	}

	hash, salt, err := h.passwords.HashNew(pass)
	if err != nil {
		h.internalError(w, "auth.signup.hash.fail", err)
		return
	}

	u, err := h.store.CreateUser(ctx, identity.NewUser{
		RealName:     realName,
		Handle:       handle,
		Email:        email,
		Mmost:        mmost,
		PasswordHash: hash,
		Salt:         salt,
	})
	if err != nil {
		// The pre-checks race against concurrent registrations; the store's
		// unique constraints are the backstop and are mapped the same way.
		if field, ok := identity.ConflictField(err); ok {
			switch field {
			case "email":
				redirectWithError(w, r, "/signup", EmailExists, "")
			case "handle":
				redirectWithError(w, r, "/signup", GitExists, "")
			case "mmost":
				redirectWithError(w, r, "/signup", MmostExists, "")
			default:
				h.internalError(w, "auth.signup.insert.fail", err)
			}
			return
		}
		h.internalError(w, "auth.signup.insert.fail", err)
		return
	}

	if err := h.cookies.Set(w, u.ID, time.Now()); err != nil {
		h.internalError(w, "auth.signup.cookie.fail", err)
		return
	}

	h.auditRegistration(ctx, u.ID, u.Email)
	if h.counters != nil {
		h.counters.CountSignup()
	}
	h.log.Info("auth.signup.ok", "user_id", u.ID)

	http.Redirect(w, r, fmt.Sprintf("/users/%d", u.ID), http.StatusSeeOther)
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request, v Visitor) {
	h.render(w, http.StatusOK, "login", pageData{
		Visitor: v,
		Title:   "Log in",
		Error:   formError(r),
		LoginTo: r.URL.Query().Get("to"),
	})
}

func (h *Handler) loginSubmit(w http.ResponseWriter, r *http.Request, _ Visitor) {
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/login", Other, "")
		return
	}

	to := r.URL.Query().Get("to")
	email := strings.TrimSpace(r.PostFormValue("email"))
	pass := r.PostFormValue("password")

	u, err := h.store.GetByEmail(r.Context(), email)
	if err != nil {
		if identity.IsNotFound(err) {
			_ = h.passwords.Hash(pass, dummySalt)
			h.countLogin("failed")
			h.log.Info("auth.login.fail", "reason", "unknown_email")
			redirectWithError(w, r, "/login", Email, to)
			return
		}
		h.internalError(w, "auth.login.lookup.fail", err)
		return
	}

	if !u.Active {
		h.countLogin("failed")
		h.log.Info("auth.login.fail", "reason", "inactive", "user_id", u.ID)
		redirectWithError(w, r, "/login", Credentials, to)
		return
	}
	if !h.passwords.Verify(pass, u.PasswordHash, u.Salt) {
		h.countLogin("failed")
		h.log.Info("auth.login.fail", "reason", "bad_password", "user_id", u.ID)
		redirectWithError(w, r, "/login", Password, to)
		return
	}

	if err := h.cookies.Set(w, u.ID, time.Now()); err != nil {
		h.internalError(w, "auth.login.cookie.fail", err)
		return
	}

	h.countLogin("ok")
	h.log.Info("auth.login.ok", "user_id", u.ID)

	if to == "" {
		to = "/"
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// logout clears the session cookie. It has no failure mode: a missing cookie
// still ends at the site root.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request, _ Visitor) {
	cookie.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) countLogin(outcome string) {
	if h.counters != nil {
		h.counters.CountLogin(outcome)
	}
}
