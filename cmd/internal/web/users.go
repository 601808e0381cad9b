package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"lodge/cmd/identity"
)

func (h *Handler) index(w http.ResponseWriter, _ *http.Request, v Visitor) {
	h.render(w, http.StatusOK, "index", pageData{Visitor: v, Title: "Lodge"})
}

func (h *Handler) dashboard(w http.ResponseWriter, _ *http.Request, v Visitor) {
	h.render(w, http.StatusOK, "dashboard", pageData{
		Visitor: v,
		Title:   "Dashboard",
		User:    *v.User,
	})
}

func (h *Handler) usersList(w http.ResponseWriter, r *http.Request, v Visitor) {
	search := strings.TrimSpace(r.URL.Query().Get("s"))

	users, err := h.store.List(r.Context(), search)
	if err != nil {
		h.internalError(w, "users.list.fail", err)
		return
	}

	h.render(w, http.StatusOK, "users", pageData{
		Visitor: v,
		Title:   "Members",
		Users:   users,
		Search:  search,
	})
}

// usersJSON serves the member list as JSON. User's json tags exclude the
// credential fields.
func (h *Handler) usersJSON(w http.ResponseWriter, r *http.Request, _ Visitor) {
	users, err := h.store.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("s")))
	if err != nil {
		h.internalError(w, "users.list.fail", err)
		return
	}
	if users == nil {
		users = []identity.User{}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(users); err != nil {
		h.log.Error("users.json.fail", "err", err)
	}
}

// userProfile accepts either a numeric id or a handle; handles redirect to
// the canonical id URL.
func (h *Handler) userProfile(w http.ResponseWriter, r *http.Request, v Visitor) {
	ref := r.PathValue("ref")

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		u, err := h.store.GetByID(r.Context(), id)
		if err != nil {
			if identity.IsNotFound(err) {
				h.notFound(w, r, v)
				return
			}
			h.internalError(w, "users.profile.fail", err)
			return
		}
		h.render(w, http.StatusOK, "user", pageData{Visitor: v, Title: u.Handle, User: u})
		return
	}

	u, err := h.store.GetByHandle(r.Context(), ref)
	if err != nil {
		if identity.IsNotFound(err) {
			h.notFound(w, r, v)
			return
		}
		h.internalError(w, "users.profile.fail", err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/users/%d", u.ID), http.StatusSeeOther)
}

// canEdit is the edit authorization rule: owner or elevated.
func canEdit(v Visitor, targetID int64) bool {
	if !v.LoggedIn() {
		return false
	}
	return v.User.ID == targetID || v.Elevated()
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request, v Visitor) {
	target, ok := h.editTarget(w, r, v)
	if !ok {
		return
	}

	h.render(w, http.StatusOK, "edit_user", pageData{
		Visitor: v,
		Title:   "Edit " + target.Handle,
		User:    target,
		Error:   formError(r),
	})
}

func (h *Handler) editSubmit(w http.ResponseWriter, r *http.Request, v Visitor) {
	target, ok := h.editTarget(w, r, v)
	if !ok {
		return
	}
	editPath := fmt.Sprintf("/users/%d/edit", target.ID)

	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, editPath, Other, "")
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	handle := strings.TrimSpace(r.PostFormValue("handle"))
	mmost := strings.TrimSpace(r.PostFormValue("mmost"))
	pass := r.PostFormValue("password")

	if email == "" || handle == "" || mmost == "" {
		redirectWithError(w, r, editPath, Credentials, "")
		return
	}
	if utf8.RuneCountInString(handle) > identity.HandleMaxLen ||
		utf8.RuneCountInString(mmost) > identity.MmostMaxLen {
		redirectWithError(w, r, editPath, Length, "")
		return
	}
	if !strings.EqualFold(handle, target.Handle) && identity.IsReservedHandle(handle) {
		redirectWithError(w, r, editPath, ReservedName, "")
		return
	}

	up := identity.UpdateUser{
		RealName:     strings.TrimSpace(r.PostFormValue("real_name")),
		Handle:       handle,
		Email:        email,
		Mmost:        mmost,
		Bio:          r.PostFormValue("bio"),
		PasswordHash: target.PasswordHash,
		Salt:         target.Salt,
		Active:       target.Active,
		Tier:         target.Tier,
	}

	// An empty password field keeps the stored credentials; a filled one
	// rehashes with a fresh salt.
	if pass != "" {
		if pass != r.PostFormValue("password_repeat") {
			redirectWithError(w, r, editPath, PasswordMismatch, "")
			return
		}
		hash, salt, err := h.passwords.HashNew(pass)
		if err != nil {
			h.internalError(w, "users.edit.hash.fail", err)
			return
		}
		up.PasswordHash, up.Salt = hash, salt
	}

	// Tier and active flag move only under an elevated actor, and the root
	// identity's tier never moves at all.
	if v.Elevated() {
		up.Active = r.PostFormValue("active") != ""
		if target.ID != identity.RootUserID {
			if tier, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("tier"))); err == nil && tier >= 0 {
				up.Tier = tier
			}
		}
	}

	if err := h.store.Update(r.Context(), target.ID, up); err != nil {
		if field, ok := identity.ConflictField(err); ok {
			switch field {
			case "email":
				redirectWithError(w, r, editPath, EmailExists, "")
			case "handle":
				redirectWithError(w, r, editPath, GitExists, "")
			case "mmost":
				redirectWithError(w, r, editPath, MmostExists, "")
			default:
				h.internalError(w, "users.edit.fail", err)
			}
			return
		}
		if identity.IsNotFound(err) {
			h.notFound(w, r, v)
			return
		}
		h.internalError(w, "users.edit.fail", err)
		return
	}

	h.log.Info("users.edit.ok", "user_id", target.ID, "actor_id", v.User.ID)
	http.Redirect(w, r, fmt.Sprintf("/users/%d", target.ID), http.StatusSeeOther)
}

// editTarget resolves the {id} path segment and applies the edit
// authorization rule. It has already written the response when ok is false.
func (h *Handler) editTarget(w http.ResponseWriter, r *http.Request, v Visitor) (identity.User, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.notFound(w, r, v)
		return identity.User{}, false
	}

	target, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if identity.IsNotFound(err) {
			h.notFound(w, r, v)
			return identity.User{}, false
		}
		h.internalError(w, "users.edit.lookup.fail", err)
		return identity.User{}, false
	}

	if !canEdit(v, target.ID) {
		h.forbidden(w, v)
		return identity.User{}, false
	}
	return target, true
}

// deleteUser removes an identity. Elevated only (enforced by the route
// guard); the root identity is never deletable.
func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request, v Visitor) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.notFound(w, r, v)
		return
	}
	if id == identity.RootUserID {
		h.forbidden(w, v)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if identity.IsNotFound(err) {
			h.notFound(w, r, v)
			return
		}
		h.internalError(w, "users.delete.fail", err)
		return
	}

	h.log.Info("users.delete.ok", "user_id", id, "actor_id", v.User.ID)
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}
