package web

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// auditRegistration writes the immutable registration audit record. The
// insert is best-effort: a failing audit write is logged, never surfaced to
// the user, and never rolls back the registration.
func (h *Handler) auditRegistration(ctx context.Context, userID int64, email string) {
	if h.pool == nil {
		return
	}

	id := ulid.Make().String()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := h.pool.Exec(ctx,
		`INSERT INTO audit_log (id, event, actor_id, subject_id, note)
		 VALUES ($1, $2, $3, $3, $4)`,
		id, "user.signup", userID, email,
	)
	if err != nil {
		h.log.Error("audit.write.fail", "event", "user.signup", "user_id", userID, "err", err)
		return
	}

	h.log.Info("audit.write.ok", "event", "user.signup", "audit_id", id, "user_id", userID)
}
