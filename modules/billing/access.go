package billing

import (
	"net/http"

	"github.com/dmitrymomot/paygate/pkg/logger"
	"github.com/dmitrymomot/paygate/svc/auth"
)

func (m *Module) access(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r.Context())
	info, err := m.svc.CheckAccess(r.Context(), user.ID)
	if err != nil {
		m.log.ErrorContext(r.Context(), "access check failed", logger.UserID(user.ID), logger.Error(err))
		writeJSON(w, statusFor(err), map[string]string{"error": publicMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (m *Module) plans(w http.ResponseWriter, r *http.Request) {
	plans, err := m.svc.ListPlans(r.Context())
	if err != nil {
		m.log.ErrorContext(r.Context(), "list plans failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": publicMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

// RequireActiveSubscription guards pages that need a paid plan. Callers
// without access are redirected to the pricing page with
// ?message=subscription_required.
func (m *Module) RequireActiveSubscription(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUserFromContext(r.Context())
		if user == nil {
			http.Redirect(w, r, m.pricingURL("message=subscription_required"), http.StatusSeeOther)
			return
		}

		ok, err := m.svc.HasActiveAccess(r.Context(), user.ID)
		if err != nil {
			m.log.ErrorContext(r.Context(), "access guard failed", logger.UserID(user.ID), logger.Error(err))
			writeText(w, http.StatusInternalServerError, "Internal error")
			return
		}
		if !ok {
			http.Redirect(w, r, m.pricingURL("message=subscription_required"), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
