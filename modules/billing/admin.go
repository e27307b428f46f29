package billing

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/paygate/pkg/logger"
	"github.com/dmitrymomot/paygate/pkg/subscription"
)

const maxExpiringDays = 365

func (m *Module) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(m.cfg.AdminToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Module) stats(w http.ResponseWriter, r *http.Request) {
	st, err := m.svc.Stats(r.Context())
	if err != nil {
		m.log.ErrorContext(r.Context(), "stats failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": publicMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (m *Module) expiring(w http.ResponseWriter, r *http.Request) {
	days := m.cfg.ExpiringDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d <= 0 || d > maxExpiringDays {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be between 1 and 365"})
			return
		}
		days = d
	}

	subs, err := m.svc.ListExpiring(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		m.log.ErrorContext(r.Context(), "list expiring failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": publicMessage(err)})
		return
	}
	if subs == nil {
		subs = []subscription.Subscription{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days":          days,
		"count":         len(subs),
		"subscriptions": subs,
	})
}
