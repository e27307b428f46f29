package billing

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/paygate/pkg/logger"
	"github.com/dmitrymomot/paygate/pkg/subscription"
	"github.com/dmitrymomot/paygate/svc/auth"
)

const (
	msgNoSubscription = "No tienes una suscripcion activa"
	msgPortalFailed   = "No pudimos abrir tu suscripcion, intenta de nuevo"
)

// portal sends the caller to the provider page for their active
// subscription, where they can change the card or cancel.
func (m *Module) portal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.GetUserFromContext(ctx)

	sub, err := m.svc.GetActiveSubscription(ctx, user.ID)
	switch {
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		m.redirectWithError(w, r, msgNoSubscription)
		return
	case err != nil:
		m.log.ErrorContext(ctx, "portal lookup failed", logger.UserID(user.ID), logger.Error(err))
		m.redirectWithError(w, r, msgPortalFailed)
		return
	}

	http.Redirect(w, r, m.portalURL(sub.ProviderID), http.StatusSeeOther)
}

func (m *Module) portalURL(providerID string) string {
	return strings.TrimRight(m.cfg.PortalURL, "/") + "/" + url.PathEscape(providerID)
}
