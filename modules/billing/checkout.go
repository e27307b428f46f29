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
	msgLoginRequired  = "Debes iniciar sesion para suscribirte"
	msgCheckoutFailed = "No pudimos iniciar el pago, intenta de nuevo"
)

// checkout redirects the caller to the provider payment page. Failures
// redirect back to the pricing page with ?error=<message>.
func (m *Module) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	planID := strings.TrimSpace(r.FormValue("plan"))
	cycle := subscription.BillingCycle(strings.ToLower(strings.TrimSpace(r.FormValue("cycle"))))

	user := auth.GetUserFromContext(ctx)
	if user == nil {
		m.metrics.Checkouts.WithLabelValues(planID, string(cycle), "unauthenticated").Inc()
		m.redirectWithError(w, r, msgLoginRequired)
		return
	}

	link, err := m.svc.CreateCheckoutLink(ctx, *user, planID, cycle)
	switch {
	case errors.Is(err, subscription.ErrAlreadySubscribed) && link != nil:
		m.metrics.Checkouts.WithLabelValues(planID, string(cycle), "already_subscribed").Inc()
		http.Redirect(w, r, link.URL, http.StatusSeeOther)
		return
	case err != nil:
		m.metrics.Checkouts.WithLabelValues(planID, string(cycle), "error").Inc()
		if statusFor(err) >= http.StatusInternalServerError {
			m.log.ErrorContext(ctx, "checkout failed", logger.UserID(user.ID), logger.PlanID(planID), logger.Error(err))
			m.redirectWithError(w, r, msgCheckoutFailed)
			return
		}
		m.log.WarnContext(ctx, "checkout rejected", logger.UserID(user.ID), logger.PlanID(planID), logger.Error(err))
		m.redirectWithError(w, r, publicMessage(err))
		return
	}

	m.metrics.Checkouts.WithLabelValues(planID, string(cycle), "redirected").Inc()
	http.Redirect(w, r, link.URL, http.StatusSeeOther)
}

func (m *Module) redirectWithError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, m.pricingURL("error="+url.QueryEscape(msg)), http.StatusSeeOther)
}
