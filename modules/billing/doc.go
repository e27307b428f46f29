// Package billing mounts the subscription HTTP surface: the MercadoPago
// webhook receiver, checkout redirects, access queries, the page guard and
// a small bearer-protected admin API.
//
//	mod := billing.NewModule(cfg, svc, verifier,
//	    billing.WithLogger(log),
//	    billing.WithMetrics(billing.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//	r.Mount("/", mod.Handle())
//
// Every access decision, including RequireActiveSubscription, is delegated to
// subscription.Service.HasActiveAccess.
package billing
