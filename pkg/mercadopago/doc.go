// Package mercadopago is a small client for the MercadoPago subscriptions
// (preapproval) API plus webhook helpers.
//
// The client goes through go-retryablehttp for transport retries and a
// gobreaker circuit breaker so a failing provider does not pile up blocked
// webhook handlers. Provider 4xx responses do not trip the breaker.
//
//	client, err := mercadopago.NewClient(cfg, mercadopago.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	pre, err := client.GetPreapproval(ctx, "2c938084726fca480172750000000000")
//
// Webhook deliveries are verified with SignatureVerifier and decoded with
// ParseNotification:
//
//	v := mercadopago.NewSignatureVerifier(cfg.WebhookSecret, 0)
//	n, err := mercadopago.ParseNotification(body, r.URL.Query())
//	err = v.Verify(r.Header.Get("x-signature"), r.Header.Get("x-request-id"), n.DataID)
package mercadopago
