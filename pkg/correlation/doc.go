// Package correlation encodes and decodes the checkout correlation key that
// rides on a MercadoPago preapproval as external_reference.
//
// The key binds a provider subscription back to the local user, plan and
// billing cycle. New keys are signed tokens:
//
//	base64url(json payload) "." base64url(truncated HMAC-SHA256)
//
// Checkouts started before signed keys existed carry the delimited form
// "userId|planId|billingCycle"; Codec.Decode still accepts it so those
// subscriptions reconcile.
package correlation
