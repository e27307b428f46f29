// Package clientip resolves the address of the caller behind reverse proxies
// and makes it available to handlers and log records.
//
// Proxy headers are consulted in the configured order and only valid IP
// literals are accepted; anything else falls through to RemoteAddr.
//
//	r.Use(clientip.Middleware(clientip.DefaultHeaders...))
//	log := logger.New(logger.WithContextExtractors(clientip.LoggerExtractor()))
package clientip
