// Package logger builds *slog.Logger instances with functional options and
// injects request-scoped attributes (request id, environment) from
// context.Context on every record.
//
// New picks a JSON or text handler, applies static attributes, and wraps the
// handler with a decorator that runs the registered ContextExtractor callbacks
// before delegating. Attribute helpers in attr.go keep key names consistent
// across packages:
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Production, "paygate"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "webhook processed",
//		logger.Topic("subscription_preapproval"),
//		logger.SubscriptionID(id),
//	)
//
// Error and UserID return an empty attribute for nil input, so call sites do not
// need nil checks.
package logger
