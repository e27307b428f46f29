package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// SubscriptionID records the provider subscription (preapproval) id.
func SubscriptionID(id string) slog.Attr {
	return slog.String("subscription_id", id)
}

func PlanID(id string) slog.Attr {
	return slog.String("plan_id", id)
}

// Topic records the webhook notification type.
func Topic(topic string) slog.Attr {
	return slog.String("topic", topic)
}

func Status(status string) slog.Attr {
	return slog.String("status", status)
}

// Outcome records the result of a reconciliation step.
func Outcome(outcome string) slog.Attr {
	return slog.String("outcome", outcome)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
