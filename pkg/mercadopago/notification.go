package mercadopago

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Notification types that concern subscriptions.
const (
	TopicSubscriptionPreapproval = "subscription_preapproval"
	TopicPreapproval             = "preapproval"
)

// Notification is a decoded webhook delivery.
type Notification struct {
	ID       string
	Type     string
	Action   string
	DataID   string
	LiveMode bool
}

// IsSubscription reports whether the delivery concerns a preapproval.
func (n *Notification) IsSubscription() bool {
	return n.Type == TopicSubscriptionPreapproval || n.Type == TopicPreapproval
}

// DedupeKey identifies a delivery for redelivery suppression. It is empty for
// deliveries without a notification id, such as topic-style ones, which cannot
// be told apart from later deliveries about the same preapproval.
func (n *Notification) DedupeKey() string {
	if n.ID == "" {
		return ""
	}
	return n.Type + ":" + n.DataID + ":" + n.ID + ":" + n.Action
}

type notificationEnvelope struct {
	ID       flexString `json:"id"`
	Type     string     `json:"type"`
	Topic    string     `json:"topic"`
	Action   string     `json:"action"`
	LiveMode bool       `json:"live_mode"`
	Data     struct {
		ID flexString `json:"id"`
	} `json:"data"`
}

// ParseNotification decodes the webhook body. The type falls back to "topic";
// data.id falls back to the data.id and id query parameters, which MercadoPago
// also sends and signs.
func ParseNotification(body []byte, query url.Values) (*Notification, error) {
	var env notificationEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}

	n := &Notification{
		ID:       string(env.ID),
		Type:     env.Type,
		Action:   env.Action,
		DataID:   string(env.Data.ID),
		LiveMode: env.LiveMode,
	}
	if n.Type == "" {
		n.Type = env.Topic
	}
	if n.Type == "" && query != nil {
		n.Type = firstNonEmpty(query.Get("type"), query.Get("topic"))
	}
	if query != nil {
		if qid := firstNonEmpty(query.Get("data.id"), query.Get("id")); qid != "" {
			n.DataID = qid
		}
	}
	return n, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// flexString accepts both JSON strings and numbers; the provider uses either
// for ids depending on the notification kind.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		v, err := strconv.Unquote(raw)
		if err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be string or number: %w", err)
	}
	*s = flexString(n.String())
	return nil
}
