package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/paygate/pkg/logger"
	"github.com/dmitrymomot/paygate/pkg/mercadopago"
)

const (
	headerSignature = "x-signature"
	headerRequestID = "x-request-id"
)

// webhook reads the body as raw bytes, checks the signature header is
// present, validates JSON, verifies the HMAC and hands the notification to the
// service. Rejections before dispatch never touch storage.
func (m *Module) webhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, m.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			m.observeWebhook("", "rejected", start)
			writeText(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		m.observeWebhook("", "rejected", start)
		writeText(w, http.StatusBadRequest, msgReadBody)
		return
	}

	signature := r.Header.Get(headerSignature)
	if strings.TrimSpace(signature) == "" {
		m.log.WarnContext(ctx, "webhook without signature")
		m.observeWebhook("", "rejected", start)
		writeText(w, http.StatusBadRequest, msgMissingSignature)
		return
	}

	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		m.log.WarnContext(ctx, "webhook with invalid json", logger.Error(err))
		m.observeWebhook("", "rejected", start)
		writeText(w, http.StatusBadRequest, msgInvalidJSON+err.Error())
		return
	}

	n, err := mercadopago.ParseNotification(body, r.URL.Query())
	if err != nil {
		m.log.WarnContext(ctx, "webhook with invalid payload", logger.Error(err))
		m.observeWebhook("", "rejected", start)
		writeText(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	log := m.log.With(logger.Topic(n.Type), logger.SubscriptionID(n.DataID))

	if err := m.verifier.Verify(signature, r.Header.Get(headerRequestID), n.DataID); err != nil {
		log.WarnContext(ctx, "webhook signature rejected", logger.Error(err))
		m.observeWebhook(n.Type, "rejected", start)
		writeText(w, http.StatusBadRequest, msgInvalidSignature)
		return
	}

	outcome, err := m.svc.HandleNotification(ctx, *n)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.ErrorContext(ctx, "webhook processing failed", logger.Error(err))
		} else {
			log.WarnContext(ctx, "webhook rejected", logger.Error(err))
		}
		m.observeWebhook(n.Type, "error", start)
		writeText(w, status, publicMessage(err))
		return
	}

	log.InfoContext(ctx, "webhook processed",
		logger.Outcome(string(outcome)),
		logger.Duration(time.Since(start)),
	)
	m.observeWebhook(n.Type, string(outcome), start)
	writeText(w, http.StatusOK, msgOK)
}
