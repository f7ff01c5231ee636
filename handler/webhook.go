package handler

import (
	"encoding/json"
	"net/http"

	"github.com/phbpx/lead-intake/metrics"
	"github.com/phbpx/lead-intake/whatsapp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

// WebhookHandler acknowledges notifications from the WhatsApp provider.
type WebhookHandler struct {
	log     *otelzap.SugaredLogger
	metrics *metrics.Metrics
}

func NewWebhookHandler(log *otelzap.SugaredLogger, m *metrics.Metrics) *WebhookHandler {
	return &WebhookHandler{
		log:     log,
		metrics: m,
	}
}

// WhatsApp handles POST /webhooks/whatsapp. Any valid JSON body is
// acknowledged; a body that does not match the notification shape is still
// logged raw.
func (wh WebhookHandler) WhatsApp(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body json.RawMessage

	raw, err := decode(r, &body)
	if err != nil {
		wh.log.InfowContext(ctx, "WhatsApp", "status", "rejected body", "error", err.Error())
		wh.metrics.ObserveWebhook("invalid", 0, 0)
		respondErr(ctx, rw, decodeStatus(err), err)
		return
	}

	var n whatsapp.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		wh.log.WarnwContext(ctx, "WhatsApp", "status", "unrecognised notification", "payload", string(raw), "error", err.Error())
		wh.metrics.ObserveWebhook("unrecognised", 0, 0)
		respond(ctx, rw, http.StatusOK, map[string]bool{"received": true})
		return
	}

	s := n.Summarize()
	wh.log.InfowContext(ctx, "WhatsApp",
		"status", "received",
		"payload", string(raw),
		"messages", s.Messages,
		"statuses", s.Statuses,
		"message_types", s.MessageTypes,
		"status_kinds", s.StatusKinds,
		"senders", s.Senders,
	)
	wh.metrics.ObserveWebhook("received", s.Messages, s.Statuses)

	respond(ctx, rw, http.StatusOK, map[string]bool{"received": true})
}
