package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	leadintake "github.com/phbpx/lead-intake"
	"github.com/phbpx/lead-intake/metrics"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

// NoDBLeadID is returned in place of a lead id when no database is
// configured.
const NoDBLeadID = "no-db"

const noDBMessage = "Database not configured; lead was logged but not stored"

// LeadHandler accepts lead form submissions. A nil store puts the handler in
// degraded mode: submissions are validated and logged but never written.
type LeadHandler struct {
	store   leadintake.LeadStore
	log     *otelzap.SugaredLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewLeadHandler(store leadintake.LeadStore, log *otelzap.SugaredLogger, m *metrics.Metrics) *LeadHandler {
	return &LeadHandler{
		store:   store,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// Ingest handles POST /ingest/lead.
func (lh LeadHandler) Ingest(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer func() {
		if rec := recover(); rec != nil {
			lh.log.ErrorwContext(ctx, "Ingest", "status", "unexpected panic", "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
			lh.metrics.ObserveLead(metrics.OutcomeUnexpected)
			respondErr(ctx, rw, http.StatusInternalServerError, errInternal)
		}
	}()

	var sub leadintake.Submission

	raw, err := decode(r, &sub)
	if err != nil {
		lh.log.InfowContext(ctx, "Ingest", "status", "rejected body", "error", err.Error())
		lh.metrics.ObserveLead(metrics.OutcomeInvalid)
		respondErr(ctx, rw, decodeStatus(err), err)
		return
	}

	lh.log.InfowContext(ctx, "Ingest", "status", "received", "payload", string(raw))

	if err := sub.Validate(); err != nil {
		lh.log.InfowContext(ctx, "Ingest", "status", "validation failed", "error", err.Error())
		lh.metrics.ObserveLead(metrics.OutcomeInvalid)
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	if lh.store == nil {
		lh.log.WarnwContext(ctx, "Ingest", "status", "database not configured, lead not stored")
		lh.metrics.ObserveLead(metrics.OutcomeNoDB)
		respond(ctx, rw, http.StatusAccepted, result{
			Status:  statusAccepted,
			LeadID:  NoDBLeadID,
			Message: noDBMessage,
		})
		return
	}

	rec := leadintake.NewLeadRecord(sub, lh.now())

	id, err := lh.store.InsertLead(ctx, rec)
	if err != nil {
		var storeErr *leadintake.StoreError
		if errors.As(err, &storeErr) {
			lh.log.ErrorwContext(ctx, "Ingest", "status", "insert lead failed", "error", storeErr.Message, "code", storeErr.Code)
			lh.metrics.ObserveLead(metrics.OutcomeStoreError)
			respond(ctx, rw, http.StatusInternalServerError, result{
				Status:  statusError,
				Message: storeErr.Message,
				Code:    storeErr.Code,
			})
			return
		}

		lh.log.ErrorwContext(ctx, "Ingest", "status", "unexpected error", "error", err.Error())
		lh.metrics.ObserveLead(metrics.OutcomeUnexpected)
		respondErr(ctx, rw, http.StatusInternalServerError, errInternal)
		return
	}

	lh.log.InfowContext(ctx, "Ingest", "status", "lead stored", "lead_id", id)

	lh.recordEvent(ctx, id, rec)

	lh.metrics.ObserveLead(metrics.OutcomeAccepted)
	respond(ctx, rw, http.StatusAccepted, result{
		Status: statusAccepted,
		LeadID: id,
	})
}

// recordEvent writes the lead_created audit event. It is a best-effort
// secondary write: failures, including panics from the store, are logged and
// dropped.
func (lh LeadHandler) recordEvent(ctx context.Context, leadID int64, rec leadintake.LeadRecord) {
	ev := leadintake.NewLeadCreatedEvent(leadID, rec, lh.now())

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("insert event panicked: %v", p)
			}
		}()
		return lh.store.InsertEvent(ctx, ev)
	}()

	lh.metrics.ObserveEvent(err)
	if err != nil {
		lh.log.WarnwContext(ctx, "Ingest", "status", "insert lead event failed", "lead_id", leadID, "event_id", ev.ID, "error", err.Error())
	}
}
