package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

// StatusCheck reports whether the database can be reached.
type StatusCheck func(ctx context.Context) error

type HealthHandler struct {
	check StatusCheck
	log   *otelzap.SugaredLogger
}

// NewHealthHandler returns a handler for liveness and readiness probes. A nil
// check means no database is configured.
func NewHealthHandler(check StatusCheck, log *otelzap.SugaredLogger) *HealthHandler {
	return &HealthHandler{
		check: check,
		log:   log,
	}
}

// Liveness answers 200 as long as the process is serving requests.
func (hh HealthHandler) Liveness(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.WriteHeader(http.StatusOK)
	rw.Write([]byte("ok"))
}

// Readiness checks the database, if there is one.
func (hh HealthHandler) Readiness(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if hh.check == nil {
		respond(ctx, rw, http.StatusOK, map[string]string{
			"status":   "ok",
			"database": "not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := hh.check(ctx); err != nil {
		hh.log.ErrorwContext(ctx, "Readiness", "status", "database not ready", "error", err.Error())
		respond(ctx, rw, http.StatusInternalServerError, map[string]string{
			"status":   "db not ready",
			"database": "disconnected",
		})
		return
	}

	respond(ctx, rw, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "connected",
	})
}
