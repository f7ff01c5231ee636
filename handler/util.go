package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	statusAccepted = "accepted"
	statusError    = "error"
)

var (
	errInvalidJSON  = errors.New("invalid JSON body")
	errBodyTooLarge = errors.New("request body too large")
	errInternal     = errors.New("internal server error")
)

// result is the JSON body of every ingest response.
type result struct {
	Status  string      `json:"status"`
	LeadID  interface{} `json:"lead_id,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// decode reads the request body into into and returns the raw bytes for
// logging. Bodies cut short by a size limit report errBodyTooLarge, anything
// that is not valid JSON for into reports errInvalidJSON.
func decode(r *http.Request, into interface{}) ([]byte, error) {
	rawJson, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	if err := json.Unmarshal(rawJson, into); err != nil {
		return rawJson, errInvalidJSON
	}
	return rawJson, nil
}

// decodeStatus maps a decode error to the response status.
func decodeStatus(err error) int {
	if errors.Is(err, errBodyTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func respond(ctx context.Context, rw http.ResponseWriter, status int, data interface{}) {
	ctx, span := otel.GetTracerProvider().Tracer("").Start(ctx, "handler.respond")
	span.SetAttributes(attribute.Int("http.status", status))
	defer span.End()

	if status == http.StatusNoContent || data == nil {
		rw.WriteHeader(status)
		return
	}

	rawJson, err := json.Marshal(data)
	if err != nil {
		panic("respond-json-marshal:" + err.Error())
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	rw.Write(rawJson)
}

func respondErr(ctx context.Context, rw http.ResponseWriter, status int, err error) {
	respond(ctx, rw, status, result{
		Status:  statusError,
		Message: err.Error(),
	})
}
