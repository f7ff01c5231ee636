package leadintake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultSource is stored when a submission does not name its source.
	DefaultSource = "web_form"

	// StatusNew is the initial status of every persisted lead.
	StatusNew = "new"

	// EventLeadCreated is the event type recorded after a lead is inserted.
	EventLeadCreated = "lead_created"
)

var (
	ErrValidation = errors.New("missing required fields")
	ErrNoLeadID   = errors.New("store returned no lead id")
)

// StoreError is a failure reported by the lead store while writing. Message
// and Code are surfaced to the caller as-is.
type StoreError struct {
	Message string
	Code    string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("store: %s (code %s)", e.Message, e.Code)
	}
	return "store: " + e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Text is a form value that tolerates non-string JSON. Falsy values (null,
// false, 0) decode to the empty string, other numbers and true keep their
// literal JSON text.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*t = ""
		return nil
	case bytes.Equal(data, []byte("true")):
		*t = "true"
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("form value must be a string, number, boolean or null: %w", err)
	}
	if f, err := n.Float64(); err == nil && f == 0 {
		*t = ""
		return nil
	}
	*t = Text(n.String())
	return nil
}

// Submission is the body posted by a lead form.
type Submission struct {
	Name                 Text              `json:"name"`
	Email                Text              `json:"email"`
	Phone                Text              `json:"phone"`
	Source               Text              `json:"source"`
	ExternalSubmissionID Text              `json:"external_submission_id"`
	Country              Text              `json:"country"`
	PageURL              Text              `json:"page_url"`
	UTM                  map[string]string `json:"utm"`
}

// Validate reports the required fields that are missing, wrapped in
// ErrValidation.
func (s Submission) Validate() error {
	var missing []string
	if s.Name == "" {
		missing = append(missing, "name")
	}
	if s.Email == "" {
		missing = append(missing, "email")
	}
	if s.Phone == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// LeadRecord is the row written to the leads table.
type LeadRecord struct {
	ID                   int64             `json:"id,omitempty"`
	Name                 string            `json:"name"`
	Email                string            `json:"email"`
	Phone                string            `json:"phone"`
	PhoneRaw             string            `json:"phone_raw"`
	Source               string            `json:"source"`
	ExternalSubmissionID *string           `json:"external_submission_id"`
	Country              *string           `json:"country"`
	PageURL              *string           `json:"page_url"`
	UTM                  map[string]string `json:"utm"`
	Status               string            `json:"status"`
	CreatedAt            time.Time         `json:"created_at"`
}

// NewLeadRecord builds the record for a validated submission, filling the
// optional fields with their defaults.
func NewLeadRecord(s Submission, now time.Time) LeadRecord {
	source := string(s.Source)
	if source == "" {
		source = DefaultSource
	}

	utm := s.UTM
	if utm == nil {
		utm = map[string]string{}
	}

	return LeadRecord{
		Name:                 string(s.Name),
		Email:                string(s.Email),
		Phone:                string(s.Phone),
		PhoneRaw:             string(s.Phone),
		Source:               source,
		ExternalSubmissionID: optional(s.ExternalSubmissionID),
		Country:              optional(s.Country),
		PageURL:              optional(s.PageURL),
		UTM:                  utm,
		Status:               StatusNew,
		CreatedAt:            now.UTC(),
	}
}

// LeadEvent is an audit entry in the lead_events table.
type LeadEvent struct {
	ID        string        `json:"id"`
	LeadID    int64         `json:"lead_id"`
	EventType string        `json:"event_type"`
	EventData LeadEventData `json:"event_data"`
	CreatedAt time.Time     `json:"created_at"`
}

type LeadEventData struct {
	Source  string  `json:"source"`
	PageURL *string `json:"page_url"`
}

// NewLeadCreatedEvent derives the audit event for a freshly inserted lead.
func NewLeadCreatedEvent(leadID int64, rec LeadRecord, now time.Time) LeadEvent {
	return LeadEvent{
		ID:        uuid.NewString(),
		LeadID:    leadID,
		EventType: EventLeadCreated,
		EventData: LeadEventData{
			Source:  rec.Source,
			PageURL: rec.PageURL,
		},
		CreatedAt: now.UTC(),
	}
}

// LeadStore persists leads and their events.
type LeadStore interface {
	InsertLead(ctx context.Context, rec LeadRecord) (int64, error)
	InsertEvent(ctx context.Context, ev LeadEvent) error
}

func optional(t Text) *string {
	if t == "" {
		return nil
	}
	s := string(t)
	return &s
}
