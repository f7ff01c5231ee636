package leadintake_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	leadintake "github.com/phbpx/lead-intake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want leadintake.Text
	}{
		{"string", `"Jane"`, "Jane"},
		{"empty string", `""`, ""},
		{"null", `null`, ""},
		{"false", `false`, ""},
		{"true", `true`, "true"},
		{"zero", `0`, ""},
		{"zero float", `0.0`, ""},
		{"number", `15551234567`, "15551234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				V leadintake.Text `json:"v"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"v":`+tt.in+`}`), &got))
			assert.Equal(t, tt.want, got.V)
		})
	}
}

func TestTextUnmarshalRejectsObjects(t *testing.T) {
	var s leadintake.Submission
	err := json.Unmarshal([]byte(`{"name":{"first":"Jane"}}`), &s)
	assert.Error(t, err)
}

func TestSubmissionValidate(t *testing.T) {
	valid := leadintake.Submission{Name: "Jane Doe", Email: "jane@x.com", Phone: "+15551234567"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(s *leadintake.Submission)
		missing string
	}{
		{"no name", func(s *leadintake.Submission) { s.Name = "" }, "name"},
		{"no email", func(s *leadintake.Submission) { s.Email = "" }, "email"},
		{"no phone", func(s *leadintake.Submission) { s.Phone = "" }, "phone"},
		{"nothing", func(s *leadintake.Submission) { *s = leadintake.Submission{} }, "name, email, phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)

			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, leadintake.ErrValidation))
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestNewLeadRecordDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	rec := leadintake.NewLeadRecord(leadintake.Submission{
		Name:  "Jane Doe",
		Email: "jane@x.com",
		Phone: "+15551234567",
	}, now)

	assert.Equal(t, "Jane Doe", rec.Name)
	assert.Equal(t, "+15551234567", rec.PhoneRaw)
	assert.Equal(t, leadintake.DefaultSource, rec.Source)
	assert.Equal(t, leadintake.StatusNew, rec.Status)
	assert.Nil(t, rec.ExternalSubmissionID)
	assert.Nil(t, rec.Country)
	assert.Nil(t, rec.PageURL)
	assert.NotNil(t, rec.UTM)
	assert.Empty(t, rec.UTM)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
	assert.True(t, rec.CreatedAt.Equal(now))
}

func TestNewLeadRecordKeepsOptionalFields(t *testing.T) {
	rec := leadintake.NewLeadRecord(leadintake.Submission{
		Name:                 "Jane Doe",
		Email:                "jane@x.com",
		Phone:                "+15551234567",
		Source:               "landing_b",
		ExternalSubmissionID: "sub-9",
		Country:              "PT",
		PageURL:              "https://example.com/offer",
		UTM:                  map[string]string{"utm_source": "google"},
	}, time.Now())

	assert.Equal(t, "landing_b", rec.Source)
	require.NotNil(t, rec.ExternalSubmissionID)
	assert.Equal(t, "sub-9", *rec.ExternalSubmissionID)
	require.NotNil(t, rec.Country)
	assert.Equal(t, "PT", *rec.Country)
	require.NotNil(t, rec.PageURL)
	assert.Equal(t, "https://example.com/offer", *rec.PageURL)
	assert.Equal(t, map[string]string{"utm_source": "google"}, rec.UTM)
}

func TestNewLeadCreatedEvent(t *testing.T) {
	page := "https://example.com/offer"
	rec := leadintake.LeadRecord{Source: "landing_b", PageURL: &page}

	ev := leadintake.NewLeadCreatedEvent(42, rec, time.Now())

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, int64(42), ev.LeadID)
	assert.Equal(t, leadintake.EventLeadCreated, ev.EventType)
	assert.Equal(t, "landing_b", ev.EventData.Source)
	assert.Equal(t, &page, ev.EventData.PageURL)
}

func TestStoreError(t *testing.T) {
	cause := errors.New("driver failure")
	err := &leadintake.StoreError{Message: "duplicate key", Code: "23505", Err: cause}

	assert.Equal(t, "store: duplicate key (code 23505)", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "store: timeout", (&leadintake.StoreError{Message: "timeout"}).Error())
}
