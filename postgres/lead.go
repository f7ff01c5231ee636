package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	leadintake "github.com/phbpx/lead-intake"
)

// LeadStore writes leads and lead events with plain INSERT statements. The
// two writes are independent; there is no transaction spanning them.
type LeadStore struct {
	db *sql.DB
}

func NewLeadStore(db *sql.DB) *LeadStore {
	return &LeadStore{
		db: db,
	}
}

// InsertLead stores rec and returns the id assigned by the database.
func (ls LeadStore) InsertLead(ctx context.Context, rec leadintake.LeadRecord) (int64, error) {
	utm, err := json.Marshal(rec.UTM)
	if err != nil {
		return 0, fmt.Errorf("encoding utm: %w", err)
	}

	query := `
	INSERT INTO leads (
		name, email, phone, phone_raw, source, external_submission_id,
		country, page_url, utm, status, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
	)
	RETURNING id`

	var id int64
	err = ls.db.QueryRowContext(ctx, query,
		rec.Name,
		rec.Email,
		rec.Phone,
		rec.PhoneRaw,
		rec.Source,
		nullString(rec.ExternalSubmissionID),
		nullString(rec.Country),
		nullString(rec.PageURL),
		utm,
		rec.Status,
		rec.CreatedAt,
	).Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, leadintake.ErrNoLeadID
		}
		return 0, storeError(err)
	}

	return id, nil
}

// InsertEvent stores ev in lead_events.
func (ls LeadStore) InsertEvent(ctx context.Context, ev leadintake.LeadEvent) error {
	data, err := json.Marshal(ev.EventData)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}

	query := `
	INSERT INTO lead_events (
		id, lead_id, event_type, event_data, created_at
	) VALUES (
		$1, $2, $3, $4, $5
	)`

	_, err = ls.db.ExecContext(ctx, query,
		ev.ID,
		ev.LeadID,
		ev.EventType,
		data,
		ev.CreatedAt,
	)
	if err != nil {
		return storeError(err)
	}

	return nil
}

// storeError converts a driver error into a StoreError, keeping the SQLSTATE
// code when the server reported one.
func storeError(err error) error {
	var pqerr *pq.Error
	if errors.As(err, &pqerr) {
		return &leadintake.StoreError{
			Message: pqerr.Message,
			Code:    string(pqerr.Code),
			Err:     err,
		}
	}
	return &leadintake.StoreError{
		Message: err.Error(),
		Err:     err,
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
