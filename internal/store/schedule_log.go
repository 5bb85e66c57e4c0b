// Package store persists the write-only schedule log. Nothing in the request path
// reads it back.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const scheduleLogSchema = `
CREATE TABLE IF NOT EXISTS schedule_log (
    id              BIGINT PRIMARY KEY,
    request_id      TEXT NOT NULL,
    organizer       TEXT NOT NULL,
    participants    JSONB NOT NULL,
    subject         TEXT NOT NULL DEFAULT '',
    event_start     TIMESTAMPTZ NOT NULL,
    event_end       TIMESTAMPTZ NOT NULL,
    confidence      DOUBLE PRECISION NOT NULL,
    compatible      BOOLEAN NOT NULL,
    method          TEXT NOT NULL,
    fallbacks       INTEGER NOT NULL DEFAULT 0,
    processing_ms   BIGINT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS schedule_log_request_id_idx ON schedule_log (request_id);
`

const insertScheduleLog = `
INSERT INTO schedule_log (
    id, request_id, organizer, participants, subject, event_start, event_end,
    confidence, compatible, method, fallbacks, processing_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type ScheduleEntry struct {
	ID           int64
	RequestID    string
	Organizer    string
	Participants []string
	Subject      string
	Start        time.Time
	End          time.Time
	Confidence   float64
	Compatible   bool
	Method       string
	Fallbacks    int
	Processing   time.Duration
}

type ScheduleLog interface {
	Record(ctx context.Context, e ScheduleEntry) error
}

type scheduleLog struct {
	db DBTX
}

func NewScheduleLog(db DBTX) ScheduleLog {
	return &scheduleLog{db: db}
}

// Migrate creates the schedule_log table when missing.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, scheduleLogSchema); err != nil {
		return fmt.Errorf("creating schedule_log: %w", err)
	}
	return nil
}

func (s *scheduleLog) Record(ctx context.Context, e ScheduleEntry) error {
	participants, err := json.Marshal(e.Participants)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}
	if _, err := s.db.Exec(ctx, insertScheduleLog,
		e.ID,
		e.RequestID,
		e.Organizer,
		participants,
		e.Subject,
		e.Start,
		e.End,
		e.Confidence,
		e.Compatible,
		e.Method,
		e.Fallbacks,
		e.Processing.Milliseconds(),
	); err != nil {
		return fmt.Errorf("inserting schedule log %d: %w", e.ID, err)
	}
	return nil
}
