package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/logger"
	"github.com/teranos/exchainge/types"
)

// ErrEventNotFound is returned by MarkSent for an unknown or already sent event.
var ErrEventNotFound = errors.Reason("event_not_found", errors.ErrNotFound, "no pending event with that id")

// Outbox persists events to the event_outbox table for an external relay,
// which reads Pending and acknowledges with MarkSent.
type Outbox struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewOutbox returns an outbox over a migrated database.
func NewOutbox(db *sql.DB, l *zap.SugaredLogger) *Outbox {
	if l == nil {
		l = zap.NewNop().Sugar()
	}
	return &Outbox{db: db, logger: l}
}

func (o *Outbox) Emit(ctx context.Context, e Event) {
	if err := o.Append(ctx, e); err != nil {
		logger.FromContext(ctx, o.logger).Warnw("Failed to append event to outbox",
			logger.FieldEventID, e.ID.String(),
			logger.FieldEventType, e.Type,
			logger.FieldError, err,
		)
	}
}

// Append stores e as pending.
func (o *Outbox) Append(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return errors.Wrapf(err, "encode payload of %s", e.Type)
	}
	_, err = o.db.ExecContext(ctx,
		`INSERT INTO event_outbox (id, event_type, subject, actor, payload, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Type, e.Subject, string(e.Actor), string(payload), e.OccurredAt.UTC().Format(time.RFC3339Nano),
	)
	return errors.Wrapf(err, "insert event %s", e.ID)
}

// Pending returns up to limit unsent events in append order.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]Event, error) {
	rows, err := o.db.QueryContext(ctx,
		`SELECT id, event_type, subject, actor, payload, occurred_at FROM event_outbox
		 WHERE sent_at IS NULL ORDER BY rowid LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query pending events")
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e                 Event
			id, actor         string
			payload, occurred string
		)
		if err := rows.Scan(&id, &e.Type, &e.Subject, &actor, &payload, &occurred); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, errors.Wrapf(err, "parse event id %q", id)
		}
		if e.OccurredAt, err = time.Parse(time.RFC3339Nano, occurred); err != nil {
			return nil, errors.Wrapf(err, "parse occurred_at of %s", id)
		}
		if err := json.Unmarshal([]byte(payload), &e.Data); err != nil {
			return nil, errors.Wrapf(err, "decode payload of %s", id)
		}
		e.Actor = types.Identity(actor)
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "iterate pending events")
}

// MarkSent records that the relay delivered the event.
func (o *Outbox) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := o.db.ExecContext(ctx,
		`UPDATE event_outbox SET sent_at = ? WHERE id = ? AND sent_at IS NULL`,
		at.UTC().Format(time.RFC3339Nano), id.String())
	if err != nil {
		return errors.Wrapf(err, "mark event %s sent", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.Wrapf(ErrEventNotFound, "event %s", id)
	}
	return nil
}
