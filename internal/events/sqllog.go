package events

import (
	"context"
	"database/sql"
)

// SQLLog appends events to the event_log table.
type SQLLog struct {
	db     *sql.DB
	siteID string
}

func NewSQLLog(db *sql.DB, siteID string) *SQLLog {
	if siteID == "" {
		siteID = "local"
	}
	return &SQLLog{db: db, siteID: siteID}
}

func (l *SQLLog) Publish(ctx context.Context, e Event) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		l.siteID, e.Type, e.Key, string(e.Data), e.At.Unix())
	return err
}
