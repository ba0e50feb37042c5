// Package chread provides read access to the ClickHouse interaction_events
// mirror: cross-session listing and SQL-side analytics over the archive.
package chread

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// Reader provides read access to the ClickHouse interaction_events table.
type Reader struct {
	conn   driver.Conn
	logger *zap.Logger
}

// NewReader opens a ClickHouse connection for read queries.
func NewReader(dsn string, logger *zap.Logger) (*Reader, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	if opts.TLS == nil {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}

	return &Reader{conn: conn, logger: logger}, nil
}

// Close closes the ClickHouse connection.
func (r *Reader) Close() error {
	return r.conn.Close()
}

// EventRow represents a single row from the interaction_events table. The
// payload stays in its JSON form; callers needing fields use JSONExtract on
// the warehouse side or decode DataJSON themselves.
type EventRow struct {
	EventID            string
	SessionID          string
	Timestamp          time.Time
	Type               string
	DataJSON           string
	CurrentTab         string
	ChatHistoryLength  uint32
	SessionDurationMs  int64
	CurrentExplanation string
	UserAgent          string
	ScreenResolution   string
}

// ListEventsParams holds filters and pagination for archive listing.
type ListEventsParams struct {
	SessionID *string
	Type      *string
	Tab       *string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	PageSize  int
}

const eventColumns = "event_id, session_id, timestamp, type, data, " +
	"current_tab, chat_history_length, session_duration_ms, " +
	"current_explanation, user_agent, screen_resolution"

// ListEvents returns paginated, filtered archived events and the total count.
func (r *Reader) ListEvents(ctx context.Context, params ListEventsParams) ([]EventRow, int, error) {
	conditions := []string{"1 = 1"}
	var args []any

	if params.SessionID != nil {
		conditions = append(conditions, "session_id = @session_id")
		args = append(args, clickhouse.Named("session_id", *params.SessionID))
	}
	if params.Type != nil {
		conditions = append(conditions, "type = @type")
		args = append(args, clickhouse.Named("type", *params.Type))
	}
	if params.Tab != nil {
		conditions = append(conditions, "current_tab = @tab")
		args = append(args, clickhouse.Named("tab", *params.Tab))
	}
	if params.StartTime != nil {
		conditions = append(conditions, "timestamp >= @start_time")
		args = append(args, clickhouse.Named("start_time", *params.StartTime))
	}
	if params.EndTime != nil {
		conditions = append(conditions, "timestamp <= @end_time")
		args = append(args, clickhouse.Named("end_time", *params.EndTime))
	}

	where := strings.Join(conditions, " AND ")
	offset := (params.Page - 1) * params.PageSize

	// Count query
	var total uint64
	countQuery := fmt.Sprintf("SELECT count() FROM interaction_events WHERE %s", where)
	if err := r.conn.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListEvents count: %w", err)
	}

	// Data query
	dataQuery := fmt.Sprintf(
		"SELECT %s FROM interaction_events WHERE %s "+
			"ORDER BY timestamp DESC "+
			"LIMIT @limit OFFSET @offset",
		eventColumns, where,
	)
	args = append(args,
		clickhouse.Named("limit", uint32(params.PageSize)),
		clickhouse.Named("offset", uint32(offset)),
	)

	rows, err := r.conn.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListEvents query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(
			&e.EventID, &e.SessionID, &e.Timestamp, &e.Type, &e.DataJSON,
			&e.CurrentTab, &e.ChatHistoryLength, &e.SessionDurationMs,
			&e.CurrentExplanation, &e.UserAgent, &e.ScreenResolution,
		); err != nil {
			return nil, 0, fmt.Errorf("ListEvents scan: %w", err)
		}
		events = append(events, e)
	}

	return events, int(total), rows.Err()
}

// TimeSeriesBucket is one hourly bucket of event volume.
type TimeSeriesBucket struct {
	Hour  time.Time
	Count uint64
}

// TypeCount is event volume per interaction type.
type TypeCount struct {
	Type  string
	Count uint64
}

// TabCount is tab-switch volume per destination tab.
type TabCount struct {
	Tab   string
	Count uint64
}

// GlobalAnalytics summarizes the archive across every persisted session.
type GlobalAnalytics struct {
	TotalEvents    uint64
	UniqueSessions uint64
	EventsOverTime []TimeSeriesBucket
	TopTypes       []TypeCount
	TopTabs        []TabCount
}

// GetAnalytics computes archive-wide analytics for the trailing N days.
func (r *Reader) GetAnalytics(ctx context.Context, days int) (*GlobalAnalytics, error) {
	since := clickhouse.Named("since", time.Now().AddDate(0, 0, -days))
	result := &GlobalAnalytics{}

	if err := r.conn.QueryRow(ctx,
		"SELECT count(), uniqExact(session_id) FROM interaction_events WHERE timestamp >= @since",
		since,
	).Scan(&result.TotalEvents, &result.UniqueSessions); err != nil {
		return nil, fmt.Errorf("GetAnalytics summary: %w", err)
	}

	rows, err := r.conn.Query(ctx,
		"SELECT toStartOfHour(timestamp) AS hour, count() "+
			"FROM interaction_events WHERE timestamp >= @since "+
			"GROUP BY hour ORDER BY hour",
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics time series: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var b TimeSeriesBucket
		if err := rows.Scan(&b.Hour, &b.Count); err != nil {
			return nil, fmt.Errorf("GetAnalytics time series scan: %w", err)
		}
		result.EventsOverTime = append(result.EventsOverTime, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetAnalytics time series: %w", err)
	}

	typeRows, err := r.conn.Query(ctx,
		"SELECT type, count() AS c FROM interaction_events "+
			"WHERE timestamp >= @since GROUP BY type ORDER BY c DESC LIMIT 10",
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics types: %w", err)
	}
	defer func() { _ = typeRows.Close() }()
	for typeRows.Next() {
		var t TypeCount
		if err := typeRows.Scan(&t.Type, &t.Count); err != nil {
			return nil, fmt.Errorf("GetAnalytics types scan: %w", err)
		}
		result.TopTypes = append(result.TopTypes, t)
	}
	if err := typeRows.Err(); err != nil {
		return nil, fmt.Errorf("GetAnalytics types: %w", err)
	}

	tabRows, err := r.conn.Query(ctx,
		"SELECT JSONExtractString(data, 'toTab') AS tab, count() AS c "+
			"FROM interaction_events "+
			"WHERE timestamp >= @since AND type = 'tab_switch' AND tab != '' "+
			"GROUP BY tab ORDER BY c DESC LIMIT 10",
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics tabs: %w", err)
	}
	defer func() { _ = tabRows.Close() }()
	for tabRows.Next() {
		var t TabCount
		if err := tabRows.Scan(&t.Tab, &t.Count); err != nil {
			return nil, fmt.Errorf("GetAnalytics tabs scan: %w", err)
		}
		result.TopTabs = append(result.TopTabs, t)
	}
	return result, tabRows.Err()
}
