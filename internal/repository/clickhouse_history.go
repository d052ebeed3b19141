package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StockSense/internal/domain/models"
	drepo "StockSense/internal/domain/repository"
	applogger "StockSense/pkg/logger"
)

// HistorySchema creates the analysis history table. Statements are idempotent.
func HistorySchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.analysis_history (
	ts        DateTime64(3, 'UTC'),
	run_id    String,
	ticker    LowCardinality(String),
	user_id   String,
	status    LowCardinality(String),
	overall   Int32,
	verdict   LowCardinality(String),
	ml        Int32,
	news      Int32,
	congress  Int32,
	social    Int32,
	error     String
) ENGINE = ReplacingMergeTree
ORDER BY (ticker, ts, run_id)
TTL toDateTime(ts) + INTERVAL 1 YEAR`, database),
	}
}

// ClickHouseHistory stores analysis events in ClickHouse.
type ClickHouseHistory struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewClickHouseHistory creates the history store on database.analysis_history.
func NewClickHouseHistory(db *sql.DB, database string) *ClickHouseHistory {
	return &ClickHouseHistory{db: db, table: database + ".analysis_history"}
}

// SetLogger injects logger.
func (s *ClickHouseHistory) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseHistory) Insert(ctx context.Context, ev *models.AnalysisEvent) error {
	q := fmt.Sprintf(`INSERT INTO %s (ts, run_id, ticker, user_id, status, overall, verdict, ml, news, congress, social, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err := s.db.ExecContext(ctx, q,
		ev.Timestamp.UTC(),
		ev.RunID,
		ev.Ticker,
		ev.UserID,
		string(ev.Status),
		int32(ev.Overall),
		ev.Verdict,
		int32(ev.MLScore),
		int32(ev.NewsScore),
		int32(ev.CongressScore),
		int32(ev.SocialScore),
		ev.Error,
	)
	if err != nil {
		return fmt.Errorf("insert analysis_history: %w", err)
	}
	return nil
}

func (s *ClickHouseHistory) Recent(ctx context.Context, ticker string, since time.Time, limit int) ([]models.AnalysisEvent, error) {
	q := fmt.Sprintf(`SELECT ts, run_id, ticker, user_id, status, overall, verdict, ml, news, congress, social, error
FROM %s FINAL
WHERE ticker = ? AND ts >= ?
ORDER BY ts DESC
LIMIT ?`, s.table)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, ticker, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query analysis_history: %w", err)
	}
	defer rows.Close()

	out := make([]models.AnalysisEvent, 0, limit)
	for rows.Next() {
		var (
			ev                              models.AnalysisEvent
			status                          string
			overall, ml, news, congress, so int32
		)
		if err := rows.Scan(&ev.Timestamp, &ev.RunID, &ev.Ticker, &ev.UserID, &status, &overall, &ev.Verdict,
			&ml, &news, &congress, &so, &ev.Error); err != nil {
			return nil, fmt.Errorf("scan analysis_history: %w", err)
		}
		ev.Status = models.RunStatus(status)
		ev.Overall = int(overall)
		ev.MLScore = int(ml)
		ev.NewsScore = int(news)
		ev.CongressScore = int(congress)
		ev.SocialScore = int(so)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if s.l != nil {
		s.l.Debug("clickhouse analysis_history query",
			applogger.String("ticker", ticker),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseHistory) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ drepo.HistoryStore = (*ClickHouseHistory)(nil)
