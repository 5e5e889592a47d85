package model

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// QueryLog is one handled webhook message, kept for usage analysis.
type QueryLog struct {
	ID        int64     `db:"id"`
	UserHash  string    `db:"user_hash"`
	Input     string    `db:"input"`
	Kind      string    `db:"kind"`
	ReplySize int       `db:"reply_size"`
	LatencyMs int64     `db:"latency_ms"`
	CreatedAt time.Time `db:"created_at"`
}

// QueryLogModel persists handled queries. The nop implementation is
// used when no Postgres DSN is configured.
type QueryLogModel interface {
	Insert(ctx context.Context, entry *QueryLog) error
	RecentByUser(ctx context.Context, userHash string, limit int) ([]QueryLog, error)
}

type defaultQueryLogModel struct {
	conn sqlx.SqlConn
}

// NewQueryLogModel returns a model backed by the given connection.
func NewQueryLogModel(conn sqlx.SqlConn) QueryLogModel {
	return &defaultQueryLogModel{conn: conn}
}

func (m *defaultQueryLogModel) Insert(ctx context.Context, entry *QueryLog) error {
	const q = `INSERT INTO query_log (user_hash, input, kind, reply_size, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := m.conn.ExecCtx(ctx, q,
		entry.UserHash, entry.Input, entry.Kind, entry.ReplySize, entry.LatencyMs, createdAt)
	return err
}

func (m *defaultQueryLogModel) RecentByUser(ctx context.Context, userHash string, limit int) ([]QueryLog, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT id, user_hash, input, kind, reply_size, latency_ms, created_at
		FROM query_log WHERE user_hash = $1 ORDER BY created_at DESC LIMIT $2`
	var rows []QueryLog
	if err := m.conn.QueryRowsCtx(ctx, &rows, q, userHash, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

type nopQueryLogModel struct{}

// NewNopQueryLogModel returns a journal that records nothing.
func NewNopQueryLogModel() QueryLogModel {
	return nopQueryLogModel{}
}

func (nopQueryLogModel) Insert(context.Context, *QueryLog) error {
	return nil
}

func (nopQueryLogModel) RecentByUser(context.Context, string, int) ([]QueryLog, error) {
	return nil, nil
}
