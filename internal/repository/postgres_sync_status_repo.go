package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lifelog/internal/model"
)

// PostgresSyncStatusRepo はPostgreSQLを使用した同期メタデータリポジトリ。
type PostgresSyncStatusRepo struct {
	db *sql.DB
}

// NewPostgresSyncStatusRepo はPostgresSyncStatusRepoを生成する。
func NewPostgresSyncStatusRepo(db *sql.DB) *PostgresSyncStatusRepo {
	return &PostgresSyncStatusRepo{db: db}
}

// Find は指定フィードの同期メタデータを取得する。見つからない場合はnilを返す。
func (r *PostgresSyncStatusRepo) Find(ctx context.Context, feed model.Feed) (*model.SyncStatus, error) {
	status := &model.SyncStatus{}
	var feedName string

	err := r.db.QueryRowContext(ctx,
		`SELECT feed, last_synced_at, item_count, reading_count, finished_count, want_count
		 FROM sync_status WHERE feed = $1`,
		string(feed),
	).Scan(
		&feedName, &status.LastSyncedAt, &status.ItemCount,
		&status.ReadingCount, &status.FinishedCount, &status.WantCount,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("同期メタデータの取得に失敗しました: %w", err)
	}

	status.Feed = model.Feed(feedName)
	return status, nil
}

// Upsert は同期メタデータをフィード名キーで冪等にUPSERTする。
func (r *PostgresSyncStatusRepo) Upsert(ctx context.Context, status *model.SyncStatus) error {
	return upsertSyncStatus(ctx, r.db, status)
}

// execer はsql.DBとsql.Txの両方で使用できる実行インターフェース。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// upsertSyncStatus は同期メタデータのUPSERTを実行する。
// ReplaceAll系のトランザクション内からも呼び出される。
func upsertSyncStatus(ctx context.Context, ex execer, status *model.SyncStatus) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO sync_status
		    (feed, last_synced_at, item_count, reading_count, finished_count, want_count)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (feed) DO UPDATE SET
		    last_synced_at = EXCLUDED.last_synced_at,
		    item_count = EXCLUDED.item_count,
		    reading_count = EXCLUDED.reading_count,
		    finished_count = EXCLUDED.finished_count,
		    want_count = EXCLUDED.want_count`,
		string(status.Feed), status.LastSyncedAt, status.ItemCount,
		status.ReadingCount, status.FinishedCount, status.WantCount,
	)
	if err != nil {
		return fmt.Errorf("同期メタデータのUPSERTに失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SyncStatusRepository = (*PostgresSyncStatusRepo)(nil)
