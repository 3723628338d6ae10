package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/lifelog/internal/model"
)

// PostgresReadingRepo はPostgreSQLを使用した読書ミラーリポジトリ。
type PostgresReadingRepo struct {
	db *sql.DB
}

// NewPostgresReadingRepo はPostgresReadingRepoを生成する。
func NewPostgresReadingRepo(db *sql.DB) *PostgresReadingRepo {
	return &PostgresReadingRepo{db: db}
}

// ListAll は全読書アイテムを同期時の並び順（position昇順）で返す。
func (r *PostgresReadingRepo) ListAll(ctx context.Context) ([]*model.ReadingItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT external_id, title, subtitle, description, cover_url, authors,
		        rating, review, completed_date, status, synced_at
		 FROM reading_items
		 ORDER BY position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("読書アイテム一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []*model.ReadingItem
	for rows.Next() {
		item := &model.ReadingItem{}
		var subtitle, description, coverURL sql.NullString
		var rating sql.NullFloat64
		var review, completedDate sql.NullString
		var status string

		if err := rows.Scan(
			&item.ExternalID, &item.Title, &subtitle, &description, &coverURL,
			pq.Array(&item.Authors), &rating, &review, &completedDate,
			&status, &item.SyncedAt,
		); err != nil {
			return nil, fmt.Errorf("読書アイテム行の読み取りに失敗しました: %w", err)
		}

		item.Subtitle = nullStringValue(subtitle)
		item.Description = nullStringValue(description)
		item.CoverURL = nullStringValue(coverURL)
		item.Rating = nullFloatValue(rating)
		item.Review = nullStringPtrValue(review)
		item.CompletedDate = nullStringPtrValue(completedDate)
		item.Status = model.ReadingStatus(status)

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("読書アイテム一覧の走査に失敗しました: %w", err)
	}

	return items, nil
}

// ReplaceAll は読書アイテム全件とsync_statusレコードを単一トランザクションで置換する。
// コミット前にトランザクションが中断された場合、既存データは変更されない。
func (r *PostgresReadingRepo) ReplaceAll(ctx context.Context, items []*model.ReadingItem, status *model.SyncStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reading_items`); err != nil {
		return fmt.Errorf("既存読書アイテムの削除に失敗しました: %w", err)
	}

	for i, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reading_items
			    (id, position, external_id, title, subtitle, description, cover_url,
			     authors, rating, review, completed_date, status, synced_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			uuid.New().String(), i, item.ExternalID, item.Title,
			nullString(item.Subtitle), nullString(item.Description), nullString(item.CoverURL),
			pq.Array(item.Authors), nullFloat(item.Rating), nullStringPtr(item.Review),
			nullStringPtr(item.CompletedDate), string(item.Status), item.SyncedAt,
		); err != nil {
			return fmt.Errorf("読書アイテムの挿入に失敗しました: %w", err)
		}
	}

	if err := upsertSyncStatus(ctx, tx, status); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ReadingItemRepository = (*PostgresReadingRepo)(nil)
