package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lifelog/internal/model"
)

// PostgresFilmLogRepo はPostgreSQLを使用した映画日記ミラーリポジトリ。
type PostgresFilmLogRepo struct {
	db *sql.DB
}

// NewPostgresFilmLogRepo はPostgresFilmLogRepoを生成する。
func NewPostgresFilmLogRepo(db *sql.DB) *PostgresFilmLogRepo {
	return &PostgresFilmLogRepo{db: db}
}

// ListAll は全映画ログをwatched_date_sort_key降順で返す。
func (r *PostgresFilmLogRepo) ListAll(ctx context.Context) ([]*model.FilmLogItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT guid, film_title, film_year, rating, stars_display, link,
		        pub_date, watched_date, watched_date_sort_key, is_rewatch,
		        review_text, poster_url, tmdb_id, is_review, synced_at
		 FROM film_log_items
		 ORDER BY watched_date_sort_key DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("映画ログ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []*model.FilmLogItem
	for rows.Next() {
		item := &model.FilmLogItem{}
		var filmYear, link, pubDate, watchedDate, sortKey sql.NullString
		var rating sql.NullFloat64
		var reviewText, posterURL, tmdbID sql.NullString

		if err := rows.Scan(
			&item.GUID, &item.FilmTitle, &filmYear, &rating, &item.StarsDisplay,
			&link, &pubDate, &watchedDate, &sortKey, &item.IsRewatch,
			&reviewText, &posterURL, &tmdbID, &item.IsReview, &item.SyncedAt,
		); err != nil {
			return nil, fmt.Errorf("映画ログ行の読み取りに失敗しました: %w", err)
		}

		item.FilmYear = nullStringValue(filmYear)
		item.Rating = nullFloatValue(rating)
		item.Link = nullStringValue(link)
		item.PubDate = nullStringValue(pubDate)
		item.WatchedDate = nullStringValue(watchedDate)
		item.WatchedDateSortKey = nullStringValue(sortKey)
		item.ReviewText = nullStringPtrValue(reviewText)
		item.PosterURL = nullStringPtrValue(posterURL)
		item.TmdbID = nullStringPtrValue(tmdbID)

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("映画ログ一覧の走査に失敗しました: %w", err)
	}

	return items, nil
}

// ReplaceAll は映画ログ全件とsync_statusレコードを単一トランザクションで置換する。
func (r *PostgresFilmLogRepo) ReplaceAll(ctx context.Context, items []*model.FilmLogItem, status *model.SyncStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM film_log_items`); err != nil {
		return fmt.Errorf("既存映画ログの削除に失敗しました: %w", err)
	}

	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO film_log_items
			    (guid, film_title, film_year, rating, stars_display, link,
			     pub_date, watched_date, watched_date_sort_key, is_rewatch,
			     review_text, poster_url, tmdb_id, is_review, synced_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			item.GUID, item.FilmTitle, nullString(item.FilmYear), nullFloat(item.Rating),
			item.StarsDisplay, nullString(item.Link), nullString(item.PubDate),
			nullString(item.WatchedDate), nullString(item.WatchedDateSortKey), item.IsRewatch,
			nullStringPtr(item.ReviewText), nullStringPtr(item.PosterURL),
			nullStringPtr(item.TmdbID), item.IsReview, item.SyncedAt,
		); err != nil {
			return fmt.Errorf("映画ログの挿入に失敗しました: %w", err)
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
var _ FilmLogRepository = (*PostgresFilmLogRepo)(nil)
