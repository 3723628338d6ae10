// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/lifelog/internal/model"
)

// CategoryRepository はカテゴリデータの永続化インターフェース。
type CategoryRepository interface {
	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)

	// ListAll は全カテゴリをname昇順で返す。
	ListAll(ctx context.Context) ([]*model.Category, error)

	// ListVisible は公開カテゴリのみをname昇順で返す。
	ListVisible(ctx context.Context) ([]*model.Category, error)

	// Create はカテゴリを作成する。
	Create(ctx context.Context, category *model.Category) error

	// Update はカテゴリを更新する。
	Update(ctx context.Context, category *model.Category) error

	// DeleteByID は指定IDのカテゴリを削除する。
	// カテゴリに属する記事はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// PostRepository はブログ記事データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// FindVisibleByID は指定IDの公開記事をカテゴリ名付きで取得する。
	// 非公開または未存在の場合はnilを返す。
	FindVisibleByID(ctx context.Context, id string) (*model.PostWithCategory, error)

	// ListAll は全記事をカテゴリ名付きでcreated_at降順で返す。
	ListAll(ctx context.Context) ([]*model.PostWithCategory, error)

	// ListVisible は公開記事のみをカテゴリ名付きでcreated_at降順で返す。
	ListVisible(ctx context.Context) ([]*model.PostWithCategory, error)

	// ListVisibleByCategory は指定カテゴリの公開記事をcreated_at降順で返す。
	ListVisibleByCategory(ctx context.Context, categoryID string) ([]*model.PostWithCategory, error)

	// Create は記事を作成する。
	Create(ctx context.Context, post *model.Post) error

	// Update は記事を更新する。
	Update(ctx context.Context, post *model.Post) error

	// DeleteByID は指定IDの記事を削除する。
	DeleteByID(ctx context.Context, id string) error
}

// OTPRepository はワンタイムコードの永続化インターフェース。
// テーブルは固定センチネルidの1レコードのみを保持する。
type OTPRepository interface {
	// Replace は現在のワンタイムコードを新しいコードで置換する。
	// 既存コードの有無にかかわらず、置換後は常に1レコードのみが存在する。
	Replace(ctx context.Context, code *model.OneTimeCode) error

	// Find は現在有効なワンタイムコードを取得する。存在しない場合はnilを返す。
	Find(ctx context.Context) (*model.OneTimeCode, error)

	// Clear はワンタイムコードを削除する。存在しない場合も成功する。
	Clear(ctx context.Context) error
}

// SessionRepository は管理者セッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// ReadingItemRepository は読書ミラーの永続化インターフェース。
type ReadingItemRepository interface {
	// ListAll は全読書アイテムを同期時の並び順（position昇順）で返す。
	ListAll(ctx context.Context) ([]*model.ReadingItem, error)

	// ReplaceAll は読書アイテム全件とsync_statusレコードを
	// 単一トランザクションで置換する。
	ReplaceAll(ctx context.Context, items []*model.ReadingItem, status *model.SyncStatus) error
}

// FilmLogRepository は映画日記ミラーの永続化インターフェース。
type FilmLogRepository interface {
	// ListAll は全映画ログをwatched_date_sort_key降順で返す。
	ListAll(ctx context.Context) ([]*model.FilmLogItem, error)

	// ReplaceAll は映画ログ全件とsync_statusレコードを
	// 単一トランザクションで置換する。
	ReplaceAll(ctx context.Context, items []*model.FilmLogItem, status *model.SyncStatus) error
}

// SyncStatusRepository はフィードごとの同期メタデータの永続化インターフェース。
type SyncStatusRepository interface {
	// Find は指定フィードの同期メタデータを取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, feed model.Feed) (*model.SyncStatus, error)

	// Upsert は同期メタデータをフィード名キーで冪等にUPSERTする。
	Upsert(ctx context.Context, status *model.SyncStatus) error
}
