package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lifelog/internal/model"
)

// uncategorizedName はカテゴリ未設定・削除済みカテゴリの記事に付与する表示名。
const uncategorizedName = "Uncategorized"

// PostgresPostRepo はPostgreSQLを使用したブログ記事リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	var tagline, abstract, categoryID sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, tagline, abstract, content, category_id, visible, created_at, updated_at
		 FROM posts WHERE id = $1`,
		id,
	).Scan(
		&post.ID, &post.Title, &tagline, &abstract, &post.Content,
		&categoryID, &post.Visible, &post.CreatedAt, &post.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}

	post.Tagline = nullStringValue(tagline)
	post.Abstract = nullStringValue(abstract)
	post.CategoryID = nullStringValue(categoryID)

	return post, nil
}

// FindVisibleByID は指定IDの公開記事をカテゴリ名付きで取得する。
// 非公開または未存在の場合はnilを返す。
func (r *PostgresPostRepo) FindVisibleByID(ctx context.Context, id string) (*model.PostWithCategory, error) {
	pwc := &model.PostWithCategory{}
	var tagline, abstract, categoryID, categoryName sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.title, p.tagline, p.abstract, p.content, p.category_id,
		        p.visible, p.created_at, p.updated_at, c.name
		 FROM posts p
		 LEFT JOIN categories c ON p.category_id = c.id
		 WHERE p.id = $1 AND p.visible = true`,
		id,
	).Scan(
		&pwc.ID, &pwc.Title, &tagline, &abstract, &pwc.Content,
		&categoryID, &pwc.Visible, &pwc.CreatedAt, &pwc.UpdatedAt, &categoryName,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("公開記事の取得に失敗しました: %w", err)
	}

	pwc.Tagline = nullStringValue(tagline)
	pwc.Abstract = nullStringValue(abstract)
	pwc.CategoryID = nullStringValue(categoryID)
	pwc.CategoryName = categoryNameValue(categoryName)

	return pwc, nil
}

// ListAll は全記事をカテゴリ名付きでcreated_at降順で返す。
func (r *PostgresPostRepo) ListAll(ctx context.Context) ([]*model.PostWithCategory, error) {
	return r.listWithCategory(ctx,
		`SELECT p.id, p.title, p.tagline, p.abstract, p.content, p.category_id,
		        p.visible, p.created_at, p.updated_at, c.name
		 FROM posts p
		 LEFT JOIN categories c ON p.category_id = c.id
		 ORDER BY p.created_at DESC`)
}

// ListVisible は公開記事のみをカテゴリ名付きでcreated_at降順で返す。
func (r *PostgresPostRepo) ListVisible(ctx context.Context) ([]*model.PostWithCategory, error) {
	return r.listWithCategory(ctx,
		`SELECT p.id, p.title, p.tagline, p.abstract, p.content, p.category_id,
		        p.visible, p.created_at, p.updated_at, c.name
		 FROM posts p
		 LEFT JOIN categories c ON p.category_id = c.id
		 WHERE p.visible = true
		 ORDER BY p.created_at DESC`)
}

// ListVisibleByCategory は指定カテゴリの公開記事をcreated_at降順で返す。
func (r *PostgresPostRepo) ListVisibleByCategory(ctx context.Context, categoryID string) ([]*model.PostWithCategory, error) {
	return r.listWithCategory(ctx,
		`SELECT p.id, p.title, p.tagline, p.abstract, p.content, p.category_id,
		        p.visible, p.created_at, p.updated_at, c.name
		 FROM posts p
		 LEFT JOIN categories c ON p.category_id = c.id
		 WHERE p.visible = true AND p.category_id = $1
		 ORDER BY p.created_at DESC`, categoryID)
}

func (r *PostgresPostRepo) listWithCategory(ctx context.Context, query string, args ...any) ([]*model.PostWithCategory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var posts []*model.PostWithCategory
	for rows.Next() {
		pwc := &model.PostWithCategory{}
		var tagline, abstract, categoryID, categoryName sql.NullString

		if err := rows.Scan(
			&pwc.ID, &pwc.Title, &tagline, &abstract, &pwc.Content,
			&categoryID, &pwc.Visible, &pwc.CreatedAt, &pwc.UpdatedAt, &categoryName,
		); err != nil {
			return nil, fmt.Errorf("記事行の読み取りに失敗しました: %w", err)
		}

		pwc.Tagline = nullStringValue(tagline)
		pwc.Abstract = nullStringValue(abstract)
		pwc.CategoryID = nullStringValue(categoryID)
		pwc.CategoryName = categoryNameValue(categoryName)

		posts = append(posts, pwc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事一覧の走査に失敗しました: %w", err)
	}

	return posts, nil
}

// Create は記事を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, tagline, abstract, content, category_id, visible, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		post.ID, post.Title, nullString(post.Tagline), nullString(post.Abstract),
		post.Content, nullString(post.CategoryID), post.Visible,
		post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("記事の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は記事を更新する。
func (r *PostgresPostRepo) Update(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts SET
		    title = $2, tagline = $3, abstract = $4, content = $5,
		    category_id = $6, visible = $7, updated_at = $8
		 WHERE id = $1`,
		post.ID, post.Title, nullString(post.Tagline), nullString(post.Abstract),
		post.Content, nullString(post.CategoryID), post.Visible, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("記事の更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDの記事を削除する。
func (r *PostgresPostRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}
	return nil
}

// categoryNameValue はLEFT JOIN結果のカテゴリ名を表示名に変換する。
func categoryNameValue(ns sql.NullString) string {
	if ns.Valid && ns.String != "" {
		return ns.String
	}
	return uncategorizedName
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
