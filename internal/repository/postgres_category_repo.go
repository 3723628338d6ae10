package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lifelog/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	category := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, visible, created_at FROM categories WHERE id = $1`,
		id,
	).Scan(&category.ID, &category.Name, &category.Visible, &category.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}

	return category, nil
}

// ListAll は全カテゴリをname昇順で返す。
func (r *PostgresCategoryRepo) ListAll(ctx context.Context) ([]*model.Category, error) {
	return r.list(ctx, `SELECT id, name, visible, created_at FROM categories ORDER BY name ASC`)
}

// ListVisible は公開カテゴリのみをname昇順で返す。
func (r *PostgresCategoryRepo) ListVisible(ctx context.Context) ([]*model.Category, error) {
	return r.list(ctx, `SELECT id, name, visible, created_at FROM categories WHERE visible = true ORDER BY name ASC`)
}

func (r *PostgresCategoryRepo) list(ctx context.Context, query string) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		category := &model.Category{}
		if err := rows.Scan(&category.ID, &category.Name, &category.Visible, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("カテゴリ行の読み取りに失敗しました: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の走査に失敗しました: %w", err)
	}

	return categories, nil
}

// Create はカテゴリを作成する。
func (r *PostgresCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, visible, created_at) VALUES ($1, $2, $3, $4)`,
		category.ID, category.Name, category.Visible, category.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はカテゴリを更新する。
func (r *PostgresCategoryRepo) Update(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = $2, visible = $3 WHERE id = $1`,
		category.ID, category.Name, category.Visible,
	)
	if err != nil {
		return fmt.Errorf("カテゴリの更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのカテゴリを削除する。
// カテゴリに属する記事はCASCADE削除される。
func (r *PostgresCategoryRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("カテゴリの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
