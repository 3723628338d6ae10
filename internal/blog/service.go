// Package blog はブログ記事とカテゴリの管理機能を提供する。
package blog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/lifelog/internal/model"
	"github.com/hitoshi/lifelog/internal/repository"
)

// RenderedPost はマークダウン変換済みの記事を表す。
type RenderedPost struct {
	model.PostWithCategory
	ContentHTML string
}

// Service はブログに関するビジネスロジックを提供する。
type Service struct {
	categoryRepo repository.CategoryRepository
	postRepo     repository.PostRepository
	renderer     *MarkdownRenderer
}

// NewService はServiceを生成する。
func NewService(
	categoryRepo repository.CategoryRepository,
	postRepo repository.PostRepository,
	renderer *MarkdownRenderer,
) *Service {
	return &Service{
		categoryRepo: categoryRepo,
		postRepo:     postRepo,
		renderer:     renderer,
	}
}

// ListVisibleCategories は公開カテゴリをname昇順で返す。
func (s *Service) ListVisibleCategories(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.categoryRepo.ListVisible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list visible categories: %w", err)
	}
	return categories, nil
}

// ListVisiblePosts は公開記事をカテゴリ名付きでcreated_at降順で返す。
// categoryIDが非空の場合は該当カテゴリの記事のみに絞り込む。
func (s *Service) ListVisiblePosts(ctx context.Context, categoryID string) ([]*model.PostWithCategory, error) {
	if categoryID != "" {
		posts, err := s.postRepo.ListVisibleByCategory(ctx, categoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to list posts by category: %w", err)
		}
		return posts, nil
	}

	posts, err := s.postRepo.ListVisible(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list visible posts: %w", err)
	}
	return posts, nil
}

// GetVisiblePost は公開記事をマークダウン変換済みHTML付きで取得する。
// 非公開または未存在の場合はPOST_NOT_FOUNDエラーを返す。
func (s *Service) GetVisiblePost(ctx context.Context, postID string) (*RenderedPost, error) {
	post, err := s.postRepo.FindVisibleByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	html, err := s.renderer.Render(post.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to render post content: %w", err)
	}

	return &RenderedPost{
		PostWithCategory: *post,
		ContentHTML:      html,
	}, nil
}

// ListAllPosts は非公開を含む全記事をカテゴリ名付きで返す。管理画面用。
func (s *Service) ListAllPosts(ctx context.Context) ([]*model.PostWithCategory, error) {
	posts, err := s.postRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list all posts: %w", err)
	}
	return posts, nil
}

// ListAllCategories は非公開を含む全カテゴリを返す。管理画面用。
func (s *Service) ListAllCategories(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.categoryRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list all categories: %w", err)
	}
	return categories, nil
}

// CreateCategory はカテゴリを作成する。
func (s *Service) CreateCategory(ctx context.Context, name string, visible bool) (*model.Category, error) {
	if name == "" {
		return nil, model.NewInvalidRequestError("カテゴリ名は必須です")
	}

	category := &model.Category{
		ID:        uuid.New().String(),
		Name:      name,
		Visible:   visible,
		CreatedAt: time.Now(),
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	slog.Info("category created", slog.String("category_id", category.ID), slog.String("name", name))
	return category, nil
}

// UpdateCategory はカテゴリの名前と公開状態を更新する。
func (s *Service) UpdateCategory(ctx context.Context, id, name string, visible bool) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(id)
	}
	if name == "" {
		return nil, model.NewInvalidRequestError("カテゴリ名は必須です")
	}

	category.Name = name
	category.Visible = visible
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	return category, nil
}

// DeleteCategory はカテゴリを削除する。属する記事はCASCADE削除される。
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find category: %w", err)
	}
	if category == nil {
		return model.NewCategoryNotFoundError(id)
	}

	if err := s.categoryRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	slog.Info("category deleted", slog.String("category_id", id))
	return nil
}

// PostInput は記事の作成・更新の入力を表す。
type PostInput struct {
	Title      string
	Tagline    string
	Abstract   string // 空の場合はContentから自動生成
	Content    string
	CategoryID string
	Visible    bool
}

// CreatePost は記事を作成する。抜粋が未指定の場合は本文から自動生成する。
func (s *Service) CreatePost(ctx context.Context, input PostInput) (*model.Post, error) {
	if input.Title == "" {
		return nil, model.NewInvalidRequestError("記事タイトルは必須です")
	}

	now := time.Now()
	post := &model.Post{
		ID:         uuid.New().String(),
		Title:      input.Title,
		Tagline:    input.Tagline,
		Abstract:   GenerateAbstract(input.Content, input.Abstract),
		Content:    input.Content,
		CategoryID: input.CategoryID,
		Visible:    input.Visible,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	slog.Info("post created", slog.String("post_id", post.ID), slog.String("title", post.Title))
	return post, nil
}

// UpdatePost は記事を更新する。抜粋が未指定の場合は本文から再生成する。
func (s *Service) UpdatePost(ctx context.Context, id string, input PostInput) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(id)
	}
	if input.Title == "" {
		return nil, model.NewInvalidRequestError("記事タイトルは必須です")
	}

	post.Title = input.Title
	post.Tagline = input.Tagline
	post.Abstract = GenerateAbstract(input.Content, input.Abstract)
	post.Content = input.Content
	post.CategoryID = input.CategoryID
	post.Visible = input.Visible
	post.UpdatedAt = time.Now()

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return post, nil
}

// DeletePost は記事を削除する。
func (s *Service) DeletePost(ctx context.Context, id string) error {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return model.NewPostNotFoundError(id)
	}

	if err := s.postRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	slog.Info("post deleted", slog.String("post_id", id))
	return nil
}

// PreviewMarkdown はマークダウンをサニタイズ済みHTMLへ変換して返す。
// 管理画面のプレビュー用。
func (s *Service) PreviewMarkdown(content string) (string, error) {
	html, err := s.renderer.Render(content)
	if err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	return html, nil
}
