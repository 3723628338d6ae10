package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lifelog/internal/blog"
	"github.com/hitoshi/lifelog/internal/model"
)

// BlogServiceInterface はブログハンドラーが必要とするサービスインターフェース。
type BlogServiceInterface interface {
	ListVisibleCategories(ctx context.Context) ([]*model.Category, error)
	ListVisiblePosts(ctx context.Context, categoryID string) ([]*model.PostWithCategory, error)
	GetVisiblePost(ctx context.Context, postID string) (*blog.RenderedPost, error)
	ListAllCategories(ctx context.Context) ([]*model.Category, error)
	ListAllPosts(ctx context.Context) ([]*model.PostWithCategory, error)
	CreateCategory(ctx context.Context, name string, visible bool) (*model.Category, error)
	UpdateCategory(ctx context.Context, id, name string, visible bool) (*model.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	CreatePost(ctx context.Context, input blog.PostInput) (*model.Post, error)
	UpdatePost(ctx context.Context, id string, input blog.PostInput) (*model.Post, error)
	DeletePost(ctx context.Context, id string) error
	PreviewMarkdown(content string) (string, error)
}

// BlogHandler はブログのHTTPハンドラー。
type BlogHandler struct {
	service BlogServiceInterface
}

// NewBlogHandler はBlogHandlerを生成する。
func NewBlogHandler(service BlogServiceInterface) *BlogHandler {
	return &BlogHandler{service: service}
}

// categoryResponse はカテゴリのAPIレスポンス。
type categoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Visible   bool      `json:"visible"`
	CreatedAt time.Time `json:"created_at"`
}

// postSummaryResponse は記事一覧のAPIレスポンス。
type postSummaryResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Tagline      string    `json:"tagline"`
	Abstract     string    `json:"abstract"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Visible      bool      `json:"visible"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// postDetailResponse は記事詳細のAPIレスポンス。本文のHTML変換結果を含む。
type postDetailResponse struct {
	postSummaryResponse
	Content     string `json:"content"`
	ContentHTML string `json:"content_html"`
}

// categoryRequest はカテゴリの作成・更新リクエストのボディ。
type categoryRequest struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
}

// postRequest は記事の作成・更新リクエストのボディ。
type postRequest struct {
	Title      string `json:"title"`
	Tagline    string `json:"tagline"`
	Abstract   string `json:"abstract"`
	Content    string `json:"content"`
	CategoryID string `json:"category_id"`
	Visible    bool   `json:"visible"`
}

// previewRequest はマークダウンプレビューリクエストのボディ。
type previewRequest struct {
	Content string `json:"content"`
}

// ListCategories は公開カテゴリの一覧を返す。
// GET /api/categories
func (h *BlogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListVisibleCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponses(categories))
}

// ListPosts は公開記事の一覧を返す。?category=でカテゴリ絞り込みが可能。
// GET /api/posts
func (h *BlogHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListVisiblePosts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostSummaryResponses(posts))
}

// GetPost は公開記事の詳細をHTML変換済み本文付きで返す。
// GET /api/posts/:id
func (h *BlogHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	post, err := h.service.GetVisiblePost(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, postDetailResponse{
		postSummaryResponse: toPostSummaryResponse(&post.PostWithCategory),
		Content:             post.Content,
		ContentHTML:         post.ContentHTML,
	})
}

// Overview は管理画面用に非公開を含む全カテゴリと全記事を返す。
// GET /api/admin/overview
func (h *BlogHandler) Overview(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListAllCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	posts, err := h.service.ListAllPosts(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"categories": toCategoryResponses(categories),
		"posts":      toPostSummaryResponses(posts),
	})
}

// CreateCategory はカテゴリを作成する。
// POST /api/admin/categories
func (h *BlogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	category, err := h.service.CreateCategory(r.Context(), req.Name, req.Visible)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// UpdateCategory はカテゴリを更新する。
// PUT /api/admin/categories/:id
func (h *BlogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req.Name, req.Visible)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// DeleteCategory はカテゴリを削除する。属する記事もCASCADE削除される。
// DELETE /api/admin/categories/:id
func (h *BlogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreatePost は記事を作成する。
// POST /api/admin/posts
func (h *BlogHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	post, err := h.service.CreatePost(r.Context(), toPostInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPostSummaryResponse(&model.PostWithCategory{Post: *post}))
}

// UpdatePost は記事を更新する。
// PUT /api/admin/posts/:id
func (h *BlogHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	post, err := h.service.UpdatePost(r.Context(), chi.URLParam(r, "id"), toPostInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostSummaryResponse(&model.PostWithCategory{Post: *post}))
}

// DeletePost は記事を削除する。
// DELETE /api/admin/posts/:id
func (h *BlogHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview はマークダウンをサニタイズ済みHTMLに変換して返す。
// POST /api/admin/preview
func (h *BlogHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	html, err := h.service.PreviewMarkdown(req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"html": html})
}

// --- ヘルパー関数 ---

func toCategoryResponse(c *model.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Visible:   c.Visible,
		CreatedAt: c.CreatedAt,
	}
}

func toCategoryResponses(categories []*model.Category) []categoryResponse {
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	return out
}

func toPostSummaryResponse(p *model.PostWithCategory) postSummaryResponse {
	return postSummaryResponse{
		ID:           p.ID,
		Title:        p.Title,
		Tagline:      p.Tagline,
		Abstract:     p.Abstract,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Visible:      p.Visible,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toPostSummaryResponses(posts []*model.PostWithCategory) []postSummaryResponse {
	out := make([]postSummaryResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostSummaryResponse(p))
	}
	return out
}

func toPostInput(req postRequest) blog.PostInput {
	return blog.PostInput{
		Title:      req.Title,
		Tagline:    req.Tagline,
		Abstract:   req.Abstract,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		Visible:    req.Visible,
	}
}
