package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/lifelog/internal/metrics"
	"github.com/hitoshi/lifelog/internal/middleware"
	"github.com/hitoshi/lifelog/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// SubmitPassword はパスワードを検証し、ワンタイムコードをメール送信する。
	SubmitPassword(ctx context.Context, password string) error
	// VerifyCode はワンタイムコードを検証し、セッションを発行する。
	VerifyCode(ctx context.Context, code string) (*model.Session, error)
	// Logout はセッションを破棄する。
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は管理者認証のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	collector metrics.MetricsCollector
	config    AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, collector metrics.MetricsCollector, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:   service,
		collector: collector,
		config:    config,
	}
}

// loginRequest はパスワード送信リクエストのボディ。
type loginRequest struct {
	Password string `json:"password"`
}

// verifyRequest はワンタイムコード検証リクエストのボディ。
type verifyRequest struct {
	Code string `json:"code"`
}

// Login はパスワードを検証し、ワンタイムコードをメール送信する。
// POST /api/admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	if err := h.service.SubmitPassword(r.Context(), req.Password); err != nil {
		handleServiceError(w, err)
		return
	}
	h.collector.RecordCodeIssued()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "ワンタイムコードを送信しました。",
	})
}

// Verify はワンタイムコードを検証し、セッションCookieを設定する。
// POST /api/admin/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	session, err := h.service.VerifyCode(r.Context(), req.Code)
	if err != nil {
		h.collector.RecordCodeVerified(verifyOutcome(err))
		handleServiceError(w, err)
		return
	}
	h.collector.RecordCodeVerified("success")

	// セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "ログインしました。",
	})
}

// verifyOutcome は検証エラーをメトリクスのoutcomeラベルに変換する。
func verifyOutcome(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeCodeExpired {
		return "expired"
	}
	return "invalid"
}

// Logout はセッションを破棄し、Cookieを削除する。
// POST /api/admin/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Logout(r.Context(), sessionID); err != nil {
		slog.Error("failed to logout", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "ログアウトしました。",
	})
}
