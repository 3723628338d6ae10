package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/lifelog/internal/model"
)

type mockSessionFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

var _ SessionFinder = (*mockSessionFinder)(nil)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminSessionMiddleware_NoCookie_Returns401(t *testing.T) {
	mw := NewAdminSessionMiddleware(&mockSessionFinder{})
	handler := mw(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/overview", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if body.Code != model.ErrCodeUnauthorized {
		t.Errorf("エラーコード = %q, want UNAUTHORIZED", body.Code)
	}
}

func TestAdminSessionMiddleware_ExpiredSession_Returns401(t *testing.T) {
	// 期限切れセッションはリポジトリがnilを返す
	mw := NewAdminSessionMiddleware(&mockSessionFinder{})
	handler := mw(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/overview", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "expired-session"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAdminSessionMiddleware_FinderError_Returns401(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(_ context.Context, _ string) (*model.Session, error) {
			return nil, errors.New("db connection lost")
		},
	}
	mw := NewAdminSessionMiddleware(finder)
	handler := mw(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/overview", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "some-session"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAdminSessionMiddleware_ValidSession_InjectsSessionID(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	mw := NewAdminSessionMiddleware(finder)

	var gotSessionID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSessionID, _ = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/overview", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-session"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if gotSessionID != "valid-session" {
		t.Errorf("コンテキストのセッションID = %q, want valid-session", gotSessionID)
	}
}

func TestSessionIDFromContext_MissingValue_ReturnsError(t *testing.T) {
	if _, err := SessionIDFromContext(context.Background()); err == nil {
		t.Error("セッションIDなしのコンテキストはエラーを返すべきです")
	}
}
