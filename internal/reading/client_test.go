package reading

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestClient_FetchProfileID_ResolvesHandle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("HTTPメソッド = %s, want POST", r.Method)
		}

		body, _ := io.ReadAll(r.Body)
		var req graphqlRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("リクエストボディのパースに失敗: %v", err)
		}
		if req.Variables["handle"] != "hitoshi" {
			t.Errorf("handle変数 = %v, want hitoshi", req.Variables["handle"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"users": [{"id": 123}]}}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf))
	c.endpoint = server.URL

	id, err := c.FetchProfileID(context.Background(), "hitoshi")
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if id != 123 {
		t.Errorf("プロファイルID = %d, want 123", id)
	}
}

func TestClient_FetchProfileID_UnknownHandle_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"users": []}}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf))
	c.endpoint = server.URL

	if _, err := c.FetchProfileID(context.Background(), "unknown"); err == nil {
		t.Error("該当ユーザーなしの場合はエラーが返されるべきです")
	}
}

func TestClient_Execute_NonOKStatus_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf))
	c.endpoint = server.URL

	if _, err := c.FetchProfileID(context.Background(), "hitoshi"); err == nil {
		t.Error("非2xxステータスの場合はエラーが返されるべきです")
	}
}

func TestClient_Execute_GraphQLErrors_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors": [{"message": "field not found"}]}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf))
	c.endpoint = server.URL

	if _, err := c.FetchProfileID(context.Background(), "hitoshi"); err == nil {
		t.Error("GraphQLエラー応答の場合はエラーが返されるべきです")
	}
}

func TestClient_FetchReadingStates_MapsFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"user_books": [
			{"rating": 4.5, "review_raw": "great", "last_read_date": "2024-03-15", "status_id": 3, "book": {"id": 42}}
		]}}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf))
	c.endpoint = server.URL

	states, err := c.FetchReadingStates(context.Background(), 123)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("1件のレコードが返されるべきですが、%d件でした", len(states))
	}
	st := states[0]
	if st.BookID != "42" {
		t.Errorf("BookID = %q, want 42", st.BookID)
	}
	if st.Rating == nil || *st.Rating != 4.5 {
		t.Errorf("Rating = %v, want 4.5", st.Rating)
	}
	if st.StatusID != 3 {
		t.Errorf("StatusID = %d, want 3", st.StatusID)
	}
}

func TestClient_FetchBooksByStatus_MapsAuthors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"user_books": [
			{"book": {"id": 7, "title": "本のタイトル", "subtitle": "副題",
				"cached_image": {"url": "https://example.com/cover.jpg"},
				"cached_contributors": [{"author": {"name": "著者A"}}, {"author": {"name": "著者B"}}]}}
		]}}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf))
	c.endpoint = server.URL

	books, err := c.FetchBooksByStatus(context.Background(), 123, statusIDFinished)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("1件の書籍が返されるべきですが、%d件でした", len(books))
	}
	book := books[0]
	if book.Title != "本のタイトル" {
		t.Errorf("Title = %q", book.Title)
	}
	if book.CoverURL != "https://example.com/cover.jpg" {
		t.Errorf("CoverURL = %q", book.CoverURL)
	}
	if len(book.Authors) != 2 || book.Authors[0] != "著者A" {
		t.Errorf("Authors = %v", book.Authors)
	}
}
