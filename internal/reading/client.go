// Package reading は読書トラッカー（Hardcover）との同期機能を提供する。
// GraphQLエンドポイントの呼び出しとミラーコレクションの全置換を含む。
package reading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// defaultEndpoint はHardcover GraphQL APIのエンドポイント。
	defaultEndpoint = "https://api.hardcover.app/v1/graphql"
	// booksPageSize はステータス別書籍取得の1回あたりの最大件数。
	booksPageSize = 50
	// statesPageSize は読書ステータスレコード取得の最大件数。
	statesPageSize = 100
)

// GraphQLクエリドキュメント。ページサイズは固定で、2ページ目以降は取得しない。
const (
	profileQuery = `query ProfileByHandle($handle: citext!) {
  users(where: {username: {_eq: $handle}}, limit: 1) {
    id
  }
}`

	readingStatesQuery = `query ReadingStatesByProfile($profileId: Int!) {
  user_books(where: {user_id: {_eq: $profileId}}, limit: 100) {
    rating
    review_raw
    last_read_date
    status_id
    book {
      id
    }
  }
}`

	booksByStatusQuery = `query BooksByStatusAndProfile($profileId: Int!, $statusId: Int!) {
  user_books(where: {user_id: {_eq: $profileId}, status_id: {_eq: $statusId}}, limit: 50, order_by: {updated_at: desc}) {
    book {
      id
      title
      subtitle
      description
      cached_image
      cached_contributors
    }
  }
}`
)

// ステータスバケットに対応するHardcoverのstatus_id。
const (
	statusIDWant     = 1
	statusIDReading  = 2
	statusIDFinished = 3
)

// ReadingState は読書ステータスレコードの生データを表す。
type ReadingState struct {
	BookID       string
	Rating       *float64
	Review       *string
	LastReadDate *string // ISO-8601原文
	StatusID     int
}

// Book は書籍メタデータの生データを表す。
type Book struct {
	ID          string
	Title       string
	Subtitle    string
	Description string
	CoverURL    string
	Authors     []string
}

// Client は読書トラッカーAPIのクライアント。
// 3種類の固定クエリドキュメントをJSON POSTで実行する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   defaultEndpoint,
	}
}

// graphqlRequest はGraphQLリクエストボディを表す。
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// execute はGraphQLクエリを実行し、dataフィールドをresultへデコードする。
func (c *Client) execute(ctx context.Context, query string, variables map[string]any, result any) error {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Lifelog/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("読書トラッカーAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("読書トラッカーAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("読書トラッカーAPIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("読書トラッカーAPIがエラーを返しました: %s", envelope.Errors[0].Message)
	}
	if envelope.Data == nil {
		return fmt.Errorf("レスポンスにdataフィールドがありません")
	}

	if err := json.Unmarshal(envelope.Data, result); err != nil {
		return fmt.Errorf("dataフィールドのパースに失敗しました: %w", err)
	}
	return nil
}

// FetchProfileID はプロファイルハンドルからプロファイルIDを解決する。
// 該当ユーザーが存在しない場合はエラーを返す。
func (c *Client) FetchProfileID(ctx context.Context, handle string) (int, error) {
	var data struct {
		Users []struct {
			ID int `json:"id"`
		} `json:"users"`
	}
	if err := c.execute(ctx, profileQuery, map[string]any{"handle": handle}, &data); err != nil {
		return 0, fmt.Errorf("プロファイルの解決に失敗しました: %w", err)
	}
	if len(data.Users) == 0 {
		return 0, fmt.Errorf("プロファイルが見つかりません: %s", handle)
	}
	return data.Users[0].ID, nil
}

// FetchReadingStates はプロファイルの読書ステータスレコードを最大100件取得する。
func (c *Client) FetchReadingStates(ctx context.Context, profileID int) ([]ReadingState, error) {
	var data struct {
		UserBooks []struct {
			Rating       *float64 `json:"rating"`
			ReviewRaw    *string  `json:"review_raw"`
			LastReadDate *string  `json:"last_read_date"`
			StatusID     int      `json:"status_id"`
			Book         struct {
				ID json.Number `json:"id"`
			} `json:"book"`
		} `json:"user_books"`
	}
	if err := c.execute(ctx, readingStatesQuery, map[string]any{"profileId": profileID}, &data); err != nil {
		return nil, fmt.Errorf("読書ステータスの取得に失敗しました: %w", err)
	}

	states := make([]ReadingState, 0, len(data.UserBooks))
	for _, ub := range data.UserBooks {
		states = append(states, ReadingState{
			BookID:       ub.Book.ID.String(),
			Rating:       ub.Rating,
			Review:       ub.ReviewRaw,
			LastReadDate: ub.LastReadDate,
			StatusID:     ub.StatusID,
		})
	}
	return states, nil
}

// FetchBooksByStatus は指定ステータスの書籍を最大50件取得する。
func (c *Client) FetchBooksByStatus(ctx context.Context, profileID, statusID int) ([]Book, error) {
	var data struct {
		UserBooks []struct {
			Book struct {
				ID          json.Number `json:"id"`
				Title       string      `json:"title"`
				Subtitle    string      `json:"subtitle"`
				Description string      `json:"description"`
				CachedImage struct {
					URL string `json:"url"`
				} `json:"cached_image"`
				CachedContributors []struct {
					Author struct {
						Name string `json:"name"`
					} `json:"author"`
				} `json:"cached_contributors"`
			} `json:"book"`
		} `json:"user_books"`
	}
	if err := c.execute(ctx, booksByStatusQuery, map[string]any{"profileId": profileID, "statusId": statusID}, &data); err != nil {
		return nil, fmt.Errorf("書籍一覧の取得に失敗しました: %w", err)
	}

	books := make([]Book, 0, len(data.UserBooks))
	for _, ub := range data.UserBooks {
		authors := make([]string, 0, len(ub.Book.CachedContributors))
		for _, c := range ub.Book.CachedContributors {
			if c.Author.Name != "" {
				authors = append(authors, c.Author.Name)
			}
		}
		books = append(books, Book{
			ID:          ub.Book.ID.String(),
			Title:       ub.Book.Title,
			Subtitle:    ub.Book.Subtitle,
			Description: ub.Book.Description,
			CoverURL:    ub.Book.CachedImage.URL,
			Authors:     authors,
		})
	}
	return books, nil
}
