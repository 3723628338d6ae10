package filmdiary

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/hitoshi/lifelog/internal/model"
)

// displayDateFormat はミラー表示用の日付フォーマット。
const displayDateFormat = "Jan 02, 2006"

// watchedOnMarker はレビューではない鑑賞記録エントリの先頭マーカー。
const watchedOnMarker = "Watched on"

// ベンダー名前空間のプレフィックス。
const (
	letterboxdNS = "letterboxd"
	tmdbNS       = "tmdb"
)

var posterPattern = regexp.MustCompile(`<img src="([^"]+)"`)

// convertItem はフィードの1アイテムをFilmLogItemへ変換する。
// フィールド単位のパース失敗は空値やプレースホルダーへ退避し、エラーにしない。
func convertItem(item *gofeed.Item, syncedAt time.Time) *model.FilmLogItem {
	log := &model.FilmLogItem{
		GUID:     item.GUID,
		Link:     item.Link,
		SyncedAt: syncedAt,
	}

	log.FilmTitle = extValue(item, letterboxdNS, "filmTitle")
	if log.FilmTitle == "" {
		log.FilmTitle = item.Title
	}
	log.FilmYear = extValue(item, letterboxdNS, "filmYear")

	if ratingStr := extValue(item, letterboxdNS, "memberRating"); ratingStr != "" {
		// 0〜5の範囲外はパース不能と同じ扱い（評価なし）
		if rating, err := strconv.ParseFloat(ratingStr, 64); err == nil && rating >= 0 && rating <= 5 {
			log.Rating = &rating
		}
	}
	log.StarsDisplay = renderStars(log.Rating)

	log.PubDate = formatPubDate(item)

	rawWatched := extValue(item, letterboxdNS, "watchedDate")
	log.WatchedDateSortKey = rawWatched
	log.WatchedDate = formatWatchedDate(rawWatched)

	log.IsRewatch = extValue(item, letterboxdNS, "rewatch") == "Yes"
	log.IsReview = strings.Contains(item.GUID, "review")

	if tmdbID := extValue(item, tmdbNS, "movieId"); tmdbID != "" {
		log.TmdbID = &tmdbID
	}

	if m := posterPattern.FindStringSubmatch(item.Description); len(m) == 2 {
		poster := m[1]
		log.PosterURL = &poster
	}

	if review := cleanReviewText(item.Description); review != "" {
		log.ReviewText = &review
	}

	return log
}

// extValue はベンダー名前空間の要素のテキスト値を取得する。
// 要素が存在しない場合は空文字列を返す。
func extValue(item *gofeed.Item, namespace, name string) string {
	exts, ok := item.Extensions[namespace]
	if !ok {
		return ""
	}
	values, ok := exts[name]
	if !ok || len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

// renderStars は0〜5の0.5刻み評価を常に5グリフの星表示に変換する。
// 整数部分を塗りつぶし星、小数部分0.5以上を半星とし、残りを白星で埋める。
// 評価なしの場合は空文字列を返す。
func renderStars(rating *float64) string {
	if rating == nil {
		return ""
	}

	whole := int(*rating)
	if whole < 0 {
		whole = 0
	}
	if whole > 5 {
		whole = 5
	}
	half := 0
	if *rating-float64(whole) >= 0.5 && whole < 5 {
		half = 1
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("★", whole))
	if half == 1 {
		b.WriteString("½")
	}
	b.WriteString(strings.Repeat("☆", 5-whole-half))
	return b.String()
}

// formatPubDate は公開日時を表示用に整形する。パース失敗時は原文を返す。
func formatPubDate(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.Format(displayDateFormat)
	}
	return item.Published
}

// formatWatchedDate はYYYY-MM-DD形式の鑑賞日を表示用に整形する。
// パース失敗時は原文を返す。
func formatWatchedDate(raw string) string {
	if raw == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return raw
	}
	return t.Format(displayDateFormat)
}

// cleanReviewText は説明フィールドからレビュー本文を抽出する。
// CDATAマーカーを除去し、imgタグを捨て、pタグを改行へ変換し、
// 残りのタグを全て除去した上でエンティティを復元する。
// 結果が空、または"Watched on"で始まる鑑賞記録の場合は空文字列を返す。
func cleanReviewText(description string) string {
	text := strings.ReplaceAll(description, "<![CDATA[", "")
	text = strings.ReplaceAll(text, "]]>", "")

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(text))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		token := tokenizer.Token()
		switch tt {
		case html.TextToken:
			b.WriteString(token.Data)
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			if token.Data == "p" {
				b.WriteString("\n")
			}
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" || strings.HasPrefix(cleaned, watchedOnMarker) {
		return ""
	}
	return cleaned
}
