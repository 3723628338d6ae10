// Package model はドメインモデルを定義する。
package model

import "time"

// Feed はライフログの同期対象フィードを識別する。
// sync_statusテーブルのキーとして使用する。
type Feed string

const (
	// FeedReading は読書トラッカー（Hardcover）のミラー。
	FeedReading Feed = "reading"
	// FeedFilms は映画日記（Letterboxd）のミラー。
	FeedFilms Feed = "films"
)

// ReadingStatus は読書ステータスバケットを表す。
// 1冊の本は1プロファイルにつきいずれか1つのバケットにのみ属する。
type ReadingStatus string

const (
	// ReadingStatusReading は読書中。
	ReadingStatusReading ReadingStatus = "reading"
	// ReadingStatusFinished は読了。
	ReadingStatusFinished ReadingStatus = "finished"
	// ReadingStatusWant は読みたい本。
	ReadingStatusWant ReadingStatus = "want"
)

// ReadingItem は読書トラッカーからミラーした1冊の本を表す。
// コレクション全体が同期のたびに全置換される。
type ReadingItem struct {
	ExternalID    string
	Title         string
	Subtitle      string
	Description   string
	CoverURL      string
	Authors       []string
	Rating        *float64
	Review        *string
	CompletedDate *string // "Jan 02, 2006" 形式の表示用文字列
	Status        ReadingStatus
	SyncedAt      time.Time
}

// FilmLogItem は映画日記フィードからミラーした1エントリを表す。
// コレクション全体が同期のたびに全置換される。
type FilmLogItem struct {
	GUID               string
	FilmTitle          string
	FilmYear           string
	Rating             *float64 // 0〜5、0.5刻み
	StarsDisplay       string   // 常に5グリフ分の星表示
	Link               string
	PubDate            string // "Jan 02, 2006" 形式（パース失敗時は原文）
	WatchedDate        string // 表示用
	WatchedDateSortKey string // YYYY-MM-DD 原文（辞書順ソートキー）
	IsRewatch          bool
	ReviewText         *string
	PosterURL          *string
	TmdbID             *string
	IsReview           bool
	SyncedAt           time.Time
}

// SyncStatus はフィードごとの同期メタデータを表す。
// フィード名をキーとする1レコードで、同期成功のたびに全置換される。
type SyncStatus struct {
	Feed          Feed
	LastSyncedAt  time.Time
	ItemCount     int
	ReadingCount  int
	FinishedCount int
	WantCount     int
}
