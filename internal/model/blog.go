// Package model はドメインモデルを定義する。
package model

import "time"

// Category はブログ記事のカテゴリを表す。
type Category struct {
	ID        string
	Name      string
	Visible   bool
	CreatedAt time.Time
}

// Post はブログ記事を表す。
// Contentはマークダウン原文のまま保存し、表示時にHTMLへ変換する。
type Post struct {
	ID         string
	Title      string
	Tagline    string
	Abstract   string
	Content    string
	CategoryID string
	Visible    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PostWithCategory は記事とカテゴリ名を結合したモデル。
// categoriesテーブルとLEFT JOINして取得される。カテゴリ未設定や
// 削除済みカテゴリの場合、CategoryNameは"Uncategorized"となる。
type PostWithCategory struct {
	Post
	CategoryName string
}
