// Package model はドメインモデルを定義する。
package model

import "time"

// OneTimeCode は管理者ログイン用のワンタイムコードを表す。
// 常に最大1件のみが有効で、新しいコードの発行は既存コードを無効化する。
type OneTimeCode struct {
	Code     string
	IssuedAt time.Time
}

// Session は管理者のログインセッションを表す。
type Session struct {
	ID        string
	ExpiresAt time.Time
	CreatedAt time.Time
}
