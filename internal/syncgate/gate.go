// Package syncgate はフィードミラーのステイルネス判定を提供する。
//
// 同期はバックグラウンドタイマーではなくページ表示時に遅延実行されるため、
// このゲートが外部APIへの負荷を抑えつつ表示データの鮮度を5分以内に保つ。
package syncgate

import (
	"time"

	"github.com/hitoshi/lifelog/internal/model"
)

// DefaultMaxAge はミラーの許容ステイル時間のデフォルト値。
const DefaultMaxAge = 5 * time.Minute

// ShouldSync は指定フィードの再同期が必要かを判定する純粋関数。
// 同期メタデータが存在しない、タイムスタンプがゼロ値、または経過時間が
// maxAgeを厳密に超えている場合にtrueを返す。経過時間がちょうどmaxAgeに
// 等しい場合は同期しない。
func ShouldSync(status *model.SyncStatus, now time.Time, maxAge time.Duration) bool {
	if status == nil {
		return true
	}
	if status.LastSyncedAt.IsZero() {
		return true
	}
	return now.Sub(status.LastSyncedAt) > maxAge
}
