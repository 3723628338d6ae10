package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lifelog/internal/model"
)

// PostgresOTPRepo はPostgreSQLを使用したワンタイムコードリポジトリ。
// テーブルは固定センチネルid=1の1レコードのみを保持し、
// 新しいコードの発行はUPSERTで既存コードを原子的に置換する。
type PostgresOTPRepo struct {
	db *sql.DB
}

// NewPostgresOTPRepo はPostgresOTPRepoを生成する。
func NewPostgresOTPRepo(db *sql.DB) *PostgresOTPRepo {
	return &PostgresOTPRepo{db: db}
}

// Replace は現在のワンタイムコードを新しいコードで置換する。
func (r *PostgresOTPRepo) Replace(ctx context.Context, code *model.OneTimeCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_codes (id, code, issued_at) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, issued_at = EXCLUDED.issued_at`,
		code.Code, code.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("ワンタイムコードの置換に失敗しました: %w", err)
	}
	return nil
}

// Find は現在有効なワンタイムコードを取得する。存在しない場合はnilを返す。
func (r *PostgresOTPRepo) Find(ctx context.Context) (*model.OneTimeCode, error) {
	code := &model.OneTimeCode{}
	err := r.db.QueryRowContext(ctx,
		`SELECT code, issued_at FROM otp_codes WHERE id = 1`,
	).Scan(&code.Code, &code.IssuedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ワンタイムコードの取得に失敗しました: %w", err)
	}

	return code, nil
}

// Clear はワンタイムコードを削除する。存在しない場合も成功する。
func (r *PostgresOTPRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("ワンタイムコードの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ OTPRepository = (*PostgresOTPRepo)(nil)
