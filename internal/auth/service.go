// Package auth はパスワード+ワンタイムコードの二段階認証フローと
// セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/lifelog/internal/mail"
	"github.com/hitoshi/lifelog/internal/model"
	"github.com/hitoshi/lifelog/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	AdminPassword string // 管理者パスワード
	AdminEmail    string // ワンタイムコードの送信先
	SessionMaxAge int    // セッション有効期間（秒）
	OTPMaxAge     int    // ワンタイムコード有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	otpRepo     repository.OTPRepository
	sessionRepo repository.SessionRepository
	sender      mail.Sender
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	otpRepo repository.OTPRepository,
	sessionRepo repository.SessionRepository,
	sender mail.Sender,
	config ServiceConfig,
) *Service {
	return &Service{
		otpRepo:     otpRepo,
		sessionRepo: sessionRepo,
		sender:      sender,
		config:      config,
	}
}

// SubmitPassword はパスワードを検証し、一致した場合にワンタイムコードを
// 発行してメール送信する。新しいコードの発行は既存コードを常に置換する。
// コードは保存後に送信されるため、送信失敗時もコードは保存されたまま残る。
func (s *Service) SubmitPassword(ctx context.Context, password string) error {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.config.AdminPassword)) != 1 {
		return model.NewInvalidCredentialsError()
	}

	code, err := generateOneTimeCode()
	if err != nil {
		return fmt.Errorf("failed to generate one-time code: %w", err)
	}

	record := &model.OneTimeCode{
		Code:     code,
		IssuedAt: time.Now(),
	}
	if err := s.otpRepo.Replace(ctx, record); err != nil {
		return fmt.Errorf("failed to store one-time code: %w", err)
	}

	body := fmt.Sprintf("Your one-time code is: %s\n\nThis code expires in %d minutes.", code, s.config.OTPMaxAge/60)
	if err := s.sender.Send(s.config.AdminEmail, "Admin Login OTP", body); err != nil {
		slog.Error("one-time code delivery failed", slog.String("error", err.Error()))
		return model.NewDeliveryFailedError()
	}

	slog.Info("one-time code issued", slog.String("email", s.config.AdminEmail))
	return nil
}

// VerifyCode はワンタイムコードを検証し、一致した場合にセッションを発行する。
// 入力コードは大文字に正規化して比較する。
// 期限切れの場合はコードの一致に関係なく期限切れエラーを返し、
// 不一致の場合は保存済みコードを維持したまま不一致エラーを返す。
// 検証成功時はコードを削除し、再利用を防ぐ。
func (s *Service) VerifyCode(ctx context.Context, code string) (*model.Session, error) {
	record, err := s.otpRepo.Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find one-time code: %w", err)
	}
	if record == nil {
		return nil, model.NewInvalidCodeError()
	}

	if time.Since(record.IssuedAt) >= time.Duration(s.config.OTPMaxAge)*time.Second {
		return nil, model.NewCodeExpiredError()
	}

	normalized := strings.ToUpper(strings.TrimSpace(code))
	if subtle.ConstantTimeCompare([]byte(normalized), []byte(record.Code)) != 1 {
		return nil, model.NewInvalidCodeError()
	}

	if err := s.otpRepo.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear one-time code: %w", err)
	}

	session, err := s.createSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("admin logged in", slog.String("session_id", session.ID))
	return session, nil
}

// IsAuthenticated はセッションIDが有効な管理者セッションか判定する。
func (s *Service) IsAuthenticated(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to find session: %w", err)
	}
	return session != nil, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("admin logged out", slog.String("session_id", sessionID))
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateOneTimeCode は6文字の大文字16進ワンタイムコードを生成する。
func generateOneTimeCode() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
