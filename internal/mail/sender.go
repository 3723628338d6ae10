// Package mail はSMTP経由のメール送信機能を提供する。
package mail

import (
	"fmt"
	"net/smtp"
)

// Sender はメール送信のインターフェース。
// 送信は同期的に行われ、失敗してもリトライしない。
type Sender interface {
	// Send は指定の宛先にプレーンテキストメールを送信する。
	Send(to, subject, body string) error
}

// SMTPConfig はSMTP送信の設定。
type SMTPConfig struct {
	Host     string
	Port     string
	Email    string // 認証アカウント兼Fromアドレス
	Password string
}

// SMTPSender は認証付きSMTPでメールを送信する実装。
// サーバーがSTARTTLSをサポートする場合、smtp.SendMailが自動的にTLSへ昇格する。
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender はSMTPSenderを生成する。
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

// Send は指定の宛先にプレーンテキストメールを送信する。
func (s *SMTPSender) Send(to, subject, body string) error {
	if s.config.Host == "" || s.config.Email == "" {
		return fmt.Errorf("SMTP設定が不足しています")
	}

	auth := smtp.PlainAuth("", s.config.Email, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.config.Email, to, subject, body))

	if err := smtp.SendMail(addr, auth, s.config.Email, []string{to}, msg); err != nil {
		return fmt.Errorf("メールの送信に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Sender = (*SMTPSender)(nil)
