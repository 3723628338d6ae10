package blog

import (
	"bytes"
	"fmt"

	"github.com/hitoshi/lifelog/internal/security"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// MarkdownRenderer はマークダウン原文をサニタイズ済みHTMLへ変換する。
// フェンス付きコードブロックとテーブル記法に対応する。
type MarkdownRenderer struct {
	md        goldmark.Markdown
	sanitizer security.ContentSanitizerService
}

// NewMarkdownRenderer はMarkdownRendererを生成する。
func NewMarkdownRenderer(sanitizer security.ContentSanitizerService) *MarkdownRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
		),
	)
	return &MarkdownRenderer{
		md:        md,
		sanitizer: sanitizer,
	}
}

// Render はマークダウンをHTMLへ変換し、サニタイズして返す。
func (r *MarkdownRenderer) Render(content string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return r.sanitizer.Sanitize(buf.String()), nil
}
