package blog

import (
	"regexp"
	"strings"
)

// abstractMaxLen は自動生成される抜粋の最大文字数。
const abstractMaxLen = 250

var (
	markdownSymbolPattern = regexp.MustCompile(`[#*` + "`" + `\[\]()]+`)
	htmlTagPattern        = regexp.MustCompile(`<[^>]+>`)
)

// GenerateAbstract は記事の抜粋を生成する。
// customが非空白ならそのまま採用する。そうでない場合は本文から
// マークダウン記号とHTMLタグを除去し、空白を正規化した上で
// 250文字を超えるときは切り詰めて"..."を付加する。
func GenerateAbstract(content, custom string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}

	plain := markdownSymbolPattern.ReplaceAllString(content, "")
	plain = htmlTagPattern.ReplaceAllString(plain, "")
	plain = strings.Join(strings.Fields(plain), " ")

	runes := []rune(plain)
	if len(runes) > abstractMaxLen {
		return string(runes[:abstractMaxLen]) + "..."
	}
	return plain
}
