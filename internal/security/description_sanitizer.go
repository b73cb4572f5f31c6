// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DescriptionSanitizer はワークアイテムの説明文に含まれるHTMLをサニタイズし、
// 保存された説明文を表示するクライアントをXSSから保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizer は説明文のサニタイズ機能のインターフェースを定義する。
// ワークアイテムの作成・更新でリポジトリに渡す前に使用される。
type DescriptionSanitizer interface {
	// Sanitize は説明文をサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, pre, code, strong, em）のみを通過させ、
	// script, iframe, style, imgタグおよびon*イベント属性を除去する。
	// aタグのhrefはhttp, https, mailtoスキームのみ許可し、rel="nofollow"を付与する。
	// 除去・書き換えるマークアップがない説明文は、& や < を含むプレーンテキストも含めて
	// 入力をそのまま返す。空文字列の入力には空文字列を返す。
	Sanitize(description string) string
}

// descriptionSanitizer はDescriptionSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type descriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerの新しいインスタンスを生成する。
func NewDescriptionSanitizer() *descriptionSanitizer {
	p := bluemonday.NewPolicy()

	// script, iframe, style等は許可リストに含めないことで除去される
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(false)
	p.RequireNoFollowOnLinks(true)

	return &descriptionSanitizer{
		policy: p,
	}
}

// Sanitize は説明文をサニタイズして安全なHTMLを返す。
// bluemondayはテキスト中の & < > " ' を常にエスケープするため、
// 出力をアンエスケープして入力と一致する場合はマークアップが除去されていないとみなし、入力を返す。
func (s *descriptionSanitizer) Sanitize(description string) string {
	if description == "" {
		return ""
	}
	sanitized := s.policy.Sanitize(description)
	if html.UnescapeString(sanitized) == description {
		return description
	}
	return sanitized
}
