package render

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"pae-asistencia/internal/report"
)

// ErrRenderFailed 编码器失败
var ErrRenderFailed = errors.New("no se pudo generar el documento")

// Pair 标签 / 取值
type Pair struct {
	Label string
	Value string
}

// Document 渲染器的唯一输入，由导出服务组装
//
// 渲染器只读不写：singleflight 之下多个请求可能共享同一份 Document。
type Document struct {
	Title        string
	AnalysisDate string
	GeneratedAt  time.Time
	Filters      []Pair
	Summary      []Pair
	Legend       []string
	Sections     []report.Table
	Records      []report.RecentRecord
}

// slug 去除重音并转为小写短横线，用于文件名
func slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func scopeSlug(site string) string {
	if s := slug(site); s != "" && s != "all" {
		return s
	}
	return "todas-las-sedes"
}

// RosterFilename 名单导出文件名
func RosterFilename(site string) string {
	return "estudiantes_" + scopeSlug(site) + ".xlsx"
}
