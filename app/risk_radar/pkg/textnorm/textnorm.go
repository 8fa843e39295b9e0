// Package textnorm 把抓取和 LLM 产出的文本统一转换为可移植的纯 ASCII 文本。
package textnorm

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// 常见排版符号到 ASCII 的映射
var replacer = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'",
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`,
	"«", `"`, "»", `"`,
	"‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-", "―", "-", "−", "-",
	"…", "...",
	"™", "(TM)", "©", "(c)", "®", "(R)",
	"°", " degrees", "±", "+/-",
	"•", "-", "·", "-",
)

var strict = bluemonday.StrictPolicy()

// ToASCII 将文本规范化为可打印 ASCII：映射排版符号、去除变音符号、
// 丢弃其余非 ASCII 字符并折叠空白。结果满足 ToASCII(ToASCII(x)) == ToASCII(x)。
func ToASCII(s string) string {
	if s == "" {
		return ""
	}
	s = replacer.Replace(s)
	s = norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r >= 0x20 && r <= 0x7e:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// StripHTML 去掉 HTML 标签并反转义实体，搜索摘要里经常夹带 <b> 等标记
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	return html.UnescapeString(strict.Sanitize(s))
}

// Clean 先剥离 HTML 再转换为 ASCII，用于采集到的标题、摘要与来源
func Clean(s string) string {
	return ToASCII(StripHTML(s))
}

// CleanAll 对切片中的每个元素执行 ToASCII，返回新切片
func CleanAll(items []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = ToASCII(item)
	}
	return out
}

// ToASCIILines 逐行转换并保留段落结构，用于多段落的长文本；连续空行合并为一行
func ToASCIILines(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = ToASCII(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
