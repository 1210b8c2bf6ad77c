// Package textfmt применяет легковесную разметку к тексту сообщения:
// ссылки, жирный, курсив, код, зачеркивание. Результат — HTML-фрагмент.
package textfmt

import (
	"fmt"
	"regexp"
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML экранирует специальные символы HTML.
func EscapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

var (
	mdLinkRe = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+|www\.[^\)]+)\)`)
	boldRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe = regexp.MustCompile(`__(.+?)__`)
	codeRe   = regexp.MustCompile("`(.+?)`")
	strikeRe = regexp.MustCompile(`~~(.+?)~~`)
	urlRe    = regexp.MustCompile(`(https?://[^\s<>"]+|www\.[^\s<>"]+)`)
)

func normalizeURL(u string) string {
	if strings.HasPrefix(u, "www.") {
		return "http://" + u
	}
	return u
}

// Format превращает текст с разметкой в HTML-фрагмент. Markdown-ссылки,
// **жирный**, __курсив__, `код`, ~~зачеркнутый~~ и голые URL. Уже
// размеченные ссылки повторно не оборачиваются.
func Format(text string) string {
	if text == "" {
		return ""
	}

	text = mdLinkRe.ReplaceAllStringFunc(text, func(m string) string {
		parts := mdLinkRe.FindStringSubmatch(m)
		label := EscapeHTML(parts[1])
		href := EscapeHTML(normalizeURL(strings.TrimSpace(parts[2])))
		return fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, href, label)
	})

	text = replaceEscaped(text, boldRe, "strong")
	text = replaceEscaped(text, italicRe, "em")
	text = replaceEscaped(text, codeRe, "code")
	text = replaceEscaped(text, strikeRe, "del")

	return linkBareURLs(text)
}

func replaceEscaped(text string, re *regexp.Regexp, tag string) string {
	return re.ReplaceAllStringFunc(text, func(m string) string {
		inner := re.FindStringSubmatch(m)[1]
		return fmt.Sprintf("<%s>%s</%s>", tag, EscapeHTML(inner), tag)
	})
}

// linkBareURLs оборачивает в <a> голые URL, пропуская те, что уже стоят
// внутри атрибута href или тега <a>.
func linkBareURLs(text string) string {
	matches := urlRe.FindAllStringIndex(text, -1)
	if matches == nil {
		return text
	}

	var b strings.Builder
	last := 0
	for _, loc := range matches {
		start, end := loc[0], loc[1]
		b.WriteString(text[last:start])

		url := text[start:end]
		ctxStart := start - 10
		if ctxStart < 0 {
			ctxStart = 0
		}
		before := strings.ToLower(text[ctxStart:start])
		if strings.Contains(before, "href=") || strings.Contains(before, "<a ") {
			b.WriteString(url)
		} else {
			href := EscapeHTML(normalizeURL(url))
			fmt.Fprintf(&b, `<a href="%s" target="_blank">%s</a>`, href, EscapeHTML(url))
		}
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// Truncate обрезает строку до max рун. Используется для снимков ответов.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
