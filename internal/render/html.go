// Package render реализует рендерер артефакта: чистую проекцию
// упорядоченного списка канонических записей в статический HTML-документ.
// Здесь нет повторов, задержек и логики упорядочивания — только разметка.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"telegram-chat-export/internal/domain"
	"telegram-chat-export/internal/pkg/textfmt"
)

// DocumentName — имя отрендеренного документа внутри каталога артефакта.
const DocumentName = "messages.html"

// Формат дат разделителей и времени сообщений. Вместе они образуют
// проводной формат артефакта: парсер слияния восстанавливает из них
// исходную метку времени.
const (
	DateFormat = "02 January 2006"
	TimeFormat = "15:04"
)

// HTMLRenderer пишет документ messages.html.
type HTMLRenderer struct {
	clock func() time.Time
}

// NewHTMLRenderer создает рендерер.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{clock: time.Now}
}

// WithClock подменяет источник времени. Используется в тестах.
func (r *HTMLRenderer) WithClock(clock func() time.Time) *HTMLRenderer {
	r.clock = clock
	return r
}

// Render записывает документ для msgs в w. Список должен быть уже
// упорядочен по возрастанию даты.
func (r *HTMLRenderer) Render(w io.Writer, chatName string, msgs []*domain.CanonicalMessage) error {
	var body strings.Builder
	var currentDay string
	for _, m := range msgs {
		if m == nil {
			continue
		}
		day := m.Date.Format(DateFormat)
		if day != currentDay {
			currentDay = day
			fmt.Fprintf(&body, "<div class=\"date-separator\">%s</div>\n", day)
		}
		writeMessage(&body, m)
	}

	_, err := fmt.Fprintf(w, documentTemplate,
		textfmt.EscapeHTML(chatName),
		textfmt.EscapeHTML(chatName),
		r.clock().Format("02.01.2006 15:04"),
		len(msgs),
		body.String(),
	)
	return err
}

func writeMessage(b *strings.Builder, m *domain.CanonicalMessage) {
	if m.ActionText != "" {
		fmt.Fprintf(b, "<div class=\"system-message\">%s</div>\n", textfmt.EscapeHTML(m.ActionText))
		return
	}

	b.WriteString("<div class=\"message\">\n")
	b.WriteString("    <div class=\"message-header\">\n")
	fmt.Fprintf(b, "        <span class=\"sender\">%s</span>\n", textfmt.EscapeHTML(m.Sender))
	fmt.Fprintf(b, "        <span class=\"time\">%s</span>\n", m.Date.Format(TimeFormat))
	b.WriteString("    </div>\n")

	if m.ForwardedFrom != nil {
		fmt.Fprintf(b, "    <div class=\"forwarded\">Forwarded from: %s</div>\n", textfmt.EscapeHTML(m.ForwardedFrom.Sender))
	}
	if m.ReplyTo != nil {
		b.WriteString("    <div class=\"reply\">\n")
		fmt.Fprintf(b, "        <div class=\"reply-from\">%s</div>\n", textfmt.EscapeHTML(m.ReplyTo.Sender))
		fmt.Fprintf(b, "        <div class=\"reply-text\">%s</div>\n", textfmt.Format(textfmt.Truncate(m.ReplyTo.Text, 200)))
		b.WriteString("    </div>\n")
	}
	if m.Text != "" {
		// Текст уже отформатирован, экранировать нельзя.
		fmt.Fprintf(b, "    <div class=\"text\">%s</div>\n", m.Text)
	}

	if len(m.Media) > 0 {
		b.WriteString("    <div class=\"media-group\">\n")
		for _, item := range m.Media {
			writeMediaItem(b, item)
		}
		b.WriteString("    </div>\n")
	} else if m.Placeholder != "" {
		fmt.Fprintf(b, "    <div class=\"media-placeholder\">%s</div>\n", textfmt.EscapeHTML(m.Placeholder))
	}

	b.WriteString("</div>\n")
}

func writeMediaItem(b *strings.Builder, item domain.MediaItem) {
	path := textfmt.EscapeHTML(item.Path)
	switch item.Kind {
	case domain.MediaPhoto:
		fmt.Fprintf(b, "        <div class=\"media\"><img class=\"media-item\" src=\"%s\" alt=\"Photo\"></div>\n", path)
	case domain.MediaVideo:
		fmt.Fprintf(b, "        <div class=\"media\"><video class=\"media-item\" controls playsinline preload=\"metadata\" src=\"%s\"></video></div>\n", path)
	case domain.MediaAudio:
		fmt.Fprintf(b, "        <div class=\"media\"><audio controls src=\"%s\"></audio></div>\n", path)
	default:
		filename := item.Path
		if i := strings.LastIndex(filename, "/"); i >= 0 {
			filename = filename[i+1:]
		}
		b.WriteString("        <div class=\"document document-standalone\">\n")
		b.WriteString("            <div class=\"document-icon\">\U0001F4C4</div>\n")
		fmt.Fprintf(b, "            <a href=\"%s\" class=\"document-name\" download>%s</a>\n", path, textfmt.EscapeHTML(filename))
		b.WriteString("        </div>\n")
	}
}
