package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-chat-export/internal/domain"
)

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
}

func renderToString(t *testing.T, chatName string, msgs []*domain.CanonicalMessage) string {
	t.Helper()
	var sb strings.Builder
	r := NewHTMLRenderer().WithClock(fixedClock)
	require.NoError(t, r.Render(&sb, chatName, msgs))
	return sb.String()
}

func TestRender_EmptyDocument(t *testing.T) {
	out := renderToString(t, "Test Chat", nil)

	assert.Contains(t, out, "<title>Test Chat</title>")
	assert.Contains(t, out, "01.06.2024 10:00")
	assert.Contains(t, out, `<div class="messages">`)
	assert.NotContains(t, out, "date-separator")
}

func TestRender_DateSeparators(t *testing.T) {
	day1 := time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 18, 9, 0, 0, 0, time.UTC)
	msgs := []*domain.CanonicalMessage{
		{ID: 1, Date: day1, Sender: "A", Text: "x"},
		{ID: 2, Date: day1.Add(time.Hour), Sender: "A", Text: "y"},
		{ID: 3, Date: day2, Sender: "A", Text: "z"},
	}

	out := renderToString(t, "c", msgs)

	// Разделитель на каждый день, а не на каждое сообщение.
	assert.Equal(t, 1, strings.Count(out, `<div class="date-separator">17 May 2024</div>`))
	assert.Equal(t, 1, strings.Count(out, `<div class="date-separator">18 May 2024</div>`))
}

func TestRender_MessageBlock(t *testing.T) {
	date := time.Date(2024, 5, 17, 14, 30, 0, 0, time.UTC)
	msgs := []*domain.CanonicalMessage{{
		ID:            1,
		Date:          date,
		Sender:        "Alice <3 [@alice]",
		Text:          "already <strong>formatted</strong>",
		ReplyTo:       &domain.ReplySnapshot{Text: "question & answer", Sender: "Bob"},
		ForwardedFrom: &domain.ForwardSnapshot{Sender: "Some Channel"},
	}}

	out := renderToString(t, "c", msgs)

	assert.Contains(t, out, `<span class="sender">Alice &lt;3 [@alice]</span>`)
	assert.Contains(t, out, `<span class="time">14:30</span>`)
	assert.Contains(t, out, `<div class="forwarded">Forwarded from: Some Channel</div>`)
	assert.Contains(t, out, `<div class="reply-from">Bob</div>`)
	assert.Contains(t, out, `<div class="reply-text">question &amp; answer</div>`)
	// Тело сообщения вставляется как есть, разметка не экранируется.
	assert.Contains(t, out, `<div class="text">already <strong>formatted</strong></div>`)
}

func TestRender_SystemMessage(t *testing.T) {
	msgs := []*domain.CanonicalMessage{{
		ID:         1,
		Date:       time.Date(2024, 5, 17, 14, 30, 0, 0, time.UTC),
		Sender:     "Alice",
		ActionText: "A message was pinned",
	}}

	out := renderToString(t, "c", msgs)

	assert.Contains(t, out, `<div class="system-message">A message was pinned</div>`)
	// Системное уведомление не рендерится как обычное сообщение.
	assert.NotContains(t, out, `<span class="sender">`)
}

func TestRender_MediaKinds(t *testing.T) {
	date := time.Date(2024, 5, 17, 14, 30, 0, 0, time.UTC)
	msgs := []*domain.CanonicalMessage{{
		ID:     1,
		Date:   date,
		Sender: "A",
		Media: []domain.MediaItem{
			{Path: "media/photo/photo_1.jpg", Kind: domain.MediaPhoto},
			{Path: "media/video/clip.mp4", Kind: domain.MediaVideo},
			{Path: "media/audio/voice.ogg", Kind: domain.MediaAudio},
			{Path: "media/document/report.pdf", Kind: domain.MediaDocument},
		},
	}}

	out := renderToString(t, "c", msgs)

	assert.Contains(t, out, `<img class="media-item" src="media/photo/photo_1.jpg"`)
	assert.Contains(t, out, `<video class="media-item"`)
	assert.Contains(t, out, `src="media/video/clip.mp4"`)
	assert.Contains(t, out, `<audio controls src="media/audio/voice.ogg">`)
	assert.Contains(t, out, `<a href="media/document/report.pdf" class="document-name" download>report.pdf</a>`)
	// Все вложения альбома внутри одной медиагруппы.
	assert.Equal(t, 1, strings.Count(out, `<div class="media-group">`))
}

func TestRender_Placeholder(t *testing.T) {
	msgs := []*domain.CanonicalMessage{{
		ID:          1,
		Date:        time.Date(2024, 5, 17, 14, 30, 0, 0, time.UTC),
		Sender:      "A",
		Placeholder: "[VIDEO MESSAGE]",
	}}

	out := renderToString(t, "c", msgs)
	assert.Contains(t, out, `<div class="media-placeholder">[VIDEO MESSAGE]</div>`)
}

func TestRender_ReplyTruncated(t *testing.T) {
	long := strings.Repeat("a", 300)
	msgs := []*domain.CanonicalMessage{{
		ID:      1,
		Date:    time.Date(2024, 5, 17, 14, 30, 0, 0, time.UTC),
		Sender:  "A",
		Text:    "reply body",
		ReplyTo: &domain.ReplySnapshot{Text: long, Sender: "B"},
	}}

	out := renderToString(t, "c", msgs)
	assert.Contains(t, out, strings.Repeat("a", 200))
	assert.NotContains(t, out, strings.Repeat("a", 201))
}
