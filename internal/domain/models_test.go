package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMediaKindValid(t *testing.T) {
	assert.True(t, MediaPhoto.Valid())
	assert.True(t, MediaDocument.Valid())
	assert.False(t, MediaNone.Valid())
	assert.False(t, MediaKind("archive").Valid())
}

func TestCanonicalMessage_GroupKey(t *testing.T) {
	t.Run("альбом сворачивается по grouped_id", func(t *testing.T) {
		m := &CanonicalMessage{ID: 10, GroupID: 777}
		assert.Equal(t, int64(777), m.GroupKey())
	})

	t.Run("одиночное сообщение само себе группа", func(t *testing.T) {
		m := &CanonicalMessage{ID: 10}
		assert.Equal(t, int64(10), m.GroupKey())
	})
}

func TestCanonicalMessage_IsEmpty(t *testing.T) {
	assert.True(t, (&CanonicalMessage{ID: 1, Sender: "a"}).IsEmpty())
	assert.False(t, (&CanonicalMessage{Text: "hi"}).IsEmpty())
	assert.False(t, (&CanonicalMessage{Media: []MediaItem{{Path: "media/photo/p.jpg", Kind: MediaPhoto}}}).IsEmpty())
	assert.False(t, (&CanonicalMessage{ActionText: "A message was pinned"}).IsEmpty())
	assert.False(t, (&CanonicalMessage{Placeholder: "[PHOTO]"}).IsEmpty())
}

func TestCanonicalMessage_NaturalKey(t *testing.T) {
	date := time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)
	a := &CanonicalMessage{Date: date, Sender: "Alice", Text: "hello"}
	b := &CanonicalMessage{Date: date, Sender: "Alice", Text: "hello"}
	c := &CanonicalMessage{Date: date, Sender: "Bob", Text: "hello"}

	// Одинаковое содержимое дает одинаковый ключ независимо от ID.
	a.ID, b.ID = 1, 99
	assert.Equal(t, a.NaturalKey(), b.NaturalKey())
	assert.NotEqual(t, a.NaturalKey(), c.NaturalKey())
}
