package staging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-chat-export/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "temp_data_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Destroy() })
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)

	date := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
	msgs := []*domain.CanonicalMessage{
		{
			ID:     1,
			Date:   date,
			Sender: "Alice [@alice]",
			Text:   "hello",
			ReplyTo: &domain.ReplySnapshot{
				Text:   "original",
				Sender: "Bob",
			},
		},
		{
			ID:            2,
			GroupID:       100,
			Date:          date.Add(time.Minute),
			Sender:        "Bob",
			Media:         []domain.MediaItem{{Path: "media/photo/photo_2.jpg", Kind: domain.MediaPhoto}},
			ForwardedFrom: &domain.ForwardSnapshot{Sender: "Some Channel"},
		},
	}
	require.NoError(t, store.InsertBatch(msgs))

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var got []*domain.CanonicalMessage
	require.NoError(t, store.ForEachByDate(func(m *domain.CanonicalMessage) error {
		got = append(got, m)
		return nil
	}))
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "hello", got[0].Text)
	assert.Equal(t, date, got[0].Date)
	require.NotNil(t, got[0].ReplyTo)
	assert.Equal(t, "original", got[0].ReplyTo.Text)
	assert.Equal(t, "Bob", got[0].ReplyTo.Sender)
	assert.Nil(t, got[0].ForwardedFrom)

	assert.Equal(t, int64(100), got[1].GroupID)
	require.Len(t, got[1].Media, 1)
	assert.Equal(t, domain.MediaPhoto, got[1].Media[0].Kind)
	require.NotNil(t, got[1].ForwardedFrom)
	assert.Equal(t, "Some Channel", got[1].ForwardedFrom.Sender)
}

func TestStore_OrderByDateThenID(t *testing.T) {
	store := openTestStore(t)

	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	// Записываем в обратном порядке: обход все равно должен идти по дате.
	require.NoError(t, store.InsertBatch([]*domain.CanonicalMessage{
		{ID: 30, Date: date.Add(time.Hour), Sender: "a"},
		{ID: 20, Date: date, Sender: "a"},
		{ID: 10, Date: date, Sender: "a"},
	}))

	var order []int64
	require.NoError(t, store.ForEachByDate(func(m *domain.CanonicalMessage) error {
		order = append(order, m.ID)
		return nil
	}))
	assert.Equal(t, []int64{10, 20, 30}, order)
}

func TestStore_InsertReplace(t *testing.T) {
	store := openTestStore(t)

	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertBatch([]*domain.CanonicalMessage{{ID: 1, Date: date, Sender: "a", Text: "first"}}))
	require.NoError(t, store.InsertBatch([]*domain.CanonicalMessage{{ID: 1, Date: date, Sender: "a", Text: "second"}}))

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.ForEachByDate(func(m *domain.CanonicalMessage) error {
		assert.Equal(t, "second", m.Text)
		return nil
	}))
}

func TestStore_EmptyBatch(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.InsertBatch(nil))

	count, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_Destroy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp_data_destroy.db")
	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.InsertBatch([]*domain.CanonicalMessage{
		{ID: 1, Date: time.Now(), Sender: "a", Text: "x"},
	}))

	require.NoError(t, store.Destroy())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// Повторный вызов безопасен.
	require.NoError(t, store.Destroy())
}
