package export

import (
	"telegram-chat-export/internal/domain"
	"telegram-chat-export/internal/staging"
)

// Aggregate читает хранилище в порядке возрастания даты и сворачивает
// записи одного альбома в одно каноническое сообщение: медиафайлы
// накапливаются в порядке альбома, последний непустой текст выигрывает.
// Записи без текста, медиа, заглушки и системного события отбрасываются.
func Aggregate(store *staging.Store) ([]*domain.CanonicalMessage, error) {
	var order []int64
	folded := make(map[int64]*domain.CanonicalMessage)

	err := store.ForEachByDate(func(m *domain.CanonicalMessage) error {
		key := m.GroupKey()
		existing, ok := folded[key]
		if !ok {
			order = append(order, key)
			folded[key] = m
			return nil
		}
		if m.Text != "" {
			existing.Text = m.Text
		}
		existing.Media = append(existing.Media, m.Media...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	msgs := make([]*domain.CanonicalMessage, 0, len(order))
	for _, key := range order {
		if m := folded[key]; !m.IsEmpty() {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}
