package domain

import "time"

// MediaKind — закрытый набор видов медиа, по которым раскладываются файлы
// внутри каталога media/ артефакта.
type MediaKind string

const (
	MediaNone     MediaKind = ""
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
)

// Valid сообщает, относится ли kind к одному из четырех каталогов медиа.
func (k MediaKind) Valid() bool {
	switch k {
	case MediaPhoto, MediaVideo, MediaAudio, MediaDocument:
		return true
	}
	return false
}

// MediaItem — один сохраненный на диск файл, путь относителен корню артефакта
// (например "media/photo/photo_5.jpg").
type MediaItem struct {
	Path string
	Kind MediaKind
}

// ReplySnapshot — снимок сообщения, на которое был дан ответ, сделанный в
// момент экспорта. Исходное сообщение может быть позже удалено, поэтому
// храним копию текста и отправителя, а не ссылку.
type ReplySnapshot struct {
	Text   string `json:"text"`
	Sender string `json:"from"`
}

// ForwardSnapshot — снимок источника пересланного сообщения.
type ForwardSnapshot struct {
	Sender string `json:"from"`
}

// CanonicalMessage представляет одну логическую единицу экспорта —
// нормализованное, независимое от источника сообщение.
type CanonicalMessage struct {
	// ID — первичный идентификатор сообщения в источнике.
	ID int64
	// GroupID — идентификатор альбома; 0, если сообщение не входит в альбом.
	// Записи с одинаковым ненулевым GroupID сворачиваются в одну перед
	// рендерингом.
	GroupID int64
	// Date — абсолютная точка во времени (UTC), глобальный ключ сортировки.
	Date time.Time
	// Sender — отображаемое имя отправителя. Никогда не пустое: при сбое
	// разрешения подставляется "Unknown" или "Deleted Account".
	Sender string
	// Text — отформатированное тело сообщения (разметка уже применена).
	Text string
	// ReplyTo заполняется по возможности; при сбое поиска остается nil.
	ReplyTo *ReplySnapshot
	// ForwardedFrom заполняется по возможности; при сбое остается nil.
	ForwardedFrom *ForwardSnapshot
	// Media — упорядоченный список сохраненных файлов. Пуст, если медиа не
	// было или не было скачано.
	Media []MediaItem
	// Placeholder показывается вместо медиа, когда файл существовал в
	// источнике, но не был сохранен (выключено, слишком большой, сбой).
	Placeholder string
	// ActionText — человекочитаемое описание системного события. Взаимно
	// исключается с остальными полями содержимого: такая запись рендерится
	// только как системное уведомление.
	ActionText string
}

// GroupKey возвращает ключ сворачивания альбомов: GroupID, либо ID, когда
// сообщение не входит в альбом.
func (m *CanonicalMessage) GroupKey() int64 {
	if m.GroupID != 0 {
		return m.GroupID
	}
	return m.ID
}

// IsEmpty сообщает, что запись не несет никакого содержимого и должна быть
// отброшена перед рендерингом.
func (m *CanonicalMessage) IsEmpty() bool {
	return m.Text == "" && len(m.Media) == 0 && m.ActionText == "" && m.Placeholder == ""
}

// NaturalKey возвращает производный ключ идентичности сообщения,
// используемый для дедупликации при слиянии двух артефактов.
func (m *CanonicalMessage) NaturalKey() string {
	return m.Date.Format(time.RFC3339) + "-" + m.Sender + "-" + m.Text
}

// ActionKind — распознаваемые виды системных событий источника.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionChannelCreate
	ActionChatAddUser
	ActionChatDeleteUser
	ActionChatJoinedByLink
	ActionPinMessage
	ActionOther
)

// MediaRef описывает вложение источника до скачивания. Handle — непрозрачный
// указатель на данные для байтовой загрузки, его понимает только адаптер
// источника.
type MediaRef struct {
	Handle any

	// Признаки для классификации и подбора заглушки.
	Photo     bool
	Document  bool
	WebPage   bool
	WebPhoto  bool // веб-превью содержит картинку
	Voice     bool
	VideoNote bool
	Sticker   bool

	// Поля документа.
	MimeType string
	FileName string

	// DeclaredSize — заявленный размер в байтах (размер документа либо
	// крупнейшего доступного размера фото). 0 — размер неизвестен.
	DeclaredSize int64
}

// SourceMessage — одно сообщение, как его отдает итератор источника.
// Ссылки на отправителя, ответ и пересылку разрешаются отдельными
// вызовами источника.
type SourceMessage struct {
	ID        int64
	GroupID   int64
	Date      time.Time
	Text      string
	Media     *MediaRef
	ReplyToID int64
	Forwarded bool
	Action    ActionKind
	// ActionTitle — название канала для ActionChannelCreate.
	ActionTitle string

	// ForwardName — имя источника пересылки, если оно пришло прямо в
	// заголовке; иначе источник разрешается по ForwardPeer.
	ForwardName string
	// ForwardPeer — непрозрачная ссылка источника на автора пересылки.
	ForwardPeer any

	// SenderPeer — непрозрачная ссылка источника на отправителя.
	SenderPeer any
	// ChatPeer — непрозрачная ссылка на диалог, которому принадлежит
	// сообщение. Нужна для дозагрузки связанных сообщений.
	ChatPeer any
}

// ChatInfo — разрешенный диалог источника.
type ChatInfo struct {
	Title string
	// Peer — непрозрачная ссылка источника на диалог.
	Peer any
}
