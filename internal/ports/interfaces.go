package ports

import (
	"context"
	"io"

	"telegram-chat-export/internal/domain"
)

// MessageSource определяет интерфейс внешнего источника сообщений.
// Реализация инкапсулирует транспорт, аутентификацию и шифрование.
type MessageSource interface {
	// Resolve находит диалог по @username или числовому идентификатору.
	Resolve(ctx context.Context, target string) (*domain.ChatInfo, error)
	// MessageCount возвращает общее число сообщений в диалоге.
	MessageCount(ctx context.Context, chat *domain.ChatInfo) (int, error)
	// ForEachMessage перебирает сообщения диалога от новых к старым ровно
	// один раз в стабильном порядке источника. Ошибка fn прерывает обход.
	ForEachMessage(ctx context.Context, chat *domain.ChatInfo, fn func(context.Context, *domain.SourceMessage) error) error
	// SenderName разрешает отображаемое имя отправителя сообщения.
	SenderName(ctx context.Context, msg *domain.SourceMessage) (string, error)
	// ReplySnapshot загружает короткий снимок сообщения, на которое дан
	// ответ. Возвращает nil без ошибки, если сообщение недоступно.
	ReplySnapshot(ctx context.Context, msg *domain.SourceMessage) (*domain.ReplySnapshot, error)
	// ForwardOrigin разрешает отображаемое имя источника пересылки.
	ForwardOrigin(ctx context.Context, msg *domain.SourceMessage) (string, error)
	// Download скачивает байты вложения в файл path, сообщая прогресс в
	// процентах через progress (может быть nil).
	Download(ctx context.Context, ref *domain.MediaRef, path string, progress func(percent int)) error
}

// Renderer определяет интерфейс внешнего рендерера: чистая проекция
// упорядоченного списка канонических записей в статический документ.
type Renderer interface {
	Render(w io.Writer, chatName string, msgs []*domain.CanonicalMessage) error
}

// ArtifactParser восстанавливает канонические записи из отрендеренного
// документа. Формат документа рассматривается как версионируемая схема:
// замена реализации (например, на структурированный манифест) не должна
// затрагивать алгоритм слияния.
type ArtifactParser interface {
	// Parse возвращает записи документа, индексированные натуральным ключом.
	Parse(documentPath string) (map[string]*domain.CanonicalMessage, error)
}
