// Package export реализует конвейер загрузки: потоковый обход сообщений
// источника, нормализацию в канонические записи с пакетной записью в
// промежуточное хранилище и последующую агрегацию для рендеринга.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"telegram-chat-export/internal/domain"
	"telegram-chat-export/internal/media"
	"telegram-chat-export/internal/pkg/config"
	"telegram-chat-export/internal/pkg/fsutil"
	"telegram-chat-export/internal/pkg/textfmt"
	"telegram-chat-export/internal/ports"
	"telegram-chat-export/internal/render"
	"telegram-chat-export/internal/staging"
)

// Options задает параметры одного прогона экспорта.
type Options struct {
	// DownloadMedia включает скачивание вложений; иначе вместо них
	// записываются заглушки.
	DownloadMedia bool
	// MaxFileSize — отсечение по заявленному размеру, в байтах. 0 — без
	// ограничения.
	MaxFileSize int64
}

// Result описывает итог экспорта.
type Result struct {
	ExportDir  string
	Messages   int
	MediaFiles int
}

// Option — функциональная опция для настройки конвейера.
type Option func(*Pipeline)

// WithLogger устанавливает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithRenderer подменяет рендерер артефакта.
func WithRenderer(r ports.Renderer) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.renderer = r
		}
	}
}

// WithClock подменяет источник времени. Используется в тестах.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithSleep подменяет функцию ожидания. Используется в тестах.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(p *Pipeline) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithBatchSize меняет размер пакета записи в хранилище.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithProgress устанавливает колбэк прогресса (обработано, всего).
// Только для наблюдаемости, на поток управления не влияет.
func WithProgress(fn func(done, total int)) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// Pipeline — конвейер загрузки одного диалога. Строго последовательный:
// в каждый момент обрабатывается ровно одно сообщение, единственная
// задержка между ними — настроенная пауза источника.
type Pipeline struct {
	source    ports.MessageSource
	renderer  ports.Renderer
	cfg       config.Export
	batchSize int
	clock     func() time.Time
	sleep     func(context.Context, time.Duration) error
	progress  func(done, total int)
	log       *slog.Logger
}

// NewPipeline создает конвейер поверх источника сообщений.
func NewPipeline(source ports.MessageSource, cfg config.Export, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    source,
		renderer:  render.NewHTMLRenderer(),
		cfg:       cfg,
		batchSize: config.DefaultBatchSize,
		clock:     time.Now,
		sleep:     sleepCtx,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Export выполняет полный экспорт диалога target: загрузку в промежуточное
// хранилище, агрегацию и рендеринг документа. Любая невосстановимая ошибка
// прерывает весь экспорт; промежуточное хранилище удаляется в любом случае,
// а частично созданный каталог экспорта остается на диске для изучения.
func (p *Pipeline) Export(ctx context.Context, target string, opts Options) (*Result, error) {
	chat, err := p.source.Resolve(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("resolve chat %q: %w", target, err)
	}

	safeName := fsutil.SanitizeFilename(chat.Title)
	if safeName == "" {
		safeName = "chat"
	}
	timestamp := p.clock().Format("20060102_150405")
	exportDir := filepath.Join(p.cfg.OutputDir, fmt.Sprintf("%s_%s", safeName, timestamp))
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	store, err := staging.Open(filepath.Join(exportDir, fmt.Sprintf("temp_data_%s.db", timestamp)))
	if err != nil {
		return nil, fmt.Errorf("open staging store: %w", err)
	}
	// Единственное гарантированное действие очистки — удаление временного
	// хранилища, не результатов экспорта.
	defer func() {
		if destroyErr := store.Destroy(); destroyErr != nil {
			p.log.Warn("Could not delete temporary database, delete it manually",
				"path", store.Path(), "error", destroyErr)
		}
	}()

	var engine *media.Engine
	if opts.DownloadMedia {
		mediaDir := filepath.Join(exportDir, "media")
		if err := os.MkdirAll(mediaDir, 0o755); err != nil {
			return nil, fmt.Errorf("create media directory: %w", err)
		}
		engine = media.NewEngine(p.source, mediaDir, media.Config{
			MaxRetries:  p.cfg.MaxRetries,
			RetryDelay:  p.cfg.RetryBaseDelay(),
			MediaDelay:  p.cfg.MediaDelay(),
			MaxFileSize: opts.MaxFileSize,
		}, media.WithLogger(p.log), media.WithSleep(p.sleep))
	}

	p.log.InfoContext(ctx, "Export started", "chat", chat.Title, "folder", exportDir,
		"download_media", opts.DownloadMedia)

	count, err := p.ingest(ctx, chat, store, engine)
	if err != nil {
		return nil, err
	}

	msgs, err := Aggregate(store)
	if err != nil {
		return nil, fmt.Errorf("aggregate staged messages: %w", err)
	}

	docPath := filepath.Join(exportDir, render.DocumentName)
	f, err := os.Create(docPath)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	if err := p.renderer.Render(f, chat.Title, msgs); err != nil {
		f.Close()
		return nil, fmt.Errorf("render document: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close document: %w", err)
	}

	result := &Result{ExportDir: exportDir, Messages: count, MediaFiles: countFiles(filepath.Join(exportDir, "media"))}
	p.log.InfoContext(ctx, "Export completed", "messages", result.Messages,
		"media_files", result.MediaFiles, "document", docPath)
	return result, nil
}

// ingest перебирает сообщения источника ровно один раз в его стабильном
// порядке и пишет канонические записи в хранилище пакетами.
func (p *Pipeline) ingest(ctx context.Context, chat *domain.ChatInfo, store *staging.Store, engine *media.Engine) (int, error) {
	total, err := p.source.MessageCount(ctx, chat)
	if err != nil {
		return 0, fmt.Errorf("get message count: %w", err)
	}
	p.log.InfoContext(ctx, "Loading messages into staging store", "total", total)

	count := 0
	batch := make([]*domain.CanonicalMessage, 0, p.batchSize)

	err = p.source.ForEachMessage(ctx, chat, func(ctx context.Context, src *domain.SourceMessage) error {
		rec, err := p.buildRecord(ctx, src, engine)
		if err != nil {
			return err
		}

		batch = append(batch, rec)
		if len(batch) >= p.batchSize {
			if err := store.InsertBatch(batch); err != nil {
				return fmt.Errorf("flush batch: %w", err)
			}
			batch = batch[:0]
		}

		count++
		if p.progress != nil {
			p.progress(count, total)
		}

		// Пауза после каждого сообщения независимо от исхода — основная
		// защита от серверных ограничений частоты.
		return p.sleep(ctx, p.cfg.MessageDelay())
	})
	if err != nil {
		return 0, fmt.Errorf("iterate messages: %w", err)
	}

	if err := store.InsertBatch(batch); err != nil {
		return 0, fmt.Errorf("flush final batch: %w", err)
	}

	p.log.InfoContext(ctx, "All messages staged", "count", count)
	return count, nil
}

// buildRecord нормализует одно сообщение источника в каноническую запись.
// Ошибка возвращается только при отмене контекста; все остальные сбои
// восстанавливаются локально (заглушка, отсутствующее поле).
func (p *Pipeline) buildRecord(ctx context.Context, src *domain.SourceMessage, engine *media.Engine) (*domain.CanonicalMessage, error) {
	rec := &domain.CanonicalMessage{
		ID:      src.ID,
		GroupID: src.GroupID,
		Date:    src.Date.UTC(),
		Sender:  p.senderName(ctx, src),
	}

	if src.Action != domain.ActionNone {
		// Системное событие рендерится только как уведомление, остальные
		// поля содержимого не заполняются.
		rec.ActionText = actionText(src, rec.Sender)
		return rec, nil
	}

	rec.Text = textfmt.Format(src.Text)

	if src.Media != nil {
		if engine != nil {
			item, err := engine.Fetch(ctx, src, func(percent int) {
				p.log.DebugContext(ctx, "Downloading media", "message_id", src.ID, "percent", percent)
			})
			if err != nil {
				return nil, err
			}
			if item != nil {
				rec.Media = []domain.MediaItem{*item}
			} else {
				rec.Placeholder = media.Placeholder(src.Media)
			}
		} else {
			rec.Placeholder = media.Placeholder(src.Media)
		}
	}

	if src.ReplyToID != 0 {
		// Лучшее из возможного: при сбое поле просто остается пустым.
		snap, err := p.source.ReplySnapshot(ctx, src)
		if err != nil {
			p.log.DebugContext(ctx, "Reply snapshot unavailable", "message_id", src.ID, "error", err)
		} else if snap != nil {
			rec.ReplyTo = snap
		}
	}

	if src.Forwarded {
		origin, err := p.source.ForwardOrigin(ctx, src)
		if err != nil || origin == "" {
			p.log.DebugContext(ctx, "Forward origin unavailable", "message_id", src.ID, "error", err)
			origin = "Unknown"
		}
		rec.ForwardedFrom = &domain.ForwardSnapshot{Sender: origin}
	}

	return rec, nil
}

// senderName разрешает имя отправителя с мягким откатом к "Unknown".
func (p *Pipeline) senderName(ctx context.Context, src *domain.SourceMessage) string {
	name, err := p.source.SenderName(ctx, src)
	if err != nil || name == "" {
		p.log.DebugContext(ctx, "Sender lookup failed", "message_id", src.ID, "error", err)
		return "Unknown"
	}
	return name
}

// actionText возвращает человекочитаемое описание системного события.
func actionText(src *domain.SourceMessage, actor string) string {
	switch src.Action {
	case domain.ActionChannelCreate:
		return fmt.Sprintf("Channel %q was created", src.ActionTitle)
	case domain.ActionChatAddUser:
		return fmt.Sprintf("%q added a new member", actor)
	case domain.ActionChatDeleteUser:
		return fmt.Sprintf("%q removed a member", actor)
	case domain.ActionChatJoinedByLink:
		return fmt.Sprintf("%q joined via invite link", actor)
	case domain.ActionPinMessage:
		return "A message was pinned"
	default:
		return "System Message"
	}
}

func countFiles(dir string) int {
	count := 0
	_ = filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			count++
		}
		return nil
	})
	return count
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
