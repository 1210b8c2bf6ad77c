// Package media реализует движок получения медиафайлов: классификацию
// вложения, скачивание с повторами и обратным отсчетом, ограничение размера
// и итоговую раскладку файла по каталогам media/<вид>/.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"telegram-chat-export/internal/domain"
	"telegram-chat-export/internal/pkg/fsutil"
	"telegram-chat-export/internal/ports"
)

// Fetcher — байтовая загрузка источника. Единственная зависимость движка.
type Fetcher interface {
	Download(ctx context.Context, ref *domain.MediaRef, path string, progress func(percent int)) error
}

// Config хранит настройки движка.
type Config struct {
	// MaxRetries — максимальное число попыток скачивания.
	MaxRetries int
	// RetryDelay — базовая задержка повтора; фактическое ожидание равно
	// RetryDelay × номер попытки, либо подсказке сервера, если она больше.
	RetryDelay time.Duration
	// MediaDelay — пауза после каждой завершающей попытки (успешной или
	// нет), чтобы не превышать пороги источника.
	MediaDelay time.Duration
	// MaxFileSize — порог отсечения по заявленному размеру, в байтах.
	// 0 — без ограничения.
	MaxFileSize int64
}

// Option — функциональная опция для настройки движка.
type Option func(*Engine)

// WithLogger устанавливает логгер для движка.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithSleep подменяет функцию ожидания. Используется в тестах.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// Engine скачивает вложение одного сообщения в каталог медиа артефакта.
// Движок никогда не возвращает ошибку скачивания наружу: после исчерпания
// попыток он сообщает «медиа не сохранено» (nil, nil), и вызывающая сторона
// подставляет заглушку.
type Engine struct {
	fetcher  Fetcher
	mediaDir string
	cfg      Config
	sleep    func(context.Context, time.Duration) error
	log      *slog.Logger
}

// NewEngine создает движок, сохраняющий файлы под mediaDir.
func NewEngine(fetcher Fetcher, mediaDir string, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		fetcher:  fetcher,
		mediaDir: mediaDir,
		cfg:      cfg,
		sleep:    sleepCtx,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fetch скачивает вложение msg и возвращает описание сохраненного файла.
// Возврат (nil, nil) означает «медиа не сохранено»: вложения нет, оно
// слишком большое или попытки исчерпаны. Ошибка возвращается только при
// отмене контекста.
func (e *Engine) Fetch(ctx context.Context, msg *domain.SourceMessage, progress func(percent int)) (*domain.MediaItem, error) {
	ref := msg.Media
	if ref == nil {
		return nil, nil
	}

	// Отсечение по размеру до любых сетевых попыток.
	if e.cfg.MaxFileSize > 0 && ref.DeclaredSize > e.cfg.MaxFileSize {
		e.log.InfoContext(ctx, "Media exceeds size limit, skipping",
			"message_id", msg.ID, "declared_size", ref.DeclaredSize, "limit", e.cfg.MaxFileSize)
		return nil, nil
	}

	kind, ext, suggested := Classify(ref)

	kindDir := filepath.Join(e.mediaDir, string(kind))
	if err := os.MkdirAll(kindDir, 0o755); err != nil {
		e.log.WarnContext(ctx, "Failed to create media directory", "dir", kindDir, "error", err)
		return nil, nil
	}

	filename := suggested
	if filename == "" {
		filename = fmt.Sprintf("%s_%d.%s", kind, msg.ID, ext)
	} else if filepath.Ext(filename) == "" {
		filename = filename + "." + ext
	}
	path := fsutil.UniquePath(kindDir, filename)

	ok, err := e.download(ctx, msg.ID, ref, path, progress)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.pause(ctx)
	}

	// Повторная классификация по фактическому расширению сохраненного
	// файла: эвристика до скачивания может ошибаться для слабо
	// типизированных вложений, поэтому второй проход авторитетен.
	if actual := KindForExt(strings.TrimPrefix(filepath.Ext(path), ".")); actual != domain.MediaNone && actual != kind {
		moved, mvErr := e.relocate(path, actual)
		if mvErr != nil {
			e.log.WarnContext(ctx, "Failed to relocate media after re-classification",
				"message_id", msg.ID, "from", kind, "to", actual, "error", mvErr)
		} else {
			kind, path = actual, moved
		}
	}

	if err := e.pause(ctx); err != nil {
		return nil, err
	}

	item := &domain.MediaItem{
		Path: "media/" + string(kind) + "/" + filepath.Base(path),
		Kind: kind,
	}
	e.log.DebugContext(ctx, "Media saved", "message_id", msg.ID, "path", item.Path, "kind", kind)
	return item, nil
}

// download выполняет попытки скачивания. Возвращает false, если медиа не
// сохранено; ошибку — только при отмене контекста.
func (e *Engine) download(ctx context.Context, msgID int64, ref *domain.MediaRef, path string, progress func(percent int)) (bool, error) {
	report := monotonic(progress)

	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		err := e.fetcher.Download(ctx, ref, path, report)
		if err == nil {
			return true, nil
		}
		_ = os.Remove(path)

		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		if !ports.IsTransient(err) {
			e.log.WarnContext(ctx, "Media download failed permanently",
				"message_id", msgID, "attempt", attempt, "error", err)
			return false, nil
		}

		if attempt == e.cfg.MaxRetries {
			break
		}

		wait := e.cfg.RetryDelay * time.Duration(attempt)
		var fw *ports.FloodWaitError
		if errors.As(err, &fw) && fw.Wait > wait {
			// Подсказка сервера имеет приоритет, если она больше.
			wait = fw.Wait
		}
		e.log.WarnContext(ctx, "Transient media error, retrying",
			"message_id", msgID, "attempt", attempt, "wait", wait, "error", err)
		if err := e.sleep(ctx, wait); err != nil {
			return false, err
		}
	}

	e.log.WarnContext(ctx, "Media download attempts exhausted, skipping",
		"message_id", msgID, "attempts", e.cfg.MaxRetries)
	return false, nil
}

// pause выдерживает паузу между скачиваниями. Часть контракта движка, а не
// вызывающей стороны.
func (e *Engine) pause(ctx context.Context) error {
	return e.sleep(ctx, e.cfg.MediaDelay)
}

// relocate переносит файл в каталог переопределенного вида, применяя то же
// правило разрешения коллизий имен.
func (e *Engine) relocate(path string, kind domain.MediaKind) (string, error) {
	dir := filepath.Join(e.mediaDir, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dest := fsutil.UniquePath(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// monotonic оборачивает колбэк прогресса, гарантируя неубывающий процент.
// Колбэк служит только для наблюдаемости и не влияет на поток управления.
func monotonic(progress func(percent int)) func(percent int) {
	last := -1
	return func(percent int) {
		if progress == nil {
			return
		}
		if percent > last {
			last = percent
			progress(percent)
		}
	}
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
