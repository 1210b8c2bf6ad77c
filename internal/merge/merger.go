package merge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"telegram-chat-export/internal/domain"
	"telegram-chat-export/internal/pkg/fsutil"
	"telegram-chat-export/internal/ports"
	"telegram-chat-export/internal/render"
)

// ErrNothingToMerge возвращается, когда в двух артефактах не нашлось ни
// одного разбираемого сообщения.
var ErrNothingToMerge = errors.New("no messages found to merge")

// Option — функциональная опция для настройки Merger.
type Option func(*Merger)

// WithLogger устанавливает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(m *Merger) {
		if l != nil {
			m.log = l
		}
	}
}

// WithParser подменяет парсер артефактов.
func WithParser(p ports.ArtifactParser) Option {
	return func(m *Merger) {
		if p != nil {
			m.parser = p
		}
	}
}

// WithRenderer подменяет рендерер.
func WithRenderer(r ports.Renderer) Option {
	return func(m *Merger) {
		if r != nil {
			m.renderer = r
		}
	}
}

// WithClock подменяет источник времени. Используется в тестах.
func WithClock(clock func() time.Time) Option {
	return func(m *Merger) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// Merger объединяет два каталога артефактов в один: дедуплицированный,
// упорядоченный по времени документ плюс объединенное дерево медиа.
type Merger struct {
	parser   ports.ArtifactParser
	renderer ports.Renderer
	clock    func() time.Time
	log      *slog.Logger
}

// NewMerger создает Merger с парсером и рендерером по умолчанию.
func NewMerger(opts ...Option) *Merger {
	m := &Merger{
		parser:   NewArtifactParser(),
		renderer: render.NewHTMLRenderer(),
		clock:    time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Result описывает итог слияния.
type Result struct {
	OutputDir string
	Messages  int
}

// Merge объединяет артефакты dir1 и dir2 в новый каталог под outRoot.
// До любой записи на диск проверяются оба входа и непустота объединения:
// при ошибке частичный каталог не остается.
func (m *Merger) Merge(dir1, dir2, outRoot string) (*Result, error) {
	for _, dir := range []string{dir1, dir2} {
		if err := validateArtifact(dir); err != nil {
			return nil, err
		}
	}

	m.log.Info("Parsing artifacts", "first", dir1, "second", dir2)
	first, err := m.parser.Parse(filepath.Join(dir1, render.DocumentName))
	if err != nil {
		return nil, fmt.Errorf("parse first artifact: %w", err)
	}
	second, err := m.parser.Parse(filepath.Join(dir2, render.DocumentName))
	if err != nil {
		return nil, fmt.Errorf("parse second artifact: %w", err)
	}

	// Объединение: записи второго артефакта перезаписывают первый при
	// совпадении ключа — совпавшие ключи по определению одно и то же
	// логическое сообщение.
	for key, msg := range second {
		first[key] = msg
	}

	merged := make([]*domain.CanonicalMessage, 0, len(first))
	for _, msg := range first {
		merged = append(merged, msg)
	}
	if len(merged) == 0 {
		return nil, ErrNothingToMerge
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.Before(merged[j].Date)
	})

	chatName := artifactChatName(dir1)
	outputDir := filepath.Join(outRoot, fmt.Sprintf("%s_merged_%s", chatName, m.clock().Format("20060102_150405")))
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	m.log.Info("Copying media files", "output", outputDir)
	for _, dir := range []string{dir1, dir2} {
		if err := copyMediaTree(dir, outputDir); err != nil {
			return nil, fmt.Errorf("copy media from %s: %w", dir, err)
		}
	}

	docPath := filepath.Join(outputDir, render.DocumentName)
	f, err := os.Create(docPath)
	if err != nil {
		return nil, fmt.Errorf("create merged document: %w", err)
	}
	defer f.Close()
	if err := m.renderer.Render(f, chatName, merged); err != nil {
		return nil, fmt.Errorf("render merged document: %w", err)
	}

	m.log.Info("Merge completed", "messages", len(merged), "document", docPath)
	return &Result{OutputDir: outputDir, Messages: len(merged)}, nil
}

// LastMessageDate возвращает метку времени последнего сообщения артефакта.
// Тонкая обертка над парсером: используется для возобновления экспорта с
// места, где закончился предыдущий.
func (m *Merger) LastMessageDate(dir string) (time.Time, error) {
	if err := validateArtifact(dir); err != nil {
		return time.Time{}, err
	}
	msgs, err := m.parser.Parse(filepath.Join(dir, render.DocumentName))
	if err != nil {
		return time.Time{}, err
	}
	var last time.Time
	for _, msg := range msgs {
		if msg.Date.After(last) {
			last = msg.Date
		}
	}
	if last.IsZero() {
		return time.Time{}, fmt.Errorf("no parsable messages in %s", dir)
	}
	return last, nil
}

// validateArtifact проверяет, что dir — каталог артефакта с документом.
func validateArtifact(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a valid export folder", dir)
	}
	doc := filepath.Join(dir, render.DocumentName)
	if info, err := os.Stat(doc); err != nil || info.IsDir() {
		return fmt.Errorf("%s is not a valid export folder: missing %s", dir, render.DocumentName)
	}
	return nil
}

// artifactChatName восстанавливает имя чата из имени каталога артефакта,
// отрезая завершающий суффикс метки времени.
func artifactChatName(dir string) string {
	name := filepath.Base(filepath.Clean(dir))
	if i := strings.LastIndex(name, "_"); i > 0 {
		return name[:i]
	}
	return name
}

// copyMediaTree копирует дерево media/<вид>/ артефакта src в outputDir,
// применяя то же правило разрешения коллизий, что и при скачивании: файлы
// никогда не перезаписываются, к имени добавляется возрастающий счетчик.
// Пути внутри записей уже относительны корню артефакта и переносятся в
// новый документ без изменений, поэтому раскладка повторяется точно.
func copyMediaTree(src, outputDir string) error {
	mediaRoot := filepath.Join(src, "media")
	entries, err := os.ReadDir(mediaRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, kindDir := range entries {
		if !kindDir.IsDir() {
			continue
		}
		destDir := filepath.Join(outputDir, "media", kindDir.Name())
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return err
		}

		files, err := os.ReadDir(filepath.Join(mediaRoot, kindDir.Name()))
		if err != nil {
			return err
		}
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			srcPath := filepath.Join(mediaRoot, kindDir.Name(), file.Name())
			destPath := fsutil.UniquePath(destDir, file.Name())
			if err := copyFile(srcPath, destPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
