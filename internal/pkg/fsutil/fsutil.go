// Package fsutil содержит файловые утилиты, общие для скачивания медиа и
// слияния артефактов.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// SanitizeFilename удаляет из имени все символы, кроме букв, цифр и
// небольшого безопасного набора знаков.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		switch r {
		case ' ', '-', '_', '.', '(', ')':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// UniquePath возвращает путь к name внутри dir, не занятый существующим
// файлом. При коллизии к имени перед расширением добавляется возрастающий
// счетчик: name.ext, name_1.ext, name_2.ext и так далее. Правило одно и то
// же при скачивании и при копировании во время слияния.
func UniquePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if !exists(path) {
		return path
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for counter := 1; ; counter++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
		if !exists(path) {
			return path
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
