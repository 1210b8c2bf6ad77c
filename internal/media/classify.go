package media

import (
	"strings"

	"telegram-chat-export/internal/domain"
	"telegram-chat-export/internal/pkg/fsutil"
)

// Classify определяет вид медиа, расширение файла и предложенное источником
// имя до скачивания. Первое совпавшее правило выигрывает: фото, документ по
// старшему типу MIME, веб-превью, иначе — документ.
func Classify(ref *domain.MediaRef) (kind domain.MediaKind, ext string, suggested string) {
	kind, ext = domain.MediaDocument, "bin"

	switch {
	case ref.Photo:
		kind, ext = domain.MediaPhoto, "jpg"

	case ref.Document:
		mt := strings.ToLower(ref.MimeType)
		switch {
		case strings.HasPrefix(mt, "image"):
			kind = domain.MediaPhoto
		case strings.HasPrefix(mt, "video"):
			kind = domain.MediaVideo
		case strings.HasPrefix(mt, "audio"):
			kind = domain.MediaAudio
		default:
			kind = domain.MediaDocument
		}
		if i := strings.LastIndex(mt, "/"); i >= 0 && i+1 < len(mt) {
			ext = mt[i+1:]
		}
		if ref.FileName != "" {
			suggested = fsutil.SanitizeFilename(ref.FileName)
		}

	case ref.WebPage:
		if ref.WebPhoto {
			kind, ext = domain.MediaPhoto, "jpg"
		} else {
			kind, ext = domain.MediaDocument, "html"
		}
	}

	return kind, ext, suggested
}

// KindForExt возвращает вид медиа по фактическому расширению сохраненного
// файла. MediaNone — расширение не распознано, вид остается прежним.
func KindForExt(ext string) domain.MediaKind {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg", "png", "webp", "gif":
		return domain.MediaPhoto
	case "mp4", "mov", "webm", "mkv", "avi":
		return domain.MediaVideo
	case "mp3", "wav", "ogg", "m4a", "flac":
		return domain.MediaAudio
	}
	return domain.MediaNone
}

// Placeholder возвращает текст заглушки для вложения, которое не было
// сохранено.
func Placeholder(ref *domain.MediaRef) string {
	if ref == nil {
		return ""
	}
	mt := strings.ToLower(ref.MimeType)
	switch {
	case ref.Photo:
		return "[PHOTO]"
	case ref.VideoNote:
		return "[VIDEO MESSAGE]"
	case ref.Voice:
		return "[VOICE MESSAGE]"
	case ref.Sticker:
		return "[STICKER]"
	case ref.Document && strings.Contains(mt, "gif"):
		return "[GIF]"
	case ref.Document && strings.HasPrefix(mt, "video"):
		return "[VIDEO]"
	case ref.Document && strings.HasPrefix(mt, "audio"):
		return "[AUDIO FILE]"
	case ref.Document:
		return "[DOCUMENT]"
	}
	return "[MEDIA]"
}
