// Package merge реализует слияние двух артефактов экспорта: обратный разбор
// отрендеренных документов, дедупликацию по натуральному ключу и сборку
// объединенного артефакта.
package merge

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html"

	"telegram-chat-export/internal/domain"
	"telegram-chat-export/internal/render"
)

// ArtifactParser восстанавливает канонические записи из документа
// messages.html. Формат документа — версионируемая схема: известный набор
// CSS-классов и форматы даты/времени из пакета render. Известное
// ограничение: ключ дедупликации включает буквальную отформатированную
// разметку текста, поэтому изменение правил рендеринга между двумя
// экспортами пересекающейся истории даст ложные отрицания.
type ArtifactParser struct{}

// NewArtifactParser создает парсер артефактов.
func NewArtifactParser() *ArtifactParser {
	return &ArtifactParser{}
}

// Parse разбирает документ и возвращает записи, индексированные натуральным
// ключом. Блоки с нечитаемым временем пропускаются.
func (p *ArtifactParser) Parse(documentPath string) (map[string]*domain.CanonicalMessage, error) {
	f, err := os.Open(documentPath)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	container := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "messages")
	})
	if container == nil {
		return map[string]*domain.CanonicalMessage{}, nil
	}

	messages := make(map[string]*domain.CanonicalMessage)
	var currentDate string
	for child := container.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		switch {
		case hasClass(child, "date-separator"):
			currentDate = strings.TrimSpace(textContent(child))
		case hasClass(child, "message") && currentDate != "":
			msg := extractMessage(child, currentDate)
			if msg != nil {
				messages[msg.NaturalKey()] = msg
			}
		}
	}
	return messages, nil
}

// extractMessage восстанавливает запись из одного блока сообщения.
// Возвращает nil, если время блока не разбирается.
func extractMessage(block *html.Node, dateStr string) *domain.CanonicalMessage {
	timeNode := findNode(block, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "span" && hasClass(n, "time")
	})
	if timeNode == nil {
		return nil
	}
	timeStr := strings.TrimSpace(textContent(timeNode))

	date, err := time.Parse(render.DateFormat+" "+render.TimeFormat, dateStr+" "+timeStr)
	if err != nil {
		return nil
	}

	msg := &domain.CanonicalMessage{Date: date.UTC()}

	if senderNode := findNode(block, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "span" && hasClass(n, "sender")
	}); senderNode != nil {
		msg.Sender = strings.TrimSpace(textContent(senderNode))
	}

	if textNode := findNode(block, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "text")
	}); textNode != nil {
		msg.Text = strings.TrimSpace(innerHTML(textNode))
	}

	walkNodes(block, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch {
		case n.Data == "img" && hasClass(n, "media-item"):
			if src := attrValue(n, "src"); src != "" {
				msg.Media = append(msg.Media, domain.MediaItem{Path: src, Kind: domain.MediaPhoto})
			}
		case n.Data == "video" && hasClass(n, "media-item"):
			if src := attrValue(n, "src"); src != "" {
				msg.Media = append(msg.Media, domain.MediaItem{Path: src, Kind: domain.MediaVideo})
			}
		case n.Data == "audio":
			if src := attrValue(n, "src"); src != "" {
				msg.Media = append(msg.Media, domain.MediaItem{Path: src, Kind: domain.MediaAudio})
			}
		case n.Data == "a" && hasClass(n, "document-name"):
			if href := attrValue(n, "href"); href != "" {
				msg.Media = append(msg.Media, domain.MediaItem{Path: href, Kind: domain.MediaDocument})
			}
		}
	})

	return msg
}

// --- обход дерева ---

func findNode(root *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func walkNodes(root *html.Node, fn func(*html.Node)) {
	fn(root)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walkNodes(c, fn)
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walkNodes(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

// innerHTML сериализует содержимое узла без самого узла, сохраняя разметку.
func innerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return b.String()
		}
	}
	return b.String()
}
