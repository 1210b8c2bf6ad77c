package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"telegram-chat-export/internal/domain"
	"telegram-chat-export/internal/ports"
)

// historyPageSize — размер страницы при обходе истории.
const historyPageSize = 100

var _ ports.MessageSource = (*Client)(nil)

// Resolve находит диалог по @username или числовому идентификатору.
// Числовые идентификаторы нельзя разрешить «с нуля» без access hash,
// поэтому для них выполняется поиск по списку диалогов.
func (c *Client) Resolve(ctx context.Context, target string) (*domain.ChatInfo, error) {
	target = strings.TrimSpace(strings.TrimPrefix(target, "@"))
	if target == "" {
		return nil, errors.New("empty chat identifier")
	}

	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		return c.resolveFromDialogs(ctx, id)
	}

	var resolved *tg.ContactsResolvedPeer
	err := c.do(ctx, func(ctx context.Context) error {
		res, err := c.tgRunner.API().ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: target})
		if err == nil {
			resolved = res
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("resolve username %q: %w", target, err)
	}

	c.cacheEntities(resolved.Users, resolved.Chats)

	switch peer := resolved.Peer.(type) {
	case *tg.PeerUser:
		for _, u := range resolved.Users {
			if user, ok := u.(*tg.User); ok && user.ID == peer.UserID {
				return &domain.ChatInfo{
					Title: userDisplayName(user),
					Peer:  &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash},
				}, nil
			}
		}
	case *tg.PeerChat:
		for _, ch := range resolved.Chats {
			if chat, ok := ch.(*tg.Chat); ok && chat.ID == peer.ChatID {
				return &domain.ChatInfo{Title: chatTitle(chat.Title), Peer: &tg.InputPeerChat{ChatID: chat.ID}}, nil
			}
		}
	case *tg.PeerChannel:
		for _, ch := range resolved.Chats {
			if channel, ok := ch.(*tg.Channel); ok && channel.ID == peer.ChannelID {
				return &domain.ChatInfo{
					Title: chatTitle(channel.Title),
					Peer:  &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash},
				}, nil
			}
		}
	}

	return nil, fmt.Errorf("username %q resolved to unknown peer", target)
}

// resolveFromDialogs ищет диалог с данным идентификатором среди диалогов
// текущего аккаунта.
func (c *Client) resolveFromDialogs(ctx context.Context, id int64) (*domain.ChatInfo, error) {
	// Идентификаторы каналов часто записывают с префиксом -100.
	raw := id
	if raw < 0 {
		s := strconv.FormatInt(-raw, 10)
		s = strings.TrimPrefix(s, "100")
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
			raw = parsed
		}
	}

	var dialogs tg.MessagesDialogsClass
	err := c.do(ctx, func(ctx context.Context) error {
		res, err := c.tgRunner.API().MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetPeer: &tg.InputPeerEmpty{},
			Limit:      historyPageSize,
		})
		if err == nil {
			dialogs = res
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list dialogs: %w", err)
	}

	var users []tg.UserClass
	var chats []tg.ChatClass
	switch d := dialogs.(type) {
	case *tg.MessagesDialogs:
		users, chats = d.Users, d.Chats
	case *tg.MessagesDialogsSlice:
		users, chats = d.Users, d.Chats
	}
	c.cacheEntities(users, chats)

	for _, u := range users {
		if user, ok := u.(*tg.User); ok && user.ID == raw {
			return &domain.ChatInfo{
				Title: userDisplayName(user),
				Peer:  &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash},
			}, nil
		}
	}
	for _, ch := range chats {
		switch chat := ch.(type) {
		case *tg.Chat:
			if chat.ID == raw {
				return &domain.ChatInfo{Title: chatTitle(chat.Title), Peer: &tg.InputPeerChat{ChatID: chat.ID}}, nil
			}
		case *tg.Channel:
			if chat.ID == raw {
				return &domain.ChatInfo{
					Title: chatTitle(chat.Title),
					Peer:  &tg.InputPeerChannel{ChannelID: chat.ID, AccessHash: chat.AccessHash},
				}, nil
			}
		}
	}

	return nil, fmt.Errorf("chat %d not found among dialogs", id)
}

// MessageCount возвращает общее число сообщений в диалоге.
func (c *Client) MessageCount(ctx context.Context, chat *domain.ChatInfo) (int, error) {
	peer, err := inputPeer(chat)
	if err != nil {
		return 0, err
	}

	var history tg.MessagesMessagesClass
	err = c.do(ctx, func(ctx context.Context) error {
		res, err := c.tgRunner.API().MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{Peer: peer, Limit: 1})
		if err == nil {
			history = res
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get history head: %w", err)
	}

	switch h := history.(type) {
	case *tg.MessagesMessages:
		return len(h.Messages), nil
	case *tg.MessagesMessagesSlice:
		return h.Count, nil
	case *tg.MessagesChannelMessages:
		return h.Count, nil
	}
	return 0, nil
}

// ForEachMessage перебирает сообщения диалога от новых к старым ровно один
// раз, страница за страницей. Ошибка fn прерывает обход.
func (c *Client) ForEachMessage(ctx context.Context, chat *domain.ChatInfo, fn func(context.Context, *domain.SourceMessage) error) error {
	peer, err := inputPeer(chat)
	if err != nil {
		return err
	}

	offsetID := 0
	for {
		var history tg.MessagesMessagesClass
		err := c.do(ctx, func(ctx context.Context) error {
			res, err := c.tgRunner.API().MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
				Peer:     peer,
				OffsetID: offsetID,
				Limit:    historyPageSize,
			})
			if err == nil {
				history = res
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("get history page (offset %d): %w", offsetID, err)
		}

		msgs, users, chats := splitMessages(history)
		c.cacheEntities(users, chats)
		if len(msgs) == 0 {
			return nil
		}

		for _, raw := range msgs {
			src := c.toSourceMessage(raw, peer)
			if src != nil {
				if err := fn(ctx, src); err != nil {
					return err
				}
			}
			if id := messageID(raw); id != 0 {
				offsetID = id
			}
		}

		if len(msgs) < historyPageSize {
			return nil
		}
	}
}

// toSourceMessage переводит сообщение провода в модель источника.
// Возвращает nil для пустых сообщений.
func (c *Client) toSourceMessage(raw tg.MessageClass, chatPeer tg.InputPeerClass) *domain.SourceMessage {
	switch m := raw.(type) {
	case *tg.Message:
		src := &domain.SourceMessage{
			ID:       int64(m.ID),
			Date:     time.Unix(int64(m.Date), 0).UTC(),
			Text:     m.Message,
			ChatPeer: chatPeer,
		}
		if grouped, ok := m.GetGroupedID(); ok {
			src.GroupID = grouped
		}
		if from, ok := m.GetFromID(); ok {
			src.SenderPeer = from
		} else {
			src.SenderPeer = m.PeerID
		}
		if reply, ok := m.GetReplyTo(); ok {
			if header, ok := reply.(*tg.MessageReplyHeader); ok {
				if id, ok := header.GetReplyToMsgID(); ok {
					src.ReplyToID = int64(id)
				}
			}
		}
		if fwd, ok := m.GetFwdFrom(); ok {
			src.Forwarded = true
			if name, ok := fwd.GetFromName(); ok {
				src.ForwardName = name
			}
			if from, ok := fwd.GetFromID(); ok {
				src.ForwardPeer = from
			}
		}
		if media, ok := m.GetMedia(); ok {
			src.Media = buildMediaRef(media)
		}
		return src

	case *tg.MessageService:
		src := &domain.SourceMessage{
			ID:       int64(m.ID),
			Date:     time.Unix(int64(m.Date), 0).UTC(),
			ChatPeer: chatPeer,
		}
		if from, ok := m.GetFromID(); ok {
			src.SenderPeer = from
		} else {
			src.SenderPeer = m.PeerID
		}
		switch action := m.Action.(type) {
		case *tg.MessageActionChannelCreate:
			src.Action = domain.ActionChannelCreate
			src.ActionTitle = action.Title
		case *tg.MessageActionChatAddUser:
			src.Action = domain.ActionChatAddUser
		case *tg.MessageActionChatDeleteUser:
			src.Action = domain.ActionChatDeleteUser
		case *tg.MessageActionChatJoinedByLink:
			src.Action = domain.ActionChatJoinedByLink
		case *tg.MessageActionPinMessage:
			src.Action = domain.ActionPinMessage
		default:
			src.Action = domain.ActionOther
		}
		return src
	}
	return nil
}

// buildMediaRef описывает вложение для движка медиа: признаки классификации,
// заявленный размер и расположение для байтовой загрузки.
func buildMediaRef(media tg.MessageMediaClass) *domain.MediaRef {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.GetPhoto()
		if !ok {
			return &domain.MediaRef{Photo: true}
		}
		p, ok := photo.(*tg.Photo)
		if !ok {
			return &domain.MediaRef{Photo: true}
		}
		size, thumb := largestPhotoSize(p)
		return &domain.MediaRef{
			Photo:        true,
			DeclaredSize: size,
			Handle: &tg.InputPhotoFileLocation{
				ID:            p.ID,
				AccessHash:    p.AccessHash,
				FileReference: p.FileReference,
				ThumbSize:     thumb,
			},
		}

	case *tg.MessageMediaDocument:
		doc, ok := m.GetDocument()
		if !ok {
			return &domain.MediaRef{Document: true}
		}
		d, ok := doc.(*tg.Document)
		if !ok {
			return &domain.MediaRef{Document: true}
		}
		ref := &domain.MediaRef{
			Document:     true,
			MimeType:     d.MimeType,
			DeclaredSize: d.Size,
			Handle: &tg.InputDocumentFileLocation{
				ID:            d.ID,
				AccessHash:    d.AccessHash,
				FileReference: d.FileReference,
			},
		}
		for _, attr := range d.Attributes {
			switch a := attr.(type) {
			case *tg.DocumentAttributeFilename:
				if ref.FileName == "" {
					ref.FileName = a.FileName
				}
			case *tg.DocumentAttributeAudio:
				ref.Voice = a.Voice
			case *tg.DocumentAttributeVideo:
				ref.VideoNote = a.RoundMessage
			case *tg.DocumentAttributeSticker:
				ref.Sticker = true
			}
		}
		return ref

	case *tg.MessageMediaWebPage:
		ref := &domain.MediaRef{WebPage: true}
		if page, ok := m.Webpage.(*tg.WebPage); ok {
			if photo, ok := page.GetPhoto(); ok {
				if p, ok := photo.(*tg.Photo); ok {
					size, thumb := largestPhotoSize(p)
					ref.WebPhoto = true
					ref.DeclaredSize = size
					ref.Handle = &tg.InputPhotoFileLocation{
						ID:            p.ID,
						AccessHash:    p.AccessHash,
						FileReference: p.FileReference,
						ThumbSize:     thumb,
					}
				}
			}
		}
		return ref
	}

	// Неизвестное вложение: скачать нечего, останется заглушка.
	return &domain.MediaRef{}
}

// largestPhotoSize возвращает размер в байтах и тип крупнейшего доступного
// размера фотографии.
func largestPhotoSize(p *tg.Photo) (int64, string) {
	var best int
	var thumb string
	for _, s := range p.Sizes {
		switch size := s.(type) {
		case *tg.PhotoSize:
			if size.Size > best {
				best, thumb = size.Size, size.Type
			}
		case *tg.PhotoSizeProgressive:
			for _, n := range size.Sizes {
				if n > best {
					best, thumb = n, size.Type
				}
			}
		}
	}
	return int64(best), thumb
}

// SenderName разрешает отображаемое имя отправителя сообщения.
func (c *Client) SenderName(ctx context.Context, msg *domain.SourceMessage) (string, error) {
	peer, ok := msg.SenderPeer.(tg.PeerClass)
	if !ok {
		return "", errors.New("message has no sender peer")
	}
	return c.peerName(ctx, peer)
}

// ReplySnapshot загружает короткий снимок сообщения, на которое дан ответ.
func (c *Client) ReplySnapshot(ctx context.Context, msg *domain.SourceMessage) (*domain.ReplySnapshot, error) {
	if msg.ReplyToID == 0 {
		return nil, nil
	}
	chatPeer, ok := msg.ChatPeer.(tg.InputPeerClass)
	if !ok {
		return nil, errors.New("message has no chat peer")
	}

	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: int(msg.ReplyToID)}}
	var res tg.MessagesMessagesClass
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		var r tg.MessagesMessagesClass
		if channel, ok := chatPeer.(*tg.InputPeerChannel); ok {
			r, err = c.tgRunner.API().ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
				Channel: &tg.InputChannel{ChannelID: channel.ChannelID, AccessHash: channel.AccessHash},
				ID:      ids,
			})
		} else {
			r, err = c.tgRunner.API().MessagesGetMessages(ctx, ids)
		}
		if err == nil {
			res = r
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch replied message %d: %w", msg.ReplyToID, err)
	}

	msgs, users, chats := splitMessages(res)
	c.cacheEntities(users, chats)
	for _, raw := range msgs {
		m, ok := raw.(*tg.Message)
		if !ok || int64(m.ID) != msg.ReplyToID {
			continue
		}
		sender := "Unknown"
		if from, ok := m.GetFromID(); ok {
			if name, err := c.peerName(ctx, from); err == nil {
				sender = name
			}
		}
		return &domain.ReplySnapshot{Text: m.Message, Sender: sender}, nil
	}
	return nil, nil
}

// ForwardOrigin разрешает отображаемое имя источника пересылки.
func (c *Client) ForwardOrigin(ctx context.Context, msg *domain.SourceMessage) (string, error) {
	if msg.ForwardName != "" {
		return msg.ForwardName, nil
	}
	peer, ok := msg.ForwardPeer.(tg.PeerClass)
	if !ok {
		return "", errors.New("forward header has no origin")
	}
	return c.peerName(ctx, peer)
}

// Download скачивает байты вложения в файл path.
func (c *Client) Download(ctx context.Context, ref *domain.MediaRef, path string, progress func(percent int)) error {
	location, ok := ref.Handle.(tg.InputFileLocationClass)
	if !ok {
		return errors.New("media has no downloadable content")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create media file: %w", err)
	}

	w := &progressWriter{w: f, total: ref.DeclaredSize, progress: progress}
	err = c.do(ctx, func(ctx context.Context) error {
		return c.tgRunner.Streamer().Stream(ctx, location, w)
	})
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// --- кэш сущностей и имена ---

// cacheEntities запоминает отображаемые имена и access hash сущностей,
// пришедших вместе со страницей ответа.
func (c *Client) cacheEntities(users []tg.UserClass, chats []tg.ChatClass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			c.names[peerCacheKey(&tg.PeerUser{UserID: user.ID})] = userDisplayName(user)
		}
	}
	for _, ch := range chats {
		switch chat := ch.(type) {
		case *tg.Chat:
			c.names[peerCacheKey(&tg.PeerChat{ChatID: chat.ID})] = chatTitle(chat.Title)
		case *tg.Channel:
			c.names[peerCacheKey(&tg.PeerChannel{ChannelID: chat.ID})] = chatTitle(chat.Title)
		}
	}
}

// peerName возвращает отображаемое имя для peer из кэша сущностей.
func (c *Client) peerName(_ context.Context, peer tg.PeerClass) (string, error) {
	c.mu.RLock()
	name, ok := c.names[peerCacheKey(peer)]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("peer %v not seen in any response", peer)
	}
	return name, nil
}

func peerCacheKey(peer tg.PeerClass) string {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return "user:" + strconv.FormatInt(p.UserID, 10)
	case *tg.PeerChat:
		return "chat:" + strconv.FormatInt(p.ChatID, 10)
	case *tg.PeerChannel:
		return "channel:" + strconv.FormatInt(p.ChannelID, 10)
	}
	return "unknown"
}

// userDisplayName отображает пользователя как "First Last [@username]",
// либо "Deleted Account", когда имя отсутствует.
func userDisplayName(u *tg.User) string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = "Deleted Account"
	}
	if u.Username != "" {
		name += " [@" + u.Username + "]"
	}
	return name
}

// chatTitle отображает группу или канал по названию.
func chatTitle(title string) string {
	if title == "" {
		return "Unknown"
	}
	return title
}

// --- разбор ответов ---

func inputPeer(chat *domain.ChatInfo) (tg.InputPeerClass, error) {
	if chat == nil {
		return nil, errors.New("nil chat")
	}
	peer, ok := chat.Peer.(tg.InputPeerClass)
	if !ok {
		return nil, errors.New("chat has no resolved peer")
	}
	return peer, nil
}

func splitMessages(res tg.MessagesMessagesClass) ([]tg.MessageClass, []tg.UserClass, []tg.ChatClass) {
	switch h := res.(type) {
	case *tg.MessagesMessages:
		return h.Messages, h.Users, h.Chats
	case *tg.MessagesMessagesSlice:
		return h.Messages, h.Users, h.Chats
	case *tg.MessagesChannelMessages:
		return h.Messages, h.Users, h.Chats
	}
	return nil, nil, nil
}

func messageID(raw tg.MessageClass) int {
	switch m := raw.(type) {
	case *tg.Message:
		return m.ID
	case *tg.MessageService:
		return m.ID
	case *tg.MessageEmpty:
		return m.ID
	}
	return 0
}

// progressWriter сообщает процент записанного относительно заявленного
// размера.
type progressWriter struct {
	w        io.Writer
	total    int64
	written  int64
	progress func(percent int)
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.written += int64(n)
	if pw.progress != nil && pw.total > 0 {
		percent := int(pw.written * 100 / pw.total)
		if percent > 100 {
			percent = 100
		}
		pw.progress(percent)
	}
	return n, err
}
