package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"
	"golang.org/x/term"

	"telegram-chat-export/internal/ports"
	trm "telegram-chat-export/internal/pkg/term"
)

// floodWaitRegex используется для парсинга длительности ожидания из сообщения об ошибке.
var floodWaitRegex = regexp.MustCompile(`FLOOD_WAIT \((\d+)\)`)

// telegramAPI представляет необработанные методы API, которые мы используем.
type telegramAPI interface {
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
	MessagesGetMessages(ctx context.Context, id []tg.InputMessageClass) (tg.MessagesMessagesClass, error)
	ChannelsGetMessages(ctx context.Context, request *tg.ChannelsGetMessagesRequest) (tg.MessagesMessagesClass, error)
	ContactsResolveUsername(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
	MessagesGetDialogs(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
	UsersGetUsers(ctx context.Context, id []tg.InputUserClass) ([]tg.UserClass, error)
}

// mediaStreamer скачивает содержимое файла по его расположению.
type mediaStreamer interface {
	Stream(ctx context.Context, location tg.InputFileLocationClass, w io.Writer) error
}

// telegramAuth представляет клиент аутентификации.
type telegramAuth interface {
	auth.FlowClient
}

// telegramRunner определяет зависимости от клиента gotd.
// Это позволяет создавать моки в тестах.
type telegramRunner interface {
	Run(ctx context.Context, f func(ctx context.Context) error) error
	API() telegramAPI
	Auth() telegramAuth
	Streamer() mediaStreamer
}

// prodRunner является оберткой вокруг реального *telegram.Client для удовлетворения интерфейса telegramRunner.
type prodRunner struct {
	*telegram.Client
}

func (p *prodRunner) API() telegramAPI {
	return p.Client.API()
}

func (p *prodRunner) Auth() telegramAuth {
	return p.Client.Auth()
}

func (p *prodRunner) Streamer() mediaStreamer {
	return &prodStreamer{api: p.Client.API()}
}

type prodStreamer struct {
	api *tg.Client
}

func (s *prodStreamer) Stream(ctx context.Context, location tg.InputFileLocationClass, w io.Writer) error {
	_, err := downloader.NewDownloader().Download(s.api, location).Stream(ctx, w)
	return err
}

// authFlow определяет интерфейс для процесса аутентификации.
type authFlow interface {
	Run(ctx context.Context, client auth.FlowClient) error
}

// Client — клиент Telegram, реализующий ports.MessageSource поверх gotd.
// Инкапсулирует аутентификацию, фоновый запуск и преобразование ошибок
// транспорта в общую таксономию источника.
type Client struct {
	id         string
	tgRunner   telegramRunner
	authFlow   authFlow
	isTerminal func(fd int) bool
	log        *slog.Logger

	// Кэш отображаемых имен, заполняется сущностями из страниц истории.
	mu    sync.RWMutex
	names map[string]string

	runErr    chan error
	startOnce sync.Once
}

// Config содержит конфигурацию для создания нового клиента.
type Config struct {
	APIID       int
	APIHash     string
	PhoneNumber string
	SessionPath string
}

// ClientOption определяет функциональную опцию для конфигурации клиента.
type ClientOption func(*Client)

// WithLogger устанавливает логгер для клиента.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient создает новый экземпляр Client.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	// Создаем аутентификатор для терминала.
	termAuth := trm.NewTerminal(cfg.PhoneNumber)

	// Настраиваем хранилище сессии.
	sessionStorage := &session.FileStorage{Path: cfg.SessionPath}

	// Создаем и настраиваем базовый клиент gotd.
	tgClient := telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: sessionStorage,
	})

	c := &Client{
		id:         uuid.NewString(),
		tgRunner:   &prodRunner{Client: tgClient},
		authFlow:   auth.NewFlow(termAuth, auth.SendCodeOptions{}),
		isTerminal: func(fd int) bool { return term.IsTerminal(fd) },
		log:        slog.Default(),
		names:      make(map[string]string),
		runErr:     make(chan error, 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ID возвращает уникальный идентификатор клиента.
func (c *Client) ID() string {
	return c.id
}

// Start запускает фоновый процесс клиента, включая аутентификацию.
// Должен быть вызван один раз перед использованием клиента.
func (c *Client) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		go func() {
			c.log.InfoContext(ctx, "Starting telegram client background runner", "client_id", c.id)
			err := c.tgRunner.Run(ctx, func(runCtx context.Context) error {
				// Проверяем статус аутентификации при запуске.
				if _, err := c.tgRunner.API().UsersGetUsers(runCtx, []tg.InputUserClass{&tg.InputUserSelf{}}); err != nil {
					c.log.WarnContext(runCtx, "Session check failed, attempting interactive auth", "client_id", c.id, "error", err)
					if !c.isTerminal(int(os.Stdout.Fd())) {
						return fmt.Errorf("session is invalid and cannot perform interactive auth in non-terminal: %w", err)
					}
					if authErr := c.authFlow.Run(runCtx, c.tgRunner.Auth()); authErr != nil {
						return fmt.Errorf("interactive auth failed: %w", authErr)
					}
					c.log.InfoContext(runCtx, "Interactive auth successful, session saved", "client_id", c.id)
				}
				c.log.InfoContext(runCtx, "Telegram client authenticated and ready", "client_id", c.id)

				// Держим соединение активным, пока не завершится контекст.
				<-runCtx.Done()
				return runCtx.Err()
			})

			if err != nil && !errors.Is(err, context.Canceled) {
				c.log.ErrorContext(ctx, "Telegram client background runner exited with error", "client_id", c.id, "error", err)
			} else {
				c.log.InfoContext(ctx, "Telegram client background runner stopped", "client_id", c.id)
			}

			c.runErr <- err
			close(c.runErr)
		}()
	})
}

// do выполняет операцию API и приводит ошибки транспорта к таксономии
// источника: FLOOD_WAIT и таймауты помечаются как временные.
func (c *Client) do(ctx context.Context, f func(ctx context.Context) error) error {
	opErr := f(ctx)
	if opErr == nil {
		return nil
	}

	// Также проверяем, не отвалился ли сам клиент.
	select {
	case runErr, ok := <-c.runErr:
		if ok && runErr != nil {
			return fmt.Errorf("клиент telegram не запущен: %w (ошибка операции: %v)", runErr, opErr)
		}
	default:
		// Клиент все еще работает, возвращаем ошибку операции.
	}

	return convertError(opErr)
}

// convertError переводит ошибку транспорта в общую таксономию источника.
func convertError(err error) error {
	if waitDuration, ok := parseFloodWait(err); ok {
		return &ports.FloodWaitError{Wait: waitDuration}
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return fmt.Errorf("%w: %v", ports.ErrTimeout, err)
	}
	return err
}

// parseFloodWait извлекает длительность ожидания из ошибки.
func parseFloodWait(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}

	matches := floodWaitRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0, false
	}

	seconds, convErr := strconv.Atoi(matches[1])
	if convErr != nil {
		return 0, false
	}

	return time.Duration(seconds) * time.Second, true
}
