// Package cmd содержит команды консольной утилиты экспорта переписок.
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"telegram-chat-export/internal/pkg/config"
)

var (
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Экспорт переписок Telegram в автономные HTML-архивы",
	Long: `exporter выгружает историю диалога Telegram в автономный HTML-документ
с медиафайлами, умеет сливать два ранее созданных архива в один и
подсказывает дату последнего сообщения архива для докачки.

Конфигурация читается из config.yml либо из переменных окружения
(поддерживается .env файл): API_ID, API_HASH, PHONE_NUMBER.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Слияние и определение последней даты работают с локальными
		// артефактами, доступ к Telegram им не нужен.
		needsConfig := cmd.Name() == "export"

		var err error
		if needsConfig {
			cfg, err = config.LoadConfig()
			if err != nil {
				return err
			}
		} else {
			cfg = &config.Config{}
			cfg.Export.OutputDir = config.DefaultOutputDir
			cfg.Logging.Level = config.DefaultLogLevel
		}

		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel(cfg.Logging.Level),
		}))
		slog.SetDefault(logger)
		return nil
	},
}

// ExecuteContext запускает корневую команду с данным контекстом, что
// позволяет корректно завершаться по сигналу.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func logLevel(name string) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "подробное логирование (debug)")
}
