package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"telegram-chat-export/internal/export"
	"telegram-chat-export/internal/telegram"
)

var (
	exportWithMedia bool
	exportMaxSizeMB int64
	exportOutputDir string
)

var exportCmd = &cobra.Command{
	Use:   "export <chat>",
	Short: "Выгрузить историю диалога в HTML-архив",
	Long: `Выгружает полную историю диалога в каталог exports/<имя>_<метка времени>
с документом messages.html и скачанными медиафайлами.

Диалог задается @username либо числовым идентификатором.

Примеры:
  exporter export @durov
  exporter export -- -1001234567890 --media=false
  exporter export @friend --max-size-mb 50`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if exportOutputDir != "" {
			cfg.Export.OutputDir = exportOutputDir
		}

		client := telegram.NewClient(telegram.Config{
			APIID:       cfg.TelegramAPI.APIID,
			APIHash:     cfg.TelegramAPI.APIHash,
			PhoneNumber: cfg.TelegramAPI.PhoneNumber,
			SessionPath: cfg.TelegramAPI.SessionFile,
		}, telegram.WithLogger(logger))
		client.Start(ctx)

		pipeline := export.NewPipeline(client, cfg.Export,
			export.WithLogger(logger),
			export.WithProgress(func(done, total int) {
				fmt.Fprintf(os.Stderr, "\rProcessing messages: %d/%d", done, total)
				if done == total {
					fmt.Fprintln(os.Stderr)
				}
			}),
		)

		result, err := pipeline.Export(ctx, args[0], export.Options{
			DownloadMedia: exportWithMedia,
			MaxFileSize:   exportMaxSizeMB * 1024 * 1024,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, "Export failed. Check that the chat identifier is correct"+
				" (@username or numeric id) and that the account has access to the dialog.")
			return err
		}

		fmt.Printf("Export completed: %d messages, %d media files\n", result.Messages, result.MediaFiles)
		fmt.Printf("Saved to: %s\n", result.ExportDir)
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportWithMedia, "media", true, "скачивать медиафайлы")
	exportCmd.Flags().Int64Var(&exportMaxSizeMB, "max-size-mb", 0, "пропускать файлы крупнее лимита, МБ (0 — без лимита)")
	exportCmd.Flags().StringVarP(&exportOutputDir, "output", "o", "", "каталог для результатов (по умолчанию из конфигурации)")
	rootCmd.AddCommand(exportCmd)
}
