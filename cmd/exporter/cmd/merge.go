package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"telegram-chat-export/internal/merge"
)

var mergeOutputDir string

var mergeCmd = &cobra.Command{
	Use:   "merge <export-dir-1> <export-dir-2>",
	Short: "Слить два HTML-архива одного диалога в один",
	Long: `Объединяет два ранее созданных архива: сообщения обоих складываются,
дубликаты отбрасываются, медиафайлы копируются, и рендерится новый
документ в каталог <имя>_merged_<метка времени>.

Пример:
  exporter merge exports/friend_20250101_120000 exports/friend_20250601_090000`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		merger := merge.NewMerger(merge.WithLogger(logger))

		result, err := merger.Merge(args[0], args[1], mergeOutputDir)
		if err != nil {
			if errors.Is(err, merge.ErrNothingToMerge) {
				fmt.Println("No messages found in either export, nothing to merge.")
				return nil
			}
			return err
		}

		fmt.Printf("Merge completed: %d messages\n", result.Messages)
		fmt.Printf("Saved to: %s\n", result.OutputDir)
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutputDir, "output", "o", "exports", "каталог для результата слияния")
	rootCmd.AddCommand(mergeCmd)
}
