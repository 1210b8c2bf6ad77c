package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"telegram-chat-export/internal/merge"
)

var lastDateCmd = &cobra.Command{
	Use:   "last-date <export-dir>",
	Short: "Показать дату последнего сообщения архива",
	Long: `Читает messages.html в каталоге архива и печатает дату самого позднего
сообщения. Удобно, чтобы понять, с какого момента докачивать историю.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		merger := merge.NewMerger(merge.WithLogger(logger))

		last, err := merger.LastMessageDate(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Last message: %s\n", last.Format("2006-01-02 15:04"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lastDateCmd)
}
