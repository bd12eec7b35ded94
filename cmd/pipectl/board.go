package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pipeline/internal/board"
	"github.com/alfredjeanlab/pipeline/internal/listview"
	"github.com/alfredjeanlab/pipeline/internal/model"
	"github.com/alfredjeanlab/pipeline/internal/ui"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the pipeline board, one column per stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := loadBoard(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		printBoard(b)
		return nil
	},
}

// printBoard renders each non-empty stage as a column header and its
// windowed rows. Rows beyond the viewport are summarized, not printed.
func printBoard(b *board.Store) {
	height := ui.ViewportHeight(4, 20)

	for _, status := range model.AllStatuses {
		count := b.Count(status)
		if count == 0 {
			continue
		}
		fmt.Printf("%s (%d)\n", ui.RenderStatus(status), count)

		r := listview.Renderer{
			Board:          b,
			Status:         status,
			RowHeight:      1,
			ViewportHeight: height,
		}
		rows, w := r.Rows(0)
		for _, rec := range rows {
			line := fmt.Sprintf("  %s  %s", rec.ID, rec.Name)
			if rec.Assignee != "" {
				line += ui.RenderMuted("  @" + rec.Assignee)
			}
			fmt.Println(line)
		}
		if hidden := count - w.Len(); hidden > 0 {
			fmt.Println(ui.RenderMuted(fmt.Sprintf("  … %d more", hidden)))
		}
		fmt.Println()
	}
}
