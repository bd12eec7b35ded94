package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pipeline/internal/board"
	"github.com/alfredjeanlab/pipeline/internal/client"
	"github.com/alfredjeanlab/pipeline/internal/model"
	"github.com/alfredjeanlab/pipeline/internal/search"
)

// loadBoard fetches the full client book into a local board snapshot.
func loadBoard(ctx context.Context) (*board.Store, error) {
	resp, err := api.ListClients(ctx, &client.ListClientsRequest{Sort: "created_at"})
	if err != nil {
		return nil, err
	}
	b := board.New()
	b.Batch(func() {
		for _, c := range resp.Clients {
			b.Upsert(*c)
		}
	})
	return b, nil
}

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search clients by name, email, phone, or company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		statusFlag, _ := cmd.Flags().GetString("status")
		active := model.Status(statusFlag)
		acrossAll := statusFlag == ""
		if !acrossAll && !active.IsValid() {
			fmt.Fprintf(os.Stderr, "Error: unknown status %q\n", statusFlag)
			os.Exit(1)
		}

		b, err := loadBoard(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		hits := search.New(b).Search(args[0], active, acrossAll)

		if jsonOutput {
			printJSON(hits)
			return nil
		}
		clients := make([]*model.Client, len(hits))
		for i := range hits {
			clients[i] = &hits[i]
		}
		printClientListTable(clients, len(clients))
		return nil
	},
}

func init() {
	searchCmd.Flags().StringP("status", "s", "", "restrict the search to one pipeline stage")
}
