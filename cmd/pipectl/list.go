package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pipeline/internal/client"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List client records",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetStringSlice("status")
		assignee, _ := cmd.Flags().GetString("assignee")
		franchise, _ := cmd.Flags().GetString("franchise")
		search, _ := cmd.Flags().GetString("search")
		sortBy, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		resp, err := api.ListClients(cmd.Context(), &client.ListClientsRequest{
			Status:    status,
			Assignee:  assignee,
			Franchise: franchise,
			Search:    search,
			Sort:      sortBy,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(resp.Clients)
		} else {
			printClientListTable(resp.Clients, resp.Total)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringSliceP("status", "s", nil, "filter by pipeline stage (repeatable)")
	listCmd.Flags().String("assignee", "", "filter by assignee")
	listCmd.Flags().String("franchise", "", "filter by franchise")
	listCmd.Flags().String("search", "", "substring match on name, email, phone, company")
	listCmd.Flags().String("sort", "", "sort column, prefix with - for descending")
	listCmd.Flags().Int("limit", 20, "maximum number of clients to return")
	listCmd.Flags().Int("offset", 0, "offset for pagination")
}
