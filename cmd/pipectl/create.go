package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pipeline/internal/client"
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new client record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		phone, _ := cmd.Flags().GetString("phone")
		company, _ := cmd.Flags().GetString("company")
		franchise, _ := cmd.Flags().GetString("franchise")
		status, _ := cmd.Flags().GetString("status")
		assignee, _ := cmd.Flags().GetString("assignee")

		c, err := api.CreateClient(cmd.Context(), &client.CreateClientRequest{
			Name:      args[0],
			Email:     email,
			Phone:     phone,
			Company:   company,
			Franchise: franchise,
			Status:    status,
			Assignee:  assignee,
			CreatedBy: actor,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(c)
		} else {
			printClientTable(c)
		}
		return nil
	},
}

func init() {
	createCmd.Flags().StringP("email", "e", "", "contact email")
	createCmd.Flags().String("phone", "", "contact phone")
	createCmd.Flags().StringP("company", "c", "", "company name")
	createCmd.Flags().String("franchise", "", "owning franchise")
	createCmd.Flags().StringP("status", "s", "", "initial pipeline stage (default lead)")
	createCmd.Flags().String("assignee", "", "assignee")
}
