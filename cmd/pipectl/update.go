package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pipeline/internal/client"
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields on a client record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.UpdateClientRequest{}

		// Only flags the user actually set become part of the patch.
		set := func(name string, dst **string) {
			if cmd.Flags().Changed(name) {
				v, _ := cmd.Flags().GetString(name)
				*dst = &v
			}
		}
		set("name", &req.Name)
		set("email", &req.Email)
		set("phone", &req.Phone)
		set("company", &req.Company)
		set("franchise", &req.Franchise)
		set("assignee", &req.Assignee)

		c, err := api.UpdateClient(cmd.Context(), args[0], req)
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
	updateCmd.Flags().String("name", "", "client name")
	updateCmd.Flags().String("email", "", "contact email")
	updateCmd.Flags().String("phone", "", "contact phone")
	updateCmd.Flags().String("company", "", "company name")
	updateCmd.Flags().String("franchise", "", "owning franchise")
	updateCmd.Flags().String("assignee", "", "assignee")
}
