package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alfredjeanlab/pipeline/internal/model"
	"github.com/alfredjeanlab/pipeline/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printClientTable(c *model.Client) {
	fmt.Printf("ID:         %s\n", c.ID)
	fmt.Printf("Name:       %s\n", c.Name)
	fmt.Printf("Status:     %s\n", ui.RenderStatus(c.Status))
	if c.Email != "" {
		fmt.Printf("Email:      %s\n", c.Email)
	}
	if c.Phone != "" {
		fmt.Printf("Phone:      %s\n", c.Phone)
	}
	if c.Company != "" {
		fmt.Printf("Company:    %s\n", c.Company)
	}
	if c.Franchise != "" {
		fmt.Printf("Franchise:  %s\n", c.Franchise)
	}
	if c.Assignee != "" {
		fmt.Printf("Assignee:   %s\n", c.Assignee)
	}
	fmt.Printf("Version:    %d\n", c.Version)
	if c.CreatedBy != "" {
		fmt.Printf("Created By: %s\n", c.CreatedBy)
	}
	fmt.Printf("Created At: %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated At: %s\n", c.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printClientListTable(clients []*model.Client, total int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tNAME\tCOMPANY\tASSIGNEE")
	for _, c := range clients {
		name := c.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.ID,
			ui.RenderStatus(c.Status),
			name,
			c.Company,
			c.Assignee,
		)
	}
	w.Flush()
	fmt.Printf("\n%d clients (%d total)\n", len(clients), total)
}
