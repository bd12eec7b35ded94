package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pipeline/internal/client"
	"github.com/alfredjeanlab/pipeline/internal/export"
	"github.com/alfredjeanlab/pipeline/internal/permission"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the client book as JSONL or CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("output")

		gate := permission.New(permission.DefaultGrants(), nil)
		if !gate.CanPerform(cliRole(cmd), permission.PermExportData) {
			fmt.Fprintf(os.Stderr, "Error: role %q may not export data\n", cliRole(cmd))
			os.Exit(1)
		}

		var w io.Writer = os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()
			w = f
		}

		lister := client.Lister{Client: api}
		var (
			count int
			err   error
		)
		switch format {
		case "csv":
			count, err = export.ExportCSV(cmd.Context(), lister, w)
		case "jsonl":
			count, err = export.ExportJSONL(cmd.Context(), lister, w)
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown format %q (want jsonl or csv)\n", format)
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if outPath != "" {
			fmt.Printf("Exported %d clients to %s\n", count, outPath)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "jsonl", "export format (jsonl or csv)")
	exportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	exportCmd.Flags().String("role", string(permission.RoleAdmin), "role used for the local permission pre-check")
}
