package main

import (
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pipeline/internal/client"
	"github.com/alfredjeanlab/pipeline/internal/ui"
)

var (
	serverURL  string
	authToken  string
	actor      string
	jsonOutput bool

	api client.PipelineClient
)

func defaultActor() string {
	if a := os.Getenv("PIPECTL_ACTOR"); a != "" {
		return a
	}
	out, err := exec.Command("git", "config", "user.name").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" {
			return name
		}
	}
	return "unknown"
}

func defaultServer() string {
	if s := os.Getenv("PIPECTL_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:   "pipectl",
	Short: "CLI client for the pipeline service",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		api = client.NewHTTPClient(serverURL, authToken, actor)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if api != nil {
			api.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "pipeline server base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("PIPECTL_TOKEN"), "bearer token for authentication")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "actor identity for permission checks and audit")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(bulkMoveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
