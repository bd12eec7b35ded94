package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pipeline/internal/client"
	"github.com/alfredjeanlab/pipeline/internal/model"
	"github.com/alfredjeanlab/pipeline/internal/permission"
	"github.com/alfredjeanlab/pipeline/internal/transition"
	"github.com/alfredjeanlab/pipeline/internal/ui"
)

// newEngine loads the board and builds a transition engine confirmed over
// HTTP. The local gate pre-screens moves with the built-in grant table; the
// server remains the authority and re-checks every confirmation.
func newEngine(cmd *cobra.Command) (*transition.Engine, error) {
	b, err := loadBoard(cmd.Context())
	if err != nil {
		return nil, err
	}
	gate := permission.New(permission.DefaultGrants(), nil)
	return transition.NewEngine(gate, b, &client.Confirmer{Client: api}), nil
}

func cliRole(cmd *cobra.Command) permission.Role {
	role, _ := cmd.Flags().GetString("role")
	return permission.Role(role)
}

var moveCmd = &cobra.Command{
	Use:   "move <id> <status>",
	Short: "Move a client to another pipeline stage",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, status := args[0], args[1]
		to := model.Status(status)
		if !to.IsValid() {
			fmt.Fprintf(os.Stderr, "Error: unknown status %q\n", status)
			os.Exit(1)
		}

		engine, err := newEngine(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		res, err := engine.RequestMove(cmd.Context(), id, to, cliRole(cmd))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(res)
			return nil
		}
		if res.Noop {
			fmt.Printf("%s already in %s\n", id, ui.RenderStatus(to))
			return nil
		}
		fmt.Printf("Moved %s from %s to %s\n", res.ClientID,
			ui.RenderStatus(res.From), ui.RenderStatus(res.To))
		return nil
	},
}

var bulkMoveCmd = &cobra.Command{
	Use:   "bulk-move <status> <id>...",
	Short: "Move several clients to one pipeline stage",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, ids := args[0], args[1:]
		to := model.Status(status)
		if !to.IsValid() {
			fmt.Fprintf(os.Stderr, "Error: unknown status %q\n", status)
			os.Exit(1)
		}

		engine, err := newEngine(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		res, err := engine.RequestBulkMove(cmd.Context(), ids, to, cliRole(cmd))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(res)
			return nil
		}
		for _, item := range res.Items {
			if item.Outcome == transition.OutcomeMoved {
				continue
			}
			line := fmt.Sprintf("%s: %s", item.ClientID, item.Outcome)
			if item.Err != "" {
				line += " (" + item.Err + ")"
			}
			fmt.Println(ui.RenderMuted(line))
		}
		fmt.Printf("Moved %d of %d clients to %s\n", res.Moved(), len(res.Items), ui.RenderStatus(to))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{moveCmd, bulkMoveCmd} {
		c.Flags().String("role", string(permission.RoleAdmin), "role used for the local permission pre-check")
	}
}
