package historycmder

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/scribe/pkg/history"
)

const historyLongDesc string = `Inspect and manage the conversation history saved next to a document.

Examples:
  scribe history show model.scad
  scribe history clear model.scad`

const historyShortDesc string = "Inspect and manage saved conversation histories"

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
	}

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newClearCmd())

	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <document>",
		Short: "Print the saved turns for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := history.New(zap.NewNop())
			h.SetDocument(args[0])

			turns := h.Turns()
			if len(turns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved history.")
				return nil
			}

			out := cmd.OutOrStdout()
			for _, turn := range turns {
				switch {
				case turn.ToolName != "":
					fmt.Fprintf(out, "[%s] %s %s\n", turn.Timestamp.Format("2006-01-02 15:04"), turn.Role, turn.ToolName)
				default:
					fmt.Fprintf(out, "[%s] %s: %s\n", turn.Timestamp.Format("2006-01-02 15:04"), turn.Role, turn.Text)
				}
			}
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <document>",
		Short: "Delete the saved history for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := history.SidecarPath(args[0])
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("could not delete %s: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
}
