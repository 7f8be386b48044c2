package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every invoice",
		Long: `Delete every invoice in one transaction. The store and its schema are
kept, and IDs keep counting from where they were.

Example:
  invstore clear`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, clearInvoices)
		},
	}

	return cmd
}

func clearInvoices(ctx context.Context, s *session) error {
	n, err := s.mgr.Clear(ctx).Wait(ctx)
	if err != nil {
		return s.out.Fail("failed to clear invoices", err)
	}
	return s.out.Result(map[string]int64{"deleted": n}, fmt.Sprintf("cleared %d invoices", n))
}
