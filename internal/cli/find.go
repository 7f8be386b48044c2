package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <invNumber>",
		Short: "Look an invoice up by number",
		Long: `Look an invoice up by its number through the unique number index.
Exits with status 1 when no invoice has that number.

Example:
  invstore find LC4578`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(ctx context.Context, s *session) error {
				return findInvoice(ctx, s, args[0])
			})
		},
	}

	return cmd
}

func findInvoice(ctx context.Context, s *session, number string) error {
	inv, err := s.mgr.Find(ctx, number).Wait(ctx)
	if err != nil {
		return s.out.Fail(fmt.Sprintf("failed to find invoice %q", number), err)
	}
	return s.out.Result(inv, inv.String())
}
