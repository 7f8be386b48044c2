package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/invstore/internal/invoice"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Reverse bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored invoices",
		Long: `List every stored invoice in ascending ID order, one per line as
"<invoiceID><TAB><invNumber>[<TAB><contact>]".

Example:
  invstore list
  invstore list --reverse --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := invoice.Next
			if opts.Reverse {
				dir = invoice.Prev
			}
			return withStore(opts.RootOptions, cmd, func(ctx context.Context, s *session) error {
				return listInvoices(ctx, s, dir)
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.Reverse, "reverse", "r", false, "list newest first")

	return cmd
}

func listInvoices(ctx context.Context, s *session, dir invoice.Direction) error {
	all := []invoice.Invoice{}
	for inv, err := range s.mgr.List(ctx, dir) {
		if err != nil {
			return s.out.Fail("failed to list invoices", err)
		}
		all = append(all, inv)
	}

	if len(all) == 0 {
		return s.out.Result(all, "no invoices")
	}

	lines := make([]string, 0, len(all))
	for _, inv := range all {
		lines = append(lines, inv.String())
	}
	return s.out.Result(all, strings.Join(lines, "\n"))
}
