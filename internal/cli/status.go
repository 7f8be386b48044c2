package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// storeStatus is the payload of the status command.
type storeStatus struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Version  int      `json:"version"`
	Migrated []int    `json:"migrated"`
	Count    int64    `json:"count"`
	Indexes  []string `json:"indexes"`
}

func (s storeStatus) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "name:     %s\n", s.Name)
	fmt.Fprintf(&b, "path:     %s\n", s.Path)
	fmt.Fprintf(&b, "version:  %d\n", s.Version)
	fmt.Fprintf(&b, "invoices: %d\n", s.Count)
	fmt.Fprintf(&b, "indexes:  %s", strings.Join(s.Indexes, ", "))
	if len(s.Migrated) > 0 {
		fmt.Fprintf(&b, "\nmigrated: %v", s.Migrated)
	}
	return b.String()
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store location, schema version and size",
		Long: `Open the store (creating or migrating it if needed) and report its path,
schema version, invoice count and indexes.

Example:
  invstore status --schema-version 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, showStatus)
		},
	}

	return cmd
}

func showStatus(ctx context.Context, s *session) error {
	count, err := s.mgr.Count(ctx).Wait(ctx)
	if err != nil {
		return s.out.Fail("failed to count invoices", err)
	}
	indexes, err := s.mgr.Indexes(ctx).Wait(ctx)
	if err != nil {
		return s.out.Fail("failed to list indexes", err)
	}

	st := storeStatus{
		Name:     s.info.Name,
		Path:     s.info.Path,
		Version:  s.info.Version,
		Migrated: s.info.Migrated,
		Count:    count,
		Indexes:  make([]string, 0, len(indexes)),
	}
	if st.Migrated == nil {
		st.Migrated = []int{}
	}
	for _, idx := range indexes {
		st.Indexes = append(st.Indexes, idx.Name)
	}
	return s.out.Result(st, st.String())
}
