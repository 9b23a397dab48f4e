package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/catalog-prober/internal/site"
)

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List supported targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := site.DefaultRegistry()
			for _, name := range registry.Names() {
				target, err := registry.Lookup(name)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s (%d digits)\n",
					name, target.Host(), target.MaxDigits()); err != nil {
					return fmt.Errorf("write target list: %w", err)
				}
			}
			return nil
		},
	}
}
