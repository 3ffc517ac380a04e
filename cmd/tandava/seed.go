package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the built-in pose templates to the template store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			cfg := mgr.Config()

			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.Templates().List()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d templates in %s\n", len(list), st.Path())
			return nil
		},
	}
}
