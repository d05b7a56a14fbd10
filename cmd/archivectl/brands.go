package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mailgallery/backend/internal/service"
)

func newImportBrandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-brands <file>",
		Short: "Import brands from a tab separated file",
		Long: `Each line of the file holds "name<TAB>domain<TAB>country". The favicon of
every domain is downloaded and stored with the brand; brands whose icon
cannot be fetched are saved without one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open brand list: %w", err)
			}
			defer f.Close()

			rt, err := openEnv()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			report, err := service.NewBrandService(rt.store, nil, rt.log.Named("brands")).Import(ctx, f)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "saved %d brands (%d without icon), %d failed\n",
				report.Saved, report.WithoutIcon, report.Failed)
			return nil
		},
	}
}
