package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mailgallery/backend/internal/service"
	"mailgallery/backend/internal/thumbnail"
)

func newThumbnailsCmd() *cobra.Command {
	var batch, workers int

	cmd := &cobra.Command{
		Use:   "thumbnails",
		Short: "Render thumbnails for emails that have none",
		Long: `Render every email without a thumbnail in headless Chrome, take a
mobile-sized screenshot and store it as a base64 PNG.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openEnv()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			if batch <= 0 {
				batch = rt.cfg.Thumbnail.BatchSize
			}
			if workers <= 0 {
				workers = rt.cfg.Thumbnail.Workers
			}

			thumbnails := service.NewThumbnailService(
				rt.store,
				service.ChromeOpener(thumbnail.OptionsFromConfig(rt.cfg.Thumbnail), rt.log.Named("chrome")),
				service.ThumbnailOptions{
					Width:   rt.cfg.Thumbnail.ThumbWidth,
					Height:  rt.cfg.Thumbnail.ThumbHeight,
					Workers: workers,
				},
				nil,
				rt.log.Named("thumbnails"),
			)

			report, err := thumbnails.GenerateBatch(ctx, batch)
			if err != nil {
				return err
			}

			rt.log.Info("thumbnail batch finished",
				zap.Int("processed", report.Processed),
				zap.Int("generated", report.Generated),
				zap.Int("failed", report.Failed),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d emails: %d generated, %d failed\n",
				report.Processed, report.Generated, report.Failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 0, "maximum emails to process (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent renders (default from config)")
	return cmd
}
