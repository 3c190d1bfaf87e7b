package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/deck-publisher/internal/charts"
	"github.com/ramonehamilton/deck-publisher/internal/publisher"
)

func newPreviewCmd(a *app) *cobra.Command {
	var (
		flags buildFlags
		chart bool
		watch bool
		open  bool
	)

	cmd := &cobra.Command{
		Use:   "preview <deck.mwDeck>",
		Short: "Render the deck preview page without publishing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]
			out := cmd.OutOrStdout()

			svc, build, closeDB, err := a.build(ctx, path, flags, chart)
			if err != nil {
				return err
			}
			defer closeDB()

			fmt.Fprintln(out, summary(build))

			if open {
				if err := charts.OpenInBrowser(build.PreviewPath); err != nil {
					a.logger.Warn("Could not open browser", zap.Error(err))
				}
			}
			if !watch {
				return nil
			}

			opts := publisher.BuildOptions{ShowRating: flags.rating, ShowPrices: flags.prices, Chart: chart}
			watcher, err := publisher.NewWatcher(path, 0, func(ctx context.Context) error {
				rebuilt, err := svc.Build(ctx, path, opts)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, summary(rebuilt))
				return nil
			}, a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Watching for changes, press Ctrl+C to stop.")
			return watcher.Run(ctx)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&chart, "chart", false, "Also write a rarity chart page")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild the preview whenever the deck file is saved")
	cmd.Flags().BoolVar(&open, "open", false, "Open the preview in the default browser")
	return cmd
}
