package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/deck-publisher/internal/export"
	"github.com/ramonehamilton/deck-publisher/internal/mtga/deckfile"
	"github.com/ramonehamilton/deck-publisher/internal/render"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
		prices bool
		pretty bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "export <deck.mwDeck>",
		Short: "Write the resolved card list of a deck as CSV or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			svc, closeDB, err := a.pipeline(ctx, prices, false)
			if err != nil {
				return err
			}
			defer closeDB()

			result, err := svc.Load(args[0])
			if err != nil {
				if errors.Is(err, deckfile.ErrMissingField) {
					return fmt.Errorf("could not parse deck file: %w", err)
				}
				return err
			}
			if _, _, err := svc.Enrich(ctx, result.Deck); err != nil {
				return err
			}

			var priceList map[string]render.Price
			if prices {
				if priceList, err = svc.Prices(ctx, result.Deck); err != nil {
					return err
				}
			}

			rows := export.DeckRows(result.Deck, priceList)
			if output == "" {
				return export.ExportToWriter(cmd.OutOrStdout(), f, rows, pretty)
			}

			exporter := export.NewExporter(export.Options{
				Format:     f,
				FilePath:   output,
				PrettyJSON: pretty,
				Overwrite:  force,
			})
			if err := exporter.Export(rows); err != nil {
				return err
			}
			a.logger.Info("Card list exported", zap.String("path", output), zap.Int("rows", len(rows)))
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d cards to %s\n", len(rows), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatCSV), "Output format (csv or json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVarP(&prices, "prices", "c", false, "Include current market prices")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON output")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing output file")
	return cmd
}
