package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/deck-publisher/internal/allegro"
	"github.com/ramonehamilton/deck-publisher/internal/config"
	"github.com/ramonehamilton/deck-publisher/internal/mtga/deckfile"
	"github.com/ramonehamilton/deck-publisher/internal/publisher"
)

type buildFlags struct {
	rating    bool
	prices    bool
	noRewrite bool
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.rating, "rating", "r", false, "Add a card rating column and sort by rating")
	cmd.Flags().BoolVarP(&f.prices, "prices", "c", false, "Add a market price column")
	cmd.Flags().BoolVar(&f.noRewrite, "no-rewrite", false, "Do not write the tag header back into the deck file")
}

// build runs the deck pipeline and reports tag errors the way users see them.
func (a *app) build(ctx context.Context, path string, flags buildFlags, chart bool) (*publisher.Service, *publisher.Build, func(), error) {
	svc, closeDB, err := a.pipeline(ctx, flags.prices, !flags.noRewrite)
	if err != nil {
		return nil, nil, nil, err
	}

	build, err := svc.Build(ctx, path, publisher.BuildOptions{
		ShowRating: flags.rating,
		ShowPrices: flags.prices,
		Chart:      chart,
	})
	if err != nil {
		closeDB()
		if errors.Is(err, deckfile.ErrMissingField) {
			return nil, nil, nil, fmt.Errorf("could not parse deck file: %w", err)
		}
		return nil, nil, nil, err
	}
	return svc, build, closeDB, nil
}

func newPublishCmd(a *app) *cobra.Command {
	var (
		flags buildFlags
		test  bool
		prod  bool
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "publish <deck.mwDeck>",
		Short: "Render the deck preview and create the auction",
		Example: `  deck-publisher publish --test example.mwDeck
  deck-publisher publish --prod example.mwDeck
  deck-publisher publish --test --rating example.mwDeck`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env := config.EnvTest
			if prod {
				env = config.EnvProd
			}

			// Credentials are checked before anything is written or asked.
			creds, err := a.cfg.LoadCredentials(env)
			if err != nil {
				return err
			}
			clientConfig, err := a.cfg.AllegroConfig(env, creds)
			if err != nil {
				return err
			}

			svc, build, closeDB, err := a.build(ctx, args[0], flags, false)
			if err != nil {
				return err
			}
			defer closeDB()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, summary(build))

			if !yes {
				ok, err := confirm(cmd.InOrStdin(), out, confirmQuestion)
				if err != nil {
					return err
				}
				if !ok {
					a.logger.Info("Auction cancelled", zap.String("deck", build.Deck.Name))
					return nil
				}
				fmt.Fprintln(out)
			}

			client, err := allegro.NewClient(clientConfig, a.logger)
			if err != nil {
				return err
			}
			result, err := svc.Publish(ctx, client, build)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Item ID:     %d\nFee charged: %s\n", result.ItemID, result.ItemInfo)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&test, "test", "t", false, "Publish on the test environment")
	cmd.Flags().BoolVarP(&prod, "prod", "p", false, "Publish on the production environment")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.MarkFlagsMutuallyExclusive("test", "prod")
	cmd.MarkFlagsOneRequired("test", "prod")
	return cmd
}
