// Command deck-publisher publishes Magic Workstation decks as marketplace
// auctions.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ramonehamilton/deck-publisher/internal/config"
	"github.com/ramonehamilton/deck-publisher/internal/mtgnet"
	"github.com/ramonehamilton/deck-publisher/internal/publisher"
	"github.com/ramonehamilton/deck-publisher/internal/render"
	"github.com/ramonehamilton/deck-publisher/internal/storage"
	"github.com/ramonehamilton/deck-publisher/internal/storage/repository"
)

// app holds the state shared by all subcommands.
type app struct {
	debug      bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger

	stdin  io.Reader
	stdout io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "deck-publisher",
		Short: "Publish Magic Workstation decks as marketplace auctions",
		Long: `deck-publisher reads a .mwDeck file, resolves its cards against the
reference database, renders an HTML preview and creates the auction.

Deck files carry their auction data in tag comments:

  // @name        Burn Deck
  // @price       49.99
  // @photo       photos/burn.jpg
  // @description Fast red deck built around [Lightning Bolt].`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logConfig := zap.NewProductionConfig()
			if a.debug {
				logConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := logConfig.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger

			if a.configPath == "" {
				a.cfg, err = config.Load()
			} else {
				a.cfg, err = config.LoadFrom(a.configPath)
			}
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default ~/.deck-publisher/config.toml)")
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)

	root.AddCommand(
		newPublishCmd(a),
		newPreviewCmd(a),
		newExportCmd(a),
		newDBCmd(a),
		newSecretCmd(a),
		newVersionCmd(a),
	)
	return root
}

// pipeline opens the card database and builds the deck service. The returned
// close function releases the database.
func (a *app) pipeline(ctx context.Context, withPrices, rewrite bool) (*publisher.Service, func(), error) {
	storageConfig, err := a.cfg.StorageConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.Open(ctx, storageConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open card database: %w", err)
	}
	closeDB := func() { _ = db.Close() }

	parserOpts, err := a.cfg.ParserOptions()
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	parserOpts.RewriteFile = parserOpts.RewriteFile && rewrite

	tmpl, err := render.Load(a.cfg.Render.TemplateFile, a.cfg.Render.StyleFile)
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	var prices publisher.PriceLookup
	if withPrices {
		opts, err := a.cfg.MtgNetOptions()
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		prices = mtgnet.NewClient(opts, a.logger)
	}

	svc, err := publisher.NewService(repository.NewCardRepository(db.Conn()), prices, publisher.Options{
		Parser:        parserOpts,
		Template:      tmpl,
		DeckExtension: a.cfg.Deck.Extension,
		PageExtension: a.cfg.Deck.PageExtension,
		TitleTag:      a.cfg.Deck.TitleTag,
	}, a.logger)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return svc, closeDB, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdin: os.Stdin, stdout: os.Stdout}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
